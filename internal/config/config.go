// Package config loads the daemon's TOML configuration with viper, the way
// LanternOps' breeze agent and the Rewind screen-recall tool both configure
// themselves: a typed struct filled by SetDefault calls, then overridden by
// whatever config file is found on disk.
//
// Config-file parsing is an out-of-scope, external-interface concern (see
// spec.md section 1); this loader intentionally stays a thin binding layer
// and does not attempt schema validation beyond range-clamping.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Capture struct {
	IntervalSeconds      int     `mapstructure:"interval"`
	SimilarityThreshold  float64 `mapstructure:"similarity_threshold"`
	Tool                 string  `mapstructure:"tool"`
}

type Storage struct {
	DataDir               string `mapstructure:"data_dir"`
	Format                string `mapstructure:"format"`
	Quality               int    `mapstructure:"quality"`
	ThumbnailWidth        int    `mapstructure:"thumbnail_width"`
	MaxStorageGB          float64 `mapstructure:"max_storage_gb"`
	ArchiveAfterMinutes   int    `mapstructure:"archive_after_minutes"`
	SegmentDurationMinutes int   `mapstructure:"segment_duration_minutes"`
	H265CRF               int    `mapstructure:"h265_crf"`
	H265Preset            string `mapstructure:"h265_preset"`
	FrameCacheSize        int    `mapstructure:"frame_cache_size"`
}

type OCR struct {
	Languages     string `mapstructure:"languages"`
	PSM           int    `mapstructure:"psm"`
	MinTextLength int    `mapstructure:"min_text_length"`
	Workers       int    `mapstructure:"workers"`
}

type AI struct {
	APIBase         string `mapstructure:"api_base"`
	APIKey          string `mapstructure:"api_key"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
	ChatModel       string `mapstructure:"chat_model"`
	ChunkMaxTokens  int    `mapstructure:"chunk_max_tokens"`
	Enabled         bool   `mapstructure:"enabled"`
}

type Config struct {
	Capture Capture `mapstructure:"capture"`
	Storage Storage `mapstructure:"storage"`
	OCR     OCR     `mapstructure:"ocr"`
	AI      AI      `mapstructure:"ai"`
}

// MonitorCheckInterval is the fixed number of ticks between topology
// re-detections (spec.md section 4.C); not user-configurable.
const MonitorCheckInterval = 30

func defaults(v *viper.Viper) {
	v.SetDefault("capture.interval", 2)
	v.SetDefault("capture.similarity_threshold", 0.98)
	v.SetDefault("capture.tool", "spectacle")

	v.SetDefault("storage.data_dir", defaultDataDir())
	v.SetDefault("storage.format", "webp")
	v.SetDefault("storage.quality", 80)
	v.SetDefault("storage.thumbnail_width", 320)
	v.SetDefault("storage.max_storage_gb", 200)
	v.SetDefault("storage.archive_after_minutes", 10)
	v.SetDefault("storage.segment_duration_minutes", 5)
	v.SetDefault("storage.h265_crf", 28)
	v.SetDefault("storage.h265_preset", "medium")
	v.SetDefault("storage.frame_cache_size", 100)

	v.SetDefault("ocr.languages", "deu+eng")
	v.SetDefault("ocr.psm", 3)
	v.SetDefault("ocr.min_text_length", 10)
	v.SetDefault("ocr.workers", 2)

	v.SetDefault("ai.chunk_max_tokens", 512)
	v.SetDefault("ai.enabled", false)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screendiary"
	}
	return filepath.Join(home, ".local", "share", "screendiary")
}

// searchPath returns the config file candidates in priority order, per
// spec.md section 6: $SCREENDIARY_CONFIG, ./config.toml,
// $XDG_CONFIG_HOME/screendiary/config.toml.
func searchPath() []string {
	var candidates []string
	if p := os.Getenv("SCREENDIARY_CONFIG"); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, "config.toml")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "screendiary", "config.toml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "screendiary", "config.toml"))
	}
	return candidates
}

// Load reads the first config file found on the search path (all sections
// optional; every option has a default) and returns a fully-populated Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	defaults(v)

	for _, path := range searchPath() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		break
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	clamp(&cfg)
	return &cfg, nil
}

func clamp(cfg *Config) {
	if cfg.Capture.IntervalSeconds < 1 {
		cfg.Capture.IntervalSeconds = 1
	}
	if cfg.Capture.IntervalSeconds > 30 {
		cfg.Capture.IntervalSeconds = 30
	}
	if cfg.Capture.SimilarityThreshold < 0 {
		cfg.Capture.SimilarityThreshold = 0
	}
	if cfg.Capture.SimilarityThreshold > 1 {
		cfg.Capture.SimilarityThreshold = 1
	}
	if cfg.OCR.Workers < 1 {
		cfg.OCR.Workers = 1
	}
}

// DBPath returns the catalog database path under the configured data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "screendiary.db")
}

// ScreenshotsDir, ArchiveDir, FrameCacheDir are the fixed subdirectories of
// the data dir, per spec.md section 6's filesystem layout.
func (c *Config) ScreenshotsDir() string { return filepath.Join(c.Storage.DataDir, "screenshots") }
func (c *Config) ArchiveDir() string     { return filepath.Join(c.Storage.DataDir, "archive") }
func (c *Config) FrameCacheDir() string  { return filepath.Join(c.Storage.DataDir, "frame_cache") }
