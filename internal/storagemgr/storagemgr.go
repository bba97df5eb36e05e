// Package storagemgr serves frames transparently from either storage tier
// and fronts archived-tier reads with a two-level cache: an in-memory LRU
// (hashicorp/golang-lru/v2, promoted from an indirect dependency the
// teacher and xg2g both already carry) and a content-addressed disk cache
// (spec.md section 4.F).
package storagemgr

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/types"
)

type cacheKey struct {
	segmentPath string
	offsetMs    int64
}

// Manager reads live or archived frames and thumbnails.
type Manager struct {
	extractor     adapters.FrameExtractor
	frameCacheDir string

	memCache *lru.Cache[cacheKey, []byte]
}

// New constructs a Manager with an in-memory LRU of capacity frameCacheSize
// (spec.md section 6, default 100) backed by a disk cache rooted at
// frameCacheDir.
func New(extractor adapters.FrameExtractor, frameCacheDir string, frameCacheSize int) (*Manager, error) {
	if frameCacheSize < 1 {
		frameCacheSize = 1
	}
	cache, err := lru.New[cacheKey, []byte](frameCacheSize)
	if err != nil {
		return nil, fmt.Errorf("storagemgr: creating lru cache: %w", err)
	}
	if err := os.MkdirAll(frameCacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("storagemgr: creating frame cache dir: %w", err)
	}
	return &Manager{extractor: extractor, frameCacheDir: frameCacheDir, memCache: cache}, nil
}

// GetFrame returns a monitor capture's frame bytes: directly from its live
// file if still live, else via the cache-fronted frame extractor.
func (m *Manager) GetFrame(ctx context.Context, mc types.MonitorCapture) ([]byte, error) {
	if mc.LiveFilePath != "" {
		data, err := os.ReadFile(mc.LiveFilePath)
		if err != nil {
			return nil, fmt.Errorf("storagemgr: reading live frame: %w", err)
		}
		return data, nil
	}
	if mc.SegmentPath == "" {
		return nil, fmt.Errorf("storagemgr: monitor capture %d has neither a live file nor a segment reference", mc.ID)
	}
	return m.getArchivedFrame(ctx, mc.SegmentPath, mc.SegmentOffsetMs)
}

func (m *Manager) getArchivedFrame(ctx context.Context, segmentPath string, offsetMs int64) ([]byte, error) {
	key := cacheKey{segmentPath, offsetMs}

	if data, ok := m.memCache.Get(key); ok {
		return data, nil
	}

	diskPath := m.diskCachePath(segmentPath, offsetMs)
	if data, err := os.ReadFile(diskPath); err == nil {
		m.memCache.Add(key, data)
		return data, nil
	}

	data, err := m.extractor.ExtractFrame(ctx, segmentPath, offsetMs)
	if err != nil {
		return nil, fmt.Errorf("storagemgr: extracting frame: %w", err)
	}

	m.memCache.Add(key, data)
	if err := os.WriteFile(diskPath, data, 0o644); err != nil {
		log.Debug().Err(err).Str("path", diskPath).Msg("storagemgr: best-effort disk cache write failed")
	}
	return data, nil
}

func (m *Manager) diskCachePath(segmentPath string, offsetMs int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d", segmentPath, offsetMs)))
	return filepath.Join(m.frameCacheDir, hex.EncodeToString(sum[:])+".webp")
}

// GetThumbnail returns a screenshot's thumbnail bytes, or nil if it has
// none (e.g. thumbnail write failed at capture time).
func (m *Manager) GetThumbnail(thumbnailPath string) []byte {
	if thumbnailPath == "" {
		return nil
	}
	data, err := os.ReadFile(thumbnailPath)
	if err != nil {
		return nil
	}
	return data
}
