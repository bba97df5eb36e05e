package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/archiver"
	"github.com/screendiary/screendiary/internal/capture"
	"github.com/screendiary/screendiary/internal/config"
	"github.com/screendiary/screendiary/internal/control"
	"github.com/screendiary/screendiary/internal/notify"
	"github.com/screendiary/screendiary/internal/pipeline"
	"github.com/screendiary/screendiary/internal/store"
)

// pipelineDrainTimeout bounds how long shutdown waits for in-flight OCR and
// embedding work to finish before giving up (spec.md section 4.I).
const pipelineDrainTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the capture, processing and archive loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if missing := checkTools(); len(missing) > 0 {
		return fmt.Errorf("run: missing required tools on PATH: %v", missing)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("run: loading config: %w", err)
	}

	reporter, err := notify.New(os.Getenv("SCREENDIARY_SENTRY_DSN"))
	if err != nil {
		return fmt.Errorf("run: initializing error reporter: %w", err)
	}
	defer reporter.Flush()

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("run: opening catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	state := control.New()

	var embeddings adapters.EmbeddingProvider
	if cfg.AI.Enabled {
		embeddings = adapters.NewOpenAIEmbeddings(cfg.AI.APIBase, cfg.AI.APIKey)
	}

	pl := pipeline.New(pipeline.Config{
		Languages:      cfg.OCR.Languages,
		PSM:            cfg.OCR.PSM,
		MinTextLength:  cfg.OCR.MinTextLength,
		Workers:        cfg.OCR.Workers,
		AIEnabled:      cfg.AI.Enabled,
		EmbeddingModel: cfg.AI.EmbeddingModel,
		ChunkMaxTokens: cfg.AI.ChunkMaxTokens,
	}, st, adapters.NewTesseractOCR(), embeddings)

	captureLoop, err := capture.New(capture.Config{
		IntervalSeconds:     cfg.Capture.IntervalSeconds,
		SimilarityThreshold: cfg.Capture.SimilarityThreshold,
		Quality:             cfg.Storage.Quality,
		ThumbnailWidth:      cfg.Storage.ThumbnailWidth,
		ScreenshotsDir:      cfg.ScreenshotsDir(),
	}, st, adapters.NewSpectacleScreenshotter(cfg.Capture.Tool), adapters.NewKWinWindowProbe(),
		adapters.ChromiumBrowserURL{}, adapters.XrandrTopology{}, pl, state)
	if err != nil {
		return fmt.Errorf("run: starting capture loop: %w", err)
	}

	arch, err := archiver.New(archiver.Config{
		ArchiveAfterMinutes:    cfg.Storage.ArchiveAfterMinutes,
		SegmentDurationMinutes: cfg.Storage.SegmentDurationMinutes,
		IntervalSeconds:        cfg.Capture.IntervalSeconds,
		H265CRF:                cfg.Storage.H265CRF,
		H265Preset:             cfg.Storage.H265Preset,
		MaxStorageGB:           cfg.Storage.MaxStorageGB,
		ArchiveDir:             cfg.ArchiveDir(),
		ScratchDir:             cfg.ScreenshotsDir(),
	}, st, adapters.NewFFmpegEncoder())
	if err != nil {
		return fmt.Errorf("run: starting archiver: %w", err)
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchPauseSignals(shutdownCtx, state)

	if err := arch.Start(shutdownCtx); err != nil {
		return fmt.Errorf("run: scheduling archiver: %w", err)
	}

	log.Info().Msg("screendiaryd: running")
	captureLoop.Run(shutdownCtx)

	log.Info().Msg("screendiaryd: shutting down")
	if err := arch.Shutdown(); err != nil {
		reporter.CaptureError("archiver.shutdown", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), pipelineDrainTimeout)
	defer cancelDrain()
	if err := pl.Shutdown(drainCtx); err != nil {
		reporter.CaptureError("pipeline.shutdown", err)
	}

	return nil
}

// watchPauseSignals maps SIGUSR1/SIGUSR2 to pause/resume (spec.md section
// 4.I, section 5): a dedicated signal channel running alongside the
// shutdown context, since signal.NotifyContext only fires once per
// registered signal.
func watchPauseSignals(ctx context.Context, state *control.State) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGUSR1:
					log.Info().Msg("screendiaryd: pausing capture")
					state.Pause()
				case syscall.SIGUSR2:
					log.Info().Msg("screendiaryd: resuming capture")
					state.Resume()
				}
			}
		}
	}()
}
