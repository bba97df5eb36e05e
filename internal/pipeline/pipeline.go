// Package pipeline runs OCR and (optionally) embedding computation for each
// accepted capture tick, off the capture loop's control thread (spec.md
// section 4.D). It reuses the bounded worker pool from internal/workerpool
// for OCR concurrency and sourcegraph/conc's pool for a second, independent
// concurrency cap on outbound embedding requests.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/store"
	"github.com/screendiary/screendiary/internal/types"
	"github.com/screendiary/screendiary/internal/workerpool"
)

// MonitorImage pairs a monitor capture row with its in-memory decoded
// frame, handed from capture to the pipeline without a disk round-trip.
type MonitorImage struct {
	MonitorCaptureID uint64
	Image            *types.Image
}

// Job is one screenshot's worth of pipeline work.
type Job struct {
	ScreenshotID uint64
	Monitors     []MonitorImage
}

// Config carries the subset of internal/config.Config the pipeline needs.
type Config struct {
	Languages     string
	PSM           int
	MinTextLength int
	Workers       int

	AIEnabled     bool
	EmbeddingModel string
	ChunkMaxTokens int
}

const chunkOverlap = 50

// embeddingConcurrency bounds simultaneous outbound embedding requests
// independently of the OCR worker count, so a burst of screens finishing
// OCR at once doesn't open ocr.workers-many connections to the embedding
// endpoint at once.
const embeddingConcurrency = 2

// Pipeline owns the OCR worker pool and the embedding concurrency gate.
type Pipeline struct {
	cfg        Config
	store      *store.Store
	ocr        adapters.OCREngine
	embeddings adapters.EmbeddingProvider

	ocrPool   *workerpool.Pool
	embedGate *pool.Pool
}

// New constructs a Pipeline with ocr.workers concurrent OCR workers.
func New(cfg Config, st *store.Store, ocr adapters.OCREngine, embeddings adapters.EmbeddingProvider) *Pipeline {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		ocr:        ocr,
		embeddings: embeddings,
		ocrPool:    workerpool.New(workers, workers*4),
		embedGate:  pool.New().WithMaxGoroutines(embeddingConcurrency),
	}
}

// Submit enqueues a job; it returns false if the OCR queue is full or the
// pipeline is no longer accepting work (shutdown in progress).
func (p *Pipeline) Submit(job Job) bool {
	return p.ocrPool.Submit(func() {
		p.process(context.Background(), job)
	})
}

// Shutdown stops accepting new jobs, drains in-flight OCR work, then waits
// for any outstanding embedding calls.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if err := p.ocrPool.Shutdown(ctx); err != nil {
		return err
	}
	p.embedGate.Wait()
	return nil
}

func (p *Pipeline) process(ctx context.Context, job Job) {
	var texts []string

	for _, mi := range job.Monitors {
		result, err := p.ocr.Recognize(ctx, mi.Image, p.cfg.Languages, p.cfg.PSM)
		if err != nil {
			log.Warn().Uint64("screenshot_id", job.ScreenshotID).Err(err).Msg("pipeline: ocr failed, skipping monitor")
			continue
		}
		if len(strings.TrimSpace(result.Text)) < p.cfg.MinTextLength {
			continue
		}

		words := make([]store.OCRWordInput, len(result.Words))
		for i, w := range result.Words {
			words[i] = store.OCRWordInput{
				Word: w.Word, Left: w.Left, Top: w.Top, Width: w.Width, Height: w.Height, Confidence: w.Confidence,
			}
		}

		if _, err := p.store.InsertOCRResult(job.ScreenshotID, mi.MonitorCaptureID, p.cfg.Languages, result.Text, result.MeanConfidence, words); err != nil {
			log.Error().Uint64("screenshot_id", job.ScreenshotID).Err(err).Msg("pipeline: persisting ocr result failed")
			continue
		}
		texts = append(texts, result.Text)
	}

	if !p.cfg.AIEnabled || p.embeddings == nil || len(texts) == 0 {
		return
	}

	p.embedScreenshot(ctx, job.ScreenshotID, strings.Join(texts, "\n"))
}

func (p *Pipeline) embedScreenshot(ctx context.Context, screenshotID uint64, concatenated string) {
	hash := contentHash(concatenated)

	if existing, err := p.store.GetEmbeddingByContentHash(screenshotID, hash); err == nil && existing != nil {
		return
	}

	chunks := ChunkText(concatenated, p.cfg.ChunkMaxTokens, chunkOverlap)
	if len(chunks) == 0 {
		return
	}

	type result struct {
		vectors [][]float32
		err     error
	}
	done := make(chan result, 1)
	p.embedGate.Go(func() {
		vectors, err := p.embeddings.Embed(ctx, p.cfg.EmbeddingModel, chunks)
		done <- result{vectors, err}
	})
	res := <-done

	if res.err != nil {
		log.Warn().Uint64("screenshot_id", screenshotID).Err(res.err).Msg("pipeline: embedding request failed")
		return
	}
	if res.vectors == nil {
		// Adapter self-disabled (permanent capability gap); nothing to persist.
		return
	}

	for _, vec := range res.vectors {
		if _, err := p.store.InsertEmbedding(screenshotID, p.cfg.EmbeddingModel, hash, vec); err != nil {
			log.Error().Uint64("screenshot_id", screenshotID).Err(err).Msg("pipeline: persisting embedding failed")
		}
	}
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
