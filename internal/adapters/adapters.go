// Package adapters wraps every external tool shell-out behind a typed
// interface (spec.md section 4.A, section 9 "dynamic dispatch on external
// tools"): one concrete implementation that execs the real binary or D-Bus
// call, and a fake used by tests. Every call carries a context and is
// expected to honor its deadline.
package adapters

import (
	"context"
	"time"

	"github.com/screendiary/screendiary/internal/types"
)

// Timeouts mandated by spec.md section 5.
const (
	WindowProbeTimeout   = 2 * time.Second
	FrameExtractTimeout  = 10 * time.Second
	EncodeTimeout        = 300 * time.Second
)

// Screenshotter captures the full desktop as a decoded image. It returns a
// nil image (not an error) when the capture should be skipped, e.g. a
// user-owned screenshot tool is already running.
type Screenshotter interface {
	Capture(ctx context.Context) (*types.Image, error)
}

// TopologyProvider resolves the current monitor layout.
type TopologyProvider interface {
	Monitors(ctx context.Context) ([]types.Monitor, error)
}

// WindowProbe resolves the active window's identity. A nil result (no
// error) means the probe timed out or the compositor doesn't expose one.
type WindowProbe struct {
	AppClass      string
	AppName       string
	WindowTitle   string
	DesktopFileID string
	PID           int
}

type WindowInfoProvider interface {
	ActiveWindow(ctx context.Context) (*WindowProbe, error)
}

// BrowserURLProvider resolves the most recently visited URL's host for a
// known browser app class. Best-effort: failures yield "", nil.
type BrowserURLProvider interface {
	RecentDomain(ctx context.Context, appClass string) (string, error)
}

// OCRWord is a single recognized word and its bounding box, already
// rescaled from the downscaled OCR image to original-image coordinates.
type OCRWord struct {
	Word       string
	Left, Top  int
	Width, Height int
	Confidence float64
}

type OCRResult struct {
	Text           string
	MeanConfidence float64
	Words          []OCRWord
	ScaleFactor    float64 // downscaled_width / original_width
}

type OCREngine interface {
	Recognize(ctx context.Context, img *types.Image, languages string, psm int) (*OCRResult, error)
}

// Encoder turns a numbered sequence of WebP frames into an H.265 segment.
type Encoder interface {
	// Encode invokes ffmpeg against framePattern (a printf-style path, e.g.
	// "/scratch/frame_%04d.webp") and writes outputPath. Returns an error
	// (and guarantees outputPath does not exist) on any non-zero exit.
	Encode(ctx context.Context, framePattern, outputPath string, framerate float64, crf int, preset string) error
}

// FrameExtractor seeks into an H.265 segment and emits a single WebP frame.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, segmentPath string, offsetMs int64) ([]byte, error)
}

// EmbeddingProvider computes embeddings for a batch of text chunks. A nil
// result with a nil error means embeddings are unavailable; the OpenAI
// implementation latches that state for the process lifetime (spec.md
// section 4.A, section 7).
type EmbeddingProvider interface {
	Embed(ctx context.Context, model string, chunks []string) ([][]float32, error)
}

// ChatProvider requests a narrative / motd completion.
type ChatProvider interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string, jsonMode bool) (string, error)
}
