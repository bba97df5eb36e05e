package adapters

import (
	"context"

	"github.com/screendiary/screendiary/internal/types"
)

// FakeScreenshotter returns a fixed sequence of images (or nil to simulate a
// skip/failure), one per call, then repeats the last entry.
type FakeScreenshotter struct {
	Images []*types.Image
	calls  int
}

var _ Screenshotter = (*FakeScreenshotter)(nil)

func (f *FakeScreenshotter) Capture(ctx context.Context) (*types.Image, error) {
	if len(f.Images) == 0 {
		return nil, nil
	}
	i := f.calls
	if i >= len(f.Images) {
		i = len(f.Images) - 1
	}
	f.calls++
	return f.Images[i], nil
}

// FakeTopology returns a fixed monitor layout.
type FakeTopology struct {
	MonitorsList []types.Monitor
}

var _ TopologyProvider = (*FakeTopology)(nil)

func (f *FakeTopology) Monitors(ctx context.Context) ([]types.Monitor, error) {
	return f.MonitorsList, nil
}

// FakeWindowInfo returns a fixed probe result.
type FakeWindowInfo struct {
	Result *WindowProbe
}

var _ WindowInfoProvider = (*FakeWindowInfo)(nil)

func (f *FakeWindowInfo) ActiveWindow(ctx context.Context) (*WindowProbe, error) {
	return f.Result, nil
}

// FakeBrowserURL returns a fixed domain for any app class.
type FakeBrowserURL struct {
	Domain string
}

var _ BrowserURLProvider = FakeBrowserURL{}

func (f FakeBrowserURL) RecentDomain(ctx context.Context, appClass string) (string, error) {
	return f.Domain, nil
}

// FakeOCR returns a fixed result regardless of input image.
type FakeOCR struct {
	Result *OCRResult
}

var _ OCREngine = (*FakeOCR)(nil)

func (f *FakeOCR) Recognize(ctx context.Context, img *types.Image, languages string, psm int) (*OCRResult, error) {
	return f.Result, nil
}

// FakeEncoder records calls and always succeeds unless Err is set.
type FakeEncoder struct {
	Err   error
	Calls int
}

var _ Encoder = (*FakeEncoder)(nil)

func (f *FakeEncoder) Encode(ctx context.Context, framePattern, outputPath string, framerate float64, crf int, preset string) error {
	f.Calls++
	return f.Err
}

// FakeFrameExtractor counts invocations and returns fixed bytes.
type FakeFrameExtractor struct {
	Data  []byte
	Calls int
}

var _ FrameExtractor = (*FakeFrameExtractor)(nil)

func (f *FakeFrameExtractor) ExtractFrame(ctx context.Context, segmentPath string, offsetMs int64) ([]byte, error) {
	f.Calls++
	return f.Data, nil
}

// FakeEmbeddings returns a deterministic vector per chunk.
type FakeEmbeddings struct {
	Dims int
}

var _ EmbeddingProvider = (*FakeEmbeddings)(nil)

func (f *FakeEmbeddings) Embed(ctx context.Context, model string, chunks []string) ([][]float32, error) {
	dims := f.Dims
	if dims == 0 {
		dims = 8
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		v := make([]float32, dims)
		for j := range v {
			v[j] = float32(len(c)%(j+2)) / float32(dims)
		}
		out[i] = v
	}
	return out, nil
}

// FakeChat returns a fixed response regardless of prompt.
type FakeChat struct {
	Response string
}

var _ ChatProvider = FakeChat{}

func (f FakeChat) Complete(ctx context.Context, model, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	return f.Response, nil
}
