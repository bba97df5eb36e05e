package capture

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/control"
	"github.com/screendiary/screendiary/internal/store"
	"github.com/screendiary/screendiary/internal/types"
)

func solidImage(w, h int, v byte) *types.Image {
	img := &types.Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func newTestLoop(t *testing.T, images []*types.Image) (*Loop, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalog.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := Config{
		IntervalSeconds: 1, SimilarityThreshold: 0.98, Quality: 80, ThumbnailWidth: 320,
		ScreenshotsDir: t.TempDir(),
	}
	topo := &adapters.FakeTopology{MonitorsList: []types.Monitor{
		{Name: "DP-1", Index: 0, Width: images[0].Width, Height: images[0].Height},
	}}
	shots := &adapters.FakeScreenshotter{Images: images}
	winInfo := &adapters.FakeWindowInfo{Result: &adapters.WindowProbe{AppClass: "code", AppName: "VS Code"}}

	loop, err := New(cfg, st, shots, winInfo, adapters.FakeBrowserURL{}, topo, nil, control.New())
	require.NoError(t, err)
	return loop, st
}

func TestTickPersistsOnFirstFrameNoPreviousToCompare(t *testing.T) {
	loop, st := newTestLoop(t, []*types.Image{solidImage(100, 100, 10)})
	loop.tick(context.Background())

	shots, err := st.GetLiveScreenshotsBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, shots, 1)
}

func TestTickSkipsIdenticalFrames(t *testing.T) {
	img := solidImage(100, 100, 10)
	loop, st := newTestLoop(t, []*types.Image{img, img, img})

	loop.tick(context.Background())
	loop.tick(context.Background())
	loop.tick(context.Background())

	shots, err := st.GetLiveScreenshotsBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, shots, 1, "identical frames after the first must be deduped")
	require.Equal(t, 2, loop.SkipCount())
}

func TestTickAcceptsFrameBelowSimilarityThreshold(t *testing.T) {
	a := solidImage(100, 100, 10)
	b := solidImage(100, 100, 250)
	loop, st := newTestLoop(t, []*types.Image{a, b})

	loop.tick(context.Background())
	loop.tick(context.Background())

	shots, err := st.GetLiveScreenshotsBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, shots, 2)
	require.Equal(t, 0, loop.SkipCount())
}

func TestTopologyChangeClearsDedupState(t *testing.T) {
	loop, _ := newTestLoop(t, []*types.Image{solidImage(100, 100, 10)})
	loop.prevImage[0] = solidImage(100, 100, 10)

	// Simulate a stale cached topology different from what the (fake)
	// adapter now reports; refreshTopology must detect the mismatch and
	// drop all "previous image" dedup state.
	loop.monitors = []types.Monitor{{Name: "DP-1", Index: 0, Width: 200, Height: 200}}
	require.NoError(t, loop.refreshTopology(context.Background()))
	require.Empty(t, loop.prevImage)
}
