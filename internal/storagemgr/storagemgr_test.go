package storagemgr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/types"
)

func TestGetFrameReadsLiveFileDirectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.webp")
	require.NoError(t, os.WriteFile(path, []byte("live-bytes"), 0o644))

	m, err := New(&adapters.FakeFrameExtractor{}, filepath.Join(dir, "cache"), 10)
	require.NoError(t, err)

	data, err := m.GetFrame(context.Background(), types.MonitorCapture{LiveFilePath: path})
	require.NoError(t, err)
	require.Equal(t, "live-bytes", string(data))
}

func TestGetFrameArchivedInvokesExtractorOnceThenCaches(t *testing.T) {
	dir := t.TempDir()
	extractor := &adapters.FakeFrameExtractor{Data: []byte("archived-bytes")}
	m, err := New(extractor, filepath.Join(dir, "cache"), 10)
	require.NoError(t, err)

	mc := types.MonitorCapture{SegmentPath: "/data/archive/seg1.mp4", SegmentOffsetMs: 2000}

	first, err := m.GetFrame(context.Background(), mc)
	require.NoError(t, err)
	require.Equal(t, "archived-bytes", string(first))
	require.Equal(t, 1, extractor.Calls)

	second, err := m.GetFrame(context.Background(), mc)
	require.NoError(t, err)
	require.Equal(t, "archived-bytes", string(second))
	require.Equal(t, 1, extractor.Calls, "second call with the same (segment, offset) must hit the cache, not the extractor")
}

func TestGetFrameArchivedSurvivesMemoryCacheEviction(t *testing.T) {
	dir := t.TempDir()
	extractor := &adapters.FakeFrameExtractor{Data: []byte("archived-bytes")}
	m, err := New(extractor, filepath.Join(dir, "cache"), 1)
	require.NoError(t, err)

	mcA := types.MonitorCapture{SegmentPath: "/data/archive/segA.mp4", SegmentOffsetMs: 0}
	mcB := types.MonitorCapture{SegmentPath: "/data/archive/segB.mp4", SegmentOffsetMs: 0}

	_, err = m.GetFrame(context.Background(), mcA)
	require.NoError(t, err)
	_, err = m.GetFrame(context.Background(), mcB) // evicts mcA from the size-1 memory cache
	require.NoError(t, err)
	require.Equal(t, 2, extractor.Calls)

	_, err = m.GetFrame(context.Background(), mcA) // falls back to disk cache, not the extractor
	require.NoError(t, err)
	require.Equal(t, 2, extractor.Calls)
}

func TestGetThumbnailMissingPathReturnsNil(t *testing.T) {
	dir := t.TempDir()
	m, err := New(&adapters.FakeFrameExtractor{}, filepath.Join(dir, "cache"), 10)
	require.NoError(t, err)
	require.Nil(t, m.GetThumbnail(""))
	require.Nil(t, m.GetThumbnail(filepath.Join(dir, "does-not-exist.webp")))
}
