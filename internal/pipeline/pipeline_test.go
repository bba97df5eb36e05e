package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/store"
	"github.com/screendiary/screendiary/internal/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProcessDiscardsShortOCRText(t *testing.T) {
	st := openTestStore(t)
	id, monitorIDs, err := st.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: time.Now(), LocalDate: "2026-07-30", Width: 10, Height: 10,
		Monitors: []store.MonitorCaptureInput{{MonitorName: "DP-1", Width: 10, Height: 10}},
	})
	require.NoError(t, err)

	ocr := &adapters.FakeOCR{Result: &adapters.OCRResult{Text: "hi"}}
	p := New(Config{Languages: "eng", MinTextLength: 10, Workers: 1}, st, ocr, nil)

	p.process(context.Background(), Job{ScreenshotID: id, Monitors: []MonitorImage{
		{MonitorCaptureID: monitorIDs[0], Image: &types.Image{Width: 1, Height: 1, Pix: make([]byte, 4)}},
	}})

	results, err := st.GetOCRResultsForScreenshot(id)
	require.NoError(t, err)
	require.Empty(t, results, "text shorter than min_text_length must be discarded")
}

func TestProcessPersistsOCRAndEmbeds(t *testing.T) {
	st := openTestStore(t)
	id, monitorIDs, err := st.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: time.Now(), LocalDate: "2026-07-30", Width: 10, Height: 10,
		Monitors: []store.MonitorCaptureInput{{MonitorName: "DP-1", Width: 10, Height: 10}},
	})
	require.NoError(t, err)

	ocr := &adapters.FakeOCR{Result: &adapters.OCRResult{
		Text:           "quarterly budget review spreadsheet open in editor",
		MeanConfidence: 0.95,
		Words:          []adapters.OCRWord{{Word: "quarterly", Width: 10, Height: 10}},
	}}
	embed := &adapters.FakeEmbeddings{}

	p := New(Config{Languages: "eng", MinTextLength: 5, Workers: 1, AIEnabled: true, EmbeddingModel: "test-embed", ChunkMaxTokens: 512}, st, ocr, embed)

	p.process(context.Background(), Job{ScreenshotID: id, Monitors: []MonitorImage{
		{MonitorCaptureID: monitorIDs[0], Image: &types.Image{Width: 1, Height: 1, Pix: make([]byte, 4)}},
	}})

	results, err := st.GetOCRResultsForScreenshot(id)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "quarterly budget review spreadsheet open in editor", results[0].Text)

	vecs, err := st.AllEmbeddings("test-embed")
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestProcessSkipsReembeddingUnchangedText(t *testing.T) {
	st := openTestStore(t)
	id, monitorIDs, err := st.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: time.Now(), LocalDate: "2026-07-30", Width: 10, Height: 10,
		Monitors: []store.MonitorCaptureInput{{MonitorName: "DP-1", Width: 10, Height: 10}},
	})
	require.NoError(t, err)

	ocr := &adapters.FakeOCR{Result: &adapters.OCRResult{Text: "the same screen every time around here"}}
	embed := &adapters.FakeEmbeddings{}
	p := New(Config{Languages: "eng", MinTextLength: 5, Workers: 1, AIEnabled: true, EmbeddingModel: "test-embed", ChunkMaxTokens: 512}, st, ocr, embed)

	job := Job{ScreenshotID: id, Monitors: []MonitorImage{
		{MonitorCaptureID: monitorIDs[0], Image: &types.Image{Width: 1, Height: 1, Pix: make([]byte, 4)}},
	}}
	p.process(context.Background(), job)
	p.process(context.Background(), job)

	vecs, err := st.AllEmbeddings("test-embed")
	require.NoError(t, err)
	require.Len(t, vecs, 1, "second run with identical text must not re-embed")
}
