package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertScreenshotWithText(t *testing.T, st *store.Store, text string) uint64 {
	t.Helper()
	id, monitorIDs, err := st.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: time.Now(), LocalDate: "2026-07-30", Width: 10, Height: 10,
		Monitors: []store.MonitorCaptureInput{{MonitorName: "DP-1", Width: 10, Height: 10}},
	})
	require.NoError(t, err)
	_, err = st.InsertOCRResult(id, monitorIDs[0], "eng", text, 90, nil)
	require.NoError(t, err)
	return id
}

func TestLexicalDedupesByScreenshotKeepingBestRank(t *testing.T) {
	st := openTestStore(t)
	insertScreenshotWithText(t, st, "a short note about golang channels")
	id2 := insertScreenshotWithText(t, st, "golang golang golang channels everywhere")

	hits, err := Lexical(st, "golang channels", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	seen := make(map[uint64]bool)
	for _, h := range hits {
		require.False(t, seen[h.ScreenshotID], "each screenshot must appear at most once")
		seen[h.ScreenshotID] = true
	}
	// Sorted descending by score (= -bm25).
	for i := 1; i < len(hits); i++ {
		require.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	require.Contains(t, seen, id2)
}

func TestLexicalEmptyQueryReturnsNothing(t *testing.T) {
	st := openTestStore(t)
	hits, err := Lexical(st, "   ", 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSemanticDedupesByMaxScoreAndDecoratesText(t *testing.T) {
	st := openTestStore(t)
	id := insertScreenshotWithText(t, st, "a screenshot about cats")

	embeddings := &adapters.FakeEmbeddings{Dims: 4}
	vecs, err := embeddings.Embed(context.Background(), "test-model", []string{"cats", "cats"})
	require.NoError(t, err)
	_, err = st.InsertEmbedding(id, "test-model", "hash-1", vecs[0])
	require.NoError(t, err)
	_, err = st.InsertEmbedding(id, "test-model", "hash-2", vecs[1])
	require.NoError(t, err)

	hits, err := Semantic(context.Background(), st, embeddings, "test-model", "cats", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1, "two embeddings for the same screenshot must dedupe to one hit")
	require.Equal(t, id, hits[0].ScreenshotID)
	require.Contains(t, hits[0].Text, "cats")
}

func TestSemanticDisabledProviderReturnsEmpty(t *testing.T) {
	st := openTestStore(t)
	hits, err := Semantic(context.Background(), st, disabledEmbeddings{}, "test-model", "cats", 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

// disabledEmbeddings mimics adapters.OpenAIEmbeddings after its self-disable
// latch has tripped: a nil vector per chunk, no error.
type disabledEmbeddings struct{}

func (disabledEmbeddings) Embed(ctx context.Context, model string, chunks []string) ([][]float32, error) {
	return make([][]float32, len(chunks)), nil
}
