// Package search implements the two query modes over stored OCR text and
// embeddings: lexical (SQLite FTS5/BM25) and semantic (cosine similarity
// over stored vectors), per spec.md section 4.H.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/store"
)

// LexicalHit is one deduplicated, ranked lexical result.
type LexicalHit struct {
	ScreenshotID uint64
	Score        float64 // -bm25, so higher is better
	Snippet      string
}

// Lexical passes query through to the full-text index verbatim apart from
// whitespace trimming, asks for bm25-ordered rows, dedupes by screenshot
// keeping the best (lowest bm25) rank, then presents with score = -bm25
// sorted descending (spec.md section 4.H).
func Lexical(st *store.Store, query string, limit int) ([]LexicalHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	hits, err := st.SearchFTS(query, limit*4) // over-fetch before screenshot-level dedup
	if err != nil {
		return nil, fmt.Errorf("search: lexical query: %w", err)
	}

	best := make(map[uint64]store.FTSHit)
	for _, h := range hits {
		cur, ok := best[h.ScreenshotID]
		if !ok || h.BM25 < cur.BM25 {
			best[h.ScreenshotID] = h
		}
	}

	out := make([]LexicalHit, 0, len(best))
	for _, h := range best {
		out = append(out, LexicalHit{ScreenshotID: h.ScreenshotID, Score: -h.BM25, Snippet: h.Snippet})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SemanticHit is one deduplicated, ranked semantic result, decorated with
// the screenshot's concatenated OCR text.
type SemanticHit struct {
	ScreenshotID uint64
	Score        float64 // cosine similarity, higher is better
	Text         string
}

// Semantic embeds the query, loads every stored vector for model, scores
// each by cosine similarity, dedupes per-screenshot by max score, sorts
// descending, and decorates the top limit with concatenated OCR text
// (spec.md section 4.H).
func Semantic(ctx context.Context, st *store.Store, embeddings adapters.EmbeddingProvider, model, query string, limit int) ([]SemanticHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	vectors, err := embeddings.Embed(ctx, model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search: embedding query: %w", err)
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, nil // embedding provider is disabled; semantic search yields nothing
	}
	queryVec := vectors[0]

	rows, err := st.AllEmbeddings(model)
	if err != nil {
		return nil, fmt.Errorf("search: loading embeddings: %w", err)
	}

	best := make(map[uint64]float64)
	for _, r := range rows {
		score := cosineSimilarity(queryVec, r.Vector)
		if cur, ok := best[r.ScreenshotID]; !ok || score > cur {
			best[r.ScreenshotID] = score
		}
	}

	ranked := make([]SemanticHit, 0, len(best))
	for id, score := range best {
		ranked = append(ranked, SemanticHit{ScreenshotID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for i := range ranked {
		results, err := st.GetOCRResultsForScreenshot(ranked[i].ScreenshotID)
		if err != nil {
			return nil, fmt.Errorf("search: hydrating screenshot %d: %w", ranked[i].ScreenshotID, err)
		}
		texts := make([]string, len(results))
		for j, r := range results {
			texts[j] = r.Text
		}
		ranked[i].Text = strings.Join(texts, "\n")
	}

	return ranked, nil
}

// cosineSimilarity is 0 when either vector has zero norm (spec.md section
// 4.H).
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
