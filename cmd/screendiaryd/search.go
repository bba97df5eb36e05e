package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/config"
	"github.com/screendiary/screendiary/internal/search"
	"github.com/screendiary/screendiary/internal/store"
)

func newSearchCmd() *cobra.Command {
	var semantic bool
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search recorded OCR text lexically or semantically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), args[0], semantic, limit)
		},
	}
	cmd.Flags().BoolVar(&semantic, "semantic", false, "use embedding-based semantic search instead of lexical")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

func runSearch(ctx context.Context, query string, semantic bool, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("search: loading config: %w", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("search: opening catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	if !semantic {
		hits, err := search.Lexical(st, query, limit)
		if err != nil {
			return fmt.Errorf("search: lexical query: %w", err)
		}
		for _, h := range hits {
			fmt.Printf("screenshot %d  score=%.3f  %s\n", h.ScreenshotID, h.Score, h.Snippet)
		}
		return nil
	}

	if !cfg.AI.Enabled {
		return fmt.Errorf("search: ai.enabled is false, semantic search unavailable")
	}
	embeddings := adapters.NewOpenAIEmbeddings(cfg.AI.APIBase, cfg.AI.APIKey)
	hits, err := search.Semantic(ctx, st, embeddings, cfg.AI.EmbeddingModel, query, limit)
	if err != nil {
		return fmt.Errorf("search: semantic query: %w", err)
	}
	for _, h := range hits {
		fmt.Printf("screenshot %d  score=%.3f\n", h.ScreenshotID, h.Score)
	}
	return nil
}
