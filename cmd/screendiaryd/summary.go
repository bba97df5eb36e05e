package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/screendiary/screendiary/internal/activity"
	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/config"
	"github.com/screendiary/screendiary/internal/store"
	"github.com/screendiary/screendiary/internal/types"
)

// summaryPayload is the wire shape persisted in DaySummary.Payload; the
// domain-level activity.Summary stays free of serialization tags.
type summaryPayload struct {
	Summary string        `json:"summary"`
	Blocks  []blockPayload `json:"blocks"`
}

type blockPayload struct {
	TimeRange       string `json:"time_range"`
	DurationMinutes int    `json:"duration_minutes"`
	Label           string `json:"label"`
	Description     string `json:"description"`
	Category        string `json:"category"`
}

func newBlockPayloads(blocks []types.NarrativeBlock) []blockPayload {
	out := make([]blockPayload, len(blocks))
	for i, b := range blocks {
		out[i] = blockPayload{
			TimeRange: b.TimeRange, DurationMinutes: b.DurationMinutes,
			Label: b.Label, Description: b.Description, Category: b.Category,
		}
	}
	return out
}

func newSummaryCmd() *cobra.Command {
	var date string
	var motd bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Generate and store the AI narrative for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			return runSummary(cmd.Context(), date, motd)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to summarize (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&motd, "motd", false, "also generate the short motivational line")
	return cmd
}

func runSummary(ctx context.Context, date string, wantMotd bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("summary: loading config: %w", err)
	}
	if !cfg.AI.Enabled {
		return fmt.Errorf("summary: ai.enabled is false in config")
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("summary: opening catalog: %w", err)
	}
	defer func() { _ = st.Close() }()

	events, err := st.GetWindowEventsForDate(date)
	if err != nil {
		return fmt.Errorf("summary: loading window events: %w", err)
	}

	sessions := activity.MergeSessions(events, 0)
	breaks := activity.DetectBreaks(sessions, 0)
	metrics := activity.ComputeMetrics(sessions, breaks)

	chat := adapters.NewOpenAIChat(cfg.AI.APIBase, cfg.AI.APIKey)

	summary, err := activity.GenerateSummary(ctx, chat, cfg.AI.ChatModel, sessions, metrics)
	if err != nil {
		return fmt.Errorf("summary: generating narrative: %w", err)
	}

	payload, err := json.Marshal(summaryPayload{Summary: summary.Text, Blocks: newBlockPayloads(summary.Blocks)})
	if err != nil {
		return fmt.Errorf("summary: marshaling payload: %w", err)
	}
	if err := st.UpsertDaySummary(date, string(payload), cfg.AI.ChatModel, time.Now(), len(events)); err != nil {
		return fmt.Errorf("summary: storing narrative: %w", err)
	}
	fmt.Println(string(payload))

	if wantMotd {
		motd, err := activity.GenerateMotd(ctx, chat, cfg.AI.ChatModel, summary.Text, time.Now())
		if err != nil {
			return fmt.Errorf("summary: generating motd: %w", err)
		}
		if err := st.UpsertDaySummary("motd_"+date, motd, cfg.AI.ChatModel, time.Now(), len(events)); err != nil {
			return fmt.Errorf("summary: storing motd: %w", err)
		}
		fmt.Println(motd)
	}

	return nil
}
