package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/types"
)

func TestCompactSessionsMergesCloseSameCategoryNeighbours(t *testing.T) {
	start := mustParse(t, "2026-07-28T07:00:00")
	sessions := []types.ActivitySession{
		{Category: "coding", AppClass: "code", Start: start, End: start.Add(10 * time.Minute)},
		{Category: "coding", AppClass: "code", Start: start.Add(13 * time.Minute), End: start.Add(20 * time.Minute)}, // 3min gap < 5min
	}
	compacted := CompactSessions(sessions)
	require.Len(t, compacted, 1)
	require.Equal(t, start, compacted[0].Start)
	require.Equal(t, start.Add(20*time.Minute), compacted[0].End)
}

func TestCompactSessionsAbsorbsMicroSessionLeftwards(t *testing.T) {
	start := mustParse(t, "2026-07-28T07:00:00")
	sessions := []types.ActivitySession{
		{Category: "coding", Start: start, End: start.Add(10 * time.Minute)},
		{Category: "browser", Start: start.Add(10*time.Minute + 10*time.Minute), End: start.Add(10*time.Minute + 10*time.Minute).Add(10 * time.Second)},
	}
	compacted := CompactSessions(sessions)
	require.Len(t, compacted, 1)
	require.Equal(t, "coding", compacted[0].Category)
}

func TestCompactSessionsCapsAbsorbedTitlesAtEight(t *testing.T) {
	start := mustParse(t, "2026-07-28T07:00:00")
	sessions := []types.ActivitySession{
		{Category: "coding", AppClass: "code", Start: start, End: start.Add(time.Minute), WindowTitles: []string{"a", "b", "c", "d", "e", "f", "g", "h"}},
		{Category: "coding", AppClass: "code", Start: start.Add(2 * time.Minute), End: start.Add(3 * time.Minute), WindowTitles: []string{"i", "j"}},
	}
	compacted := CompactSessions(sessions)
	require.Len(t, compacted, 1)
	require.Len(t, compacted[0].WindowTitles, 8, "absorbed titles must cap at 8, matching the original's _absorb helper")
}

func TestFirstBalancedJSONExtractsLeadingObjectIgnoringTrailingNoise(t *testing.T) {
	raw := `Here is the result: {"summary": "ok", "blocks": [{"a": "}b{"}]} -- hope that helps!`
	got, ok := firstBalancedJSON(raw)
	require.True(t, ok)
	require.Equal(t, `{"summary": "ok", "blocks": [{"a": "}b{"}]}`, got)
}

func TestFirstBalancedJSONNoObjectFound(t *testing.T) {
	_, ok := firstBalancedJSON("no braces here")
	require.False(t, ok)
}

func TestRoundToNearestMultipleOf15HasFloorOf15(t *testing.T) {
	require.Equal(t, 15, roundToNearestMultipleOf15(0))
	require.Equal(t, 15, roundToNearestMultipleOf15(5))
	require.Equal(t, 15, roundToNearestMultipleOf15(22))
	require.Equal(t, 30, roundToNearestMultipleOf15(23))
	require.Equal(t, 30, roundToNearestMultipleOf15(30))
}

func TestPostprocessBlocksMergesCloseSameCategoryBlocks(t *testing.T) {
	raw := []rawBlock{
		{TimeRange: "07:00-07:20", Category: "coding", Description: "Arbeit an Feature X"},
		{TimeRange: "07:21-07:40", Category: "coding", Description: "Arbeit an Feature X"}, // 1min gap, duplicate text
		{TimeRange: "08:10-08:30", Category: "pause", Description: "Pause"},
	}
	blocks := postprocessBlocks(raw)
	require.Len(t, blocks, 2)
	require.Equal(t, "07:00-07:40", blocks[0].TimeRange)
	require.Equal(t, "Arbeit an Feature X.", blocks[0].Description)
	require.Equal(t, 45, blocks[0].DurationMinutes) // 40min rounds to 45
	require.Equal(t, "pause", blocks[1].Category)
}

func TestGenerateSummaryParsesDirectJSON(t *testing.T) {
	chat := adapters.FakeChat{Response: `{"summary": "Ein produktiver Tag.", "blocks": [{"time_range": "07:00-08:00", "category": "coding", "label": "Coding", "description": "Feature gebaut"}]}`}
	start := mustParse(t, "2026-07-28T07:00:00")
	sessions := []types.ActivitySession{{Category: "coding", AppClass: "code", Start: start, End: start.Add(time.Hour)}}
	metrics := ComputeMetrics(sessions, nil)

	summary, err := GenerateSummary(context.Background(), chat, "gpt-test", sessions, metrics)
	require.NoError(t, err)
	require.Equal(t, "Ein produktiver Tag.", summary.Text)
	require.Len(t, summary.Blocks, 1)
	require.Equal(t, "07:00-08:00", summary.Blocks[0].TimeRange)
}

func TestGenerateSummarySalvagesFirstBalancedObjectOnMalformedResponse(t *testing.T) {
	chat := adapters.FakeChat{Response: `Sure, here you go: {"summary": "Kurzer Tag.", "blocks": []} Hope this helps.`}
	summary, err := GenerateSummary(context.Background(), chat, "gpt-test", nil, types.DayMetrics{})
	require.NoError(t, err)
	require.Equal(t, "Kurzer Tag.", summary.Text)
}

func TestGenerateMotdGreetsByHourAndRejectsDurationMentions(t *testing.T) {
	chat := adapters.FakeChat{Response: `{"motd": "Guten Morgen! Du hast heute 3 Stunden programmiert."}`}
	motd, err := GenerateMotd(context.Background(), chat, "gpt-test", "summary text", time.Date(2026, 7, 28, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "Guten Morgen!", motd)
}

func TestGenerateMotdPassesThroughCleanResponse(t *testing.T) {
	chat := adapters.FakeChat{Response: `{"motd": "Ein guter Tag liegt hinter dir, mach weiter so!"}`}
	motd, err := GenerateMotd(context.Background(), chat, "gpt-test", "summary text", time.Date(2026, 7, 28, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "Ein guter Tag liegt hinter dir, mach weiter so!", motd)
}

func TestGenerateMotdSalvagesMotdFromNoisyResponse(t *testing.T) {
	chat := adapters.FakeChat{Response: `Sure: {"motd": "Guten Morgen! Weiter so."} -- done`}
	motd, err := GenerateMotd(context.Background(), chat, "gpt-test", "summary text", time.Date(2026, 7, 28, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "Guten Morgen! Weiter so.", motd)
}
