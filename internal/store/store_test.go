package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.sqlite3")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchemaVersion(t *testing.T) {
	s := openTestStore(t)
	var v SchemaVersionModel
	require.NoError(t, s.db.First(&v, "id = 1").Error)
	require.Equal(t, CurrentSchemaVersion, v.Version)
}

func TestOpenRefusesNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.sqlite3")
	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&SchemaVersionModel{}).Where("id = 1").Update("version", CurrentSchemaVersion+1).Error)
	require.NoError(t, s.Close())

	_, err = Open(dbPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing to start")
}

func TestInsertScreenshotWithMonitorsAndWindow(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	id, monitorIDs, err := s.InsertScreenshot(CreateScreenshotInput{
		Timestamp:     now,
		LocalDate:     "2026-07-30",
		Width:         1920,
		Height:        1080,
		Similarity:    0.1,
		ThumbnailPath: "/data/thumbs/1.webp",
		Monitors: []MonitorCaptureInput{
			{MonitorName: "DP-1", MonitorIndex: 0, Width: 1920, Height: 1080, LiveFilePath: "/data/live/1-0.webp"},
		},
		Window: &WindowEventInput{
			Timestamp: now, AppClass: "code", AppName: "VS Code", WindowTitle: "main.go",
		},
	})
	require.NoError(t, err)
	require.NotZero(t, id)
	require.Len(t, monitorIDs, 1)

	captures, err := s.GetMonitorCaptures(id)
	require.NoError(t, err)
	require.Len(t, captures, 1)
	require.Equal(t, "/data/live/1-0.webp", captures[0].LiveFilePath)
}

func TestGetLiveScreenshotsBeforeOrdersAscending(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, _, err := s.InsertScreenshot(CreateScreenshotInput{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			LocalDate: "2026-07-30",
			Width:     1920, Height: 1080,
		})
		require.NoError(t, err)
	}

	got, err := s.GetLiveScreenshotsBefore(base.Add(10 * time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	require.True(t, got[1].Timestamp.Before(got[2].Timestamp))

	none, err := s.GetLiveScreenshotsBefore(base)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpdateMonitorCapturesArchivedFlipsScreenshotWhenComplete(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	id, monitorIDs, err := s.InsertScreenshot(CreateScreenshotInput{
		Timestamp: now, LocalDate: "2026-07-30", Width: 1920, Height: 1080,
		Monitors: []MonitorCaptureInput{
			{MonitorName: "DP-1", MonitorIndex: 0, Width: 1920, Height: 1080, LiveFilePath: "/data/live/1-0.webp"},
		},
	})
	require.NoError(t, err)

	err = s.UpdateMonitorCapturesArchived(monitorIDs, "/data/archive/seg1.mp4", map[uint64]int64{monitorIDs[0]: 0})
	require.NoError(t, err)

	captures, err := s.GetMonitorCaptures(id)
	require.NoError(t, err)
	require.Equal(t, "/data/archive/seg1.mp4", captures[0].SegmentPath)
	require.Empty(t, captures[0].LiveFilePath)
	require.True(t, captures[0].IsArchived())

	shots, err := s.GetLiveScreenshotsBefore(now.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, shots, "screenshot should no longer be live once all its captures are archived")
}

func TestSearchFTSFindsAndRanksMatches(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	id1, monitorIDs1, err := s.InsertScreenshot(CreateScreenshotInput{
		Timestamp: now, LocalDate: "2026-07-30", Width: 1920, Height: 1080,
		Monitors: []MonitorCaptureInput{{MonitorName: "DP-1", MonitorIndex: 0, Width: 1920, Height: 1080}},
	})
	require.NoError(t, err)
	_, err = s.InsertOCRResult(id1, monitorIDs1[0], "eng", "quarterly budget review spreadsheet", 0.9, nil)
	require.NoError(t, err)

	id2, monitorIDs2, err := s.InsertScreenshot(CreateScreenshotInput{
		Timestamp: now.Add(time.Minute), LocalDate: "2026-07-30", Width: 1920, Height: 1080,
		Monitors: []MonitorCaptureInput{{MonitorName: "DP-1", MonitorIndex: 0, Width: 1920, Height: 1080}},
	})
	require.NoError(t, err)
	_, err = s.InsertOCRResult(id2, monitorIDs2[0], "eng", "unrelated email about lunch plans", 0.9, nil)
	require.NoError(t, err)

	hits, err := s.SearchFTS("budget", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, id1, hits[0].ScreenshotID)
	require.Contains(t, hits[0].Snippet, "<mark>")
}

func TestEmbeddingByContentHashDedup(t *testing.T) {
	s := openTestStore(t)
	id, _, err := s.InsertScreenshot(CreateScreenshotInput{Timestamp: time.Now(), LocalDate: "2026-07-30", Width: 1, Height: 1})
	require.NoError(t, err)

	vec := []float32{0.1, 0.2, 0.3}
	_, err = s.InsertEmbedding(id, "text-embedding-3-small", "hash-abc", vec)
	require.NoError(t, err)

	got, err := s.GetEmbeddingByContentHash(id, "hash-abc")
	require.NoError(t, err)
	require.Equal(t, vec, got.Vector)
}

func TestPruneSegmentsOlderThanRespectsHalfOpenBoundary(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	_, err := s.InsertVideoSegment("2026-07-29", 0, "/data/archive/seg-old.mp4", start, end, 1800, 1024)
	require.NoError(t, err)

	at, err := s.ListSegmentsOlderThan(end)
	require.NoError(t, err)
	require.Empty(t, at, "segment ending exactly at cutoff must be kept")

	after, err := s.ListSegmentsOlderThan(end.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.NoError(t, s.DeleteVideoSegment(after[0].ID))

	remaining, err := s.ListSegmentsOlderThan(end.Add(time.Second))
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestTotalStorageBytesExcludesArchivedScreenshots(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	liveID, _, err := s.InsertScreenshot(CreateScreenshotInput{
		Timestamp: now, LocalDate: "2026-07-30", Width: 1920, Height: 1080,
	})
	require.NoError(t, err)
	require.NoError(t, s.UpdateScreenshotFileSize(liveID, 1000))

	archivedID, monitorIDs, err := s.InsertScreenshot(CreateScreenshotInput{
		Timestamp: now, LocalDate: "2026-07-30", Width: 1920, Height: 1080,
		Monitors: []MonitorCaptureInput{
			{MonitorName: "DP-1", MonitorIndex: 0, Width: 1920, Height: 1080, LiveFilePath: "/data/live/2-0.webp"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.UpdateScreenshotFileSize(archivedID, 2000))
	require.NoError(t, s.UpdateMonitorCapturesArchived(monitorIDs, "/data/archive/seg1.mp4", map[uint64]int64{monitorIDs[0]: 0}))

	_, err = s.InsertVideoSegment("2026-07-30", 0, "/data/archive/seg1.mp4", now, now.Add(time.Hour), 1800, 5000)
	require.NoError(t, err)

	total, err := s.TotalStorageBytes()
	require.NoError(t, err)
	require.Equal(t, int64(1000+5000), total, "archived screenshot's stale file_size must not be double-counted once its bytes live only in the segment")
}

func TestDaySummaryUpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	require.NoError(t, s.UpsertDaySummary("2026-07-30", `{"summary":"v1"}`, "gpt-4o-mini", now, 5))
	require.NoError(t, s.UpsertDaySummary("2026-07-30", `{"summary":"v2"}`, "gpt-4o-mini", now, 7))

	got, err := s.GetDaySummary("2026-07-30")
	require.NoError(t, err)
	require.Equal(t, `{"summary":"v2"}`, got.Payload)
	require.Equal(t, 7, got.EventCount)
}

func TestGetDaySummaryMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetDaySummary("does-not-exist")
	require.NoError(t, err)
	require.Nil(t, got)
}
