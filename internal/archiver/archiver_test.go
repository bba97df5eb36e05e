package archiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/store"
)

func newTestArchiver(t *testing.T, cfg Config, encoder adapters.Encoder) (*Archiver, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalog.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	a, err := New(cfg, st, encoder)
	require.NoError(t, err)
	return a, st
}

func writeLiveFrame(t *testing.T, dir string, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("frame-bytes"), 0o644))
	return path
}

func TestArchiveGroupReencodesAndRepoints(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ArchiveAfterMinutes: 1, SegmentDurationMinutes: 5, IntervalSeconds: 2,
		H265CRF: 28, H265Preset: "medium", ArchiveDir: filepath.Join(dir, "archive"), ScratchDir: dir,
	}

	encoder := &fakeEncoderWithOutput{}
	a, st := newTestArchiver(t, cfg, encoder)

	base := time.Now().Add(-20 * time.Minute).Truncate(5 * time.Minute)
	id, monitorIDs, err := st.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: base, LocalDate: base.Format("2006-01-02"), Width: 10, Height: 10,
		Monitors: []store.MonitorCaptureInput{{MonitorName: "DP-1", MonitorIndex: 0, Width: 10, Height: 10, LiveFilePath: writeLiveFrame(t, dir, "live1.webp")}},
	})
	require.NoError(t, err)
	_ = monitorIDs

	require.NoError(t, a.RunCycle(context.Background()))

	captures, err := st.GetMonitorCaptures(id)
	require.NoError(t, err)
	require.Len(t, captures, 1)
	require.Empty(t, captures[0].LiveFilePath)
	require.NotEmpty(t, captures[0].SegmentPath)
	require.True(t, captures[0].IsArchived())

	shots, err := st.GetLiveScreenshotsBefore(time.Now())
	require.NoError(t, err)
	require.Empty(t, shots)
}

func TestArchiveGroupNotEligibleBeforeSegmentEnds(t *testing.T) {
	dir := t.TempDir()
	// archive_after_minutes=0 puts the cutoff at "now", but the screenshot's
	// own 5-minute segment window still extends past "now" -- not eligible
	// until strictly past its own end (spec.md section 4.E/8).
	cfg := Config{
		ArchiveAfterMinutes: 0, SegmentDurationMinutes: 5, IntervalSeconds: 2,
		H265CRF: 28, H265Preset: "medium", ArchiveDir: filepath.Join(dir, "archive"), ScratchDir: dir,
	}
	encoder := &fakeEncoderWithOutput{}
	a, st := newTestArchiver(t, cfg, encoder)

	now := time.Now()
	_, _, err := st.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: now, LocalDate: now.Format("2006-01-02"), Width: 10, Height: 10,
		Monitors: []store.MonitorCaptureInput{{MonitorName: "DP-1", MonitorIndex: 0, Width: 10, Height: 10, LiveFilePath: writeLiveFrame(t, dir, "live2.webp")}},
	})
	require.NoError(t, err)

	require.NoError(t, a.RunCycle(context.Background()))
	require.Equal(t, 0, encoder.Calls, "a segment whose end time is still in the future must not be encoded")
}

func TestPruneOldSegmentsEnforcesBudget(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{MaxStorageGB: 1, ArchiveDir: dir, ScratchDir: dir}
	a, st := newTestArchiver(t, cfg, &fakeEncoderWithOutput{})

	oldPath := filepath.Join(dir, "old.mp4")
	newPath := filepath.Join(dir, "new.mp4")
	require.NoError(t, os.WriteFile(oldPath, make([]byte, 700*1024*1024), 0o644))
	require.NoError(t, os.WriteFile(newPath, make([]byte, 700*1024*1024), 0o644))

	now := time.Now()
	_, err := st.InsertVideoSegment("2026-07-28", 0, oldPath, now.Add(-2*time.Hour), now.Add(-90*time.Minute), 100, 700*1024*1024)
	require.NoError(t, err)
	_, err = st.InsertVideoSegment("2026-07-29", 0, newPath, now.Add(-1*time.Hour), now.Add(-30*time.Minute), 100, 700*1024*1024)
	require.NoError(t, err)

	require.NoError(t, a.pruneOldSegments())

	_, err = os.Stat(oldPath)
	require.True(t, os.IsNotExist(err), "oldest segment's file must be deleted")
	_, err = os.Stat(newPath)
	require.NoError(t, err, "newer segment must be preserved")

	remaining, err := st.OldestSegment()
	require.NoError(t, err)
	require.NotNil(t, remaining)
	require.Equal(t, newPath, remaining.FilePath)
}

// fakeEncoderWithOutput writes a non-empty file at outputPath so the
// archiver's os.Stat(outputPath) call after Encode succeeds.
type fakeEncoderWithOutput struct {
	Calls int
}

func (f *fakeEncoderWithOutput) Encode(ctx context.Context, framePattern, outputPath string, framerate float64, crf int, preset string) error {
	f.Calls++
	return os.WriteFile(outputPath, []byte("encoded-segment"), 0o644)
}
