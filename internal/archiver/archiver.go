// Package archiver migrates aged live frames into time-segmented H.265
// video files, re-points database pointers atomically, and enforces the
// storage budget (spec.md section 4.E). Scheduling follows the teacher's
// gocron/v2 controller/knowledge reconciler, swapping its cron-expression
// jobs for a fixed-cadence DurationJob.
package archiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/store"
	"github.com/screendiary/screendiary/internal/types"
)

const cycleInterval = 60 * time.Second

// Config carries the archiver-relevant subset of internal/config.Config.
type Config struct {
	ArchiveAfterMinutes    int
	SegmentDurationMinutes int
	IntervalSeconds        int // capture.interval, used to derive framerate and offsets
	H265CRF                int
	H265Preset             string
	MaxStorageGB           float64
	ArchiveDir             string
	ScratchDir             string
}

// Archiver owns the gocron scheduler driving the 60s archive cycle.
type Archiver struct {
	cfg     Config
	store   *store.Store
	encoder adapters.Encoder
	cron    gocron.Scheduler
}

// New constructs an Archiver; call Start to begin the scheduled cycle.
func New(cfg Config, st *store.Store, encoder adapters.Encoder) (*Archiver, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("archiver: creating scheduler: %w", err)
	}
	return &Archiver{cfg: cfg, store: st, encoder: encoder, cron: sched}, nil
}

// Start registers the recurring archive cycle and begins the scheduler.
func (a *Archiver) Start(ctx context.Context) error {
	_, err := a.cron.NewJob(
		gocron.DurationJob(cycleInterval),
		gocron.NewTask(func() {
			if err := a.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("archiver: cycle failed")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("archiver: scheduling cycle: %w", err)
	}
	a.cron.Start()
	return nil
}

// Shutdown stops the scheduler, letting any in-flight cycle finish.
func (a *Archiver) Shutdown() error {
	return a.cron.Shutdown()
}

type group struct {
	date         string
	segmentStart time.Time
	monitorIndex int
	captures     []types.MonitorCapture
	timestamps   map[uint64]time.Time
}

// RunCycle performs one archive pass: group eligible live screenshots,
// encode each group, re-point rows, then enforce the storage budget.
func (a *Archiver) RunCycle(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(a.cfg.ArchiveAfterMinutes) * time.Minute)

	shots, err := a.store.GetLiveScreenshotsBefore(cutoff)
	if err != nil {
		return fmt.Errorf("archiver: listing live screenshots: %w", err)
	}
	if len(shots) == 0 {
		return a.pruneOldSegments()
	}

	groups, err := a.buildGroups(shots, cutoff)
	if err != nil {
		return err
	}

	for _, g := range groups {
		if err := a.archiveGroup(ctx, g); err != nil {
			log.Error().Err(err).Str("date", g.date).Int("monitor", g.monitorIndex).
				Time("segment_start", g.segmentStart).Msg("archiver: group failed, skipping")
		}
	}

	return a.pruneOldSegments()
}

// segmentKey floors ts to the segment_duration_minutes boundary (spec.md
// section 4.E, "segment_start_key").
func (a *Archiver) segmentKey(ts time.Time) time.Time {
	d := time.Duration(a.cfg.SegmentDurationMinutes) * time.Minute
	return ts.Truncate(d)
}

func (a *Archiver) buildGroups(shots []types.Screenshot, cutoff time.Time) ([]*group, error) {
	index := make(map[string]*group)
	var order []string
	segDuration := time.Duration(a.cfg.SegmentDurationMinutes) * time.Minute

	for _, shot := range shots {
		captures, err := a.store.GetMonitorCaptures(shot.ID)
		if err != nil {
			return nil, fmt.Errorf("archiver: listing monitor captures for screenshot %d: %w", shot.ID, err)
		}
		segStart := a.segmentKey(shot.Timestamp)
		segEnd := segStart.Add(segDuration)
		if segEnd.After(cutoff) {
			// Not eligible: the segment hasn't fully elapsed yet (spec.md
			// section 4.E, "no open-ended trailing encodes").
			continue
		}

		for _, c := range captures {
			if c.LiveFilePath == "" {
				continue
			}
			key := fmt.Sprintf("%s|%d|%d", shot.LocalDate, segStart.Unix(), c.MonitorIndex)
			g, ok := index[key]
			if !ok {
				g = &group{
					date: shot.LocalDate, segmentStart: segStart, monitorIndex: c.MonitorIndex,
					timestamps: make(map[uint64]time.Time),
				}
				index[key] = g
				order = append(order, key)
			}
			g.captures = append(g.captures, c)
			g.timestamps[c.ID] = shot.Timestamp
		}
	}

	groups := make([]*group, 0, len(order))
	for _, key := range order {
		g := index[key]
		sort.Slice(g.captures, func(i, j int) bool {
			return g.timestamps[g.captures[i].ID].Before(g.timestamps[g.captures[j].ID])
		})
		groups = append(groups, g)
	}
	return groups, nil
}

func (a *Archiver) archiveGroup(ctx context.Context, g *group) error {
	if len(g.captures) == 0 {
		return nil
	}

	scratchDir := filepath.Join(a.cfg.ScratchDir, "archive-"+uuid.New().String())
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	for i, c := range g.captures {
		link := filepath.Join(scratchDir, fmt.Sprintf("frame_%04d.webp", i))
		if err := os.Symlink(c.LiveFilePath, link); err != nil {
			return fmt.Errorf("symlinking frame %d: %w", i, err)
		}
	}

	outDir := filepath.Join(a.cfg.ArchiveDir, g.date[:4], g.date[5:7], g.date[8:10])
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	start := g.timestamps[g.captures[0].ID]
	end := g.timestamps[g.captures[len(g.captures)-1].ID]
	outPath := filepath.Join(outDir, fmt.Sprintf("monitor%d_%s-%s.mp4", g.monitorIndex, start.Format("1504"), end.Format("1504")))

	framerate := 1.0
	if a.cfg.IntervalSeconds > 0 {
		framerate = 1.0 / float64(a.cfg.IntervalSeconds)
	}

	framePattern := filepath.Join(scratchDir, "frame_%04d.webp")
	if err := a.encoder.Encode(ctx, framePattern, outPath, framerate, a.cfg.H265CRF, a.cfg.H265Preset); err != nil {
		return fmt.Errorf("encoding segment: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return fmt.Errorf("stat encoded segment: %w", err)
	}

	segEnd := g.segmentStart.Add(time.Duration(a.cfg.SegmentDurationMinutes) * time.Minute)
	if _, err := a.store.InsertVideoSegment(g.date, g.monitorIndex, outPath, g.segmentStart, segEnd, len(g.captures), info.Size()); err != nil {
		return fmt.Errorf("inserting video segment row: %w", err)
	}

	offsets := make(map[uint64]int64, len(g.captures))
	captureIDs := make([]uint64, len(g.captures))
	for i, c := range g.captures {
		offsets[c.ID] = int64(i) * int64(a.cfg.IntervalSeconds) * 1000
		captureIDs[i] = c.ID
	}
	if err := a.store.UpdateMonitorCapturesArchived(captureIDs, outPath, offsets); err != nil {
		return fmt.Errorf("re-pointing monitor captures: %w", err)
	}

	for _, c := range g.captures {
		if err := os.Remove(c.LiveFilePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", c.LiveFilePath).Msg("archiver: removing live frame failed")
		}
	}
	return nil
}

// pruneOldSegments deletes the oldest segment's file and row while total
// storage exceeds max_storage_gb (spec.md section 4.E).
func (a *Archiver) pruneOldSegments() error {
	if a.cfg.MaxStorageGB <= 0 {
		return nil
	}
	budgetBytes := int64(a.cfg.MaxStorageGB * 1024 * 1024 * 1024)

	for {
		total, err := a.store.TotalStorageBytes()
		if err != nil {
			return fmt.Errorf("archiver: computing total storage: %w", err)
		}
		if total <= budgetBytes {
			return nil
		}

		seg, err := a.store.OldestSegment()
		if err != nil {
			return fmt.Errorf("archiver: finding oldest segment: %w", err)
		}
		if seg == nil {
			return nil
		}
		if err := os.Remove(seg.FilePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", seg.FilePath).Msg("archiver: removing segment file failed")
		}
		if err := a.store.DeleteVideoSegment(seg.ID); err != nil {
			return fmt.Errorf("archiver: deleting segment row: %w", err)
		}
		log.Info().Str("path", seg.FilePath).Msg("archiver: pruned oldest segment to stay under storage budget")
	}
}
