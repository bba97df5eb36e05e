// Package capture drives the periodic tick → screenshot → crop → dedup →
// persist → enqueue loop (spec.md section 4.C). Grounded on the teacher's
// oauth.Manager.Start ticker-with-context-cancellation shape, extended with
// the two-goroutine "concurrently capture screenshot and window probe"
// fan-out the spec requires per tick.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/control"
	"github.com/screendiary/screendiary/internal/imageutil"
	"github.com/screendiary/screendiary/internal/pipeline"
	"github.com/screendiary/screendiary/internal/store"
	"github.com/screendiary/screendiary/internal/types"
)

// MonitorCheckInterval is the fixed tick count between topology
// re-detections; mirrors config.MonitorCheckInterval without importing the
// config package (capture only needs the bare int).
const MonitorCheckInterval = 30

// Config carries the capture-relevant subset of internal/config.Config.
type Config struct {
	IntervalSeconds     int
	SimilarityThreshold float64
	Quality             int
	ThumbnailWidth      int
	ScreenshotsDir      string
}

// Loop owns the per-monitor dedup state and cached topology between ticks.
type Loop struct {
	cfg Config

	store       *store.Store
	screenshots adapters.Screenshotter
	windowInfo  adapters.WindowInfoProvider
	browserURL  adapters.BrowserURLProvider
	topology    adapters.TopologyProvider
	pipeline    *pipeline.Pipeline
	state       *control.State

	monitors  []types.Monitor
	prevImage map[int]*types.Image

	tickCount int
	skipCount int
}

// New constructs a Loop. The topology provider is queried once immediately.
func New(cfg Config, st *store.Store, screenshots adapters.Screenshotter, windowInfo adapters.WindowInfoProvider,
	browserURL adapters.BrowserURLProvider, topology adapters.TopologyProvider, pl *pipeline.Pipeline, state *control.State) (*Loop, error) {

	l := &Loop{
		cfg: cfg, store: st, screenshots: screenshots, windowInfo: windowInfo,
		browserURL: browserURL, topology: topology, pipeline: pl, state: state,
		prevImage: make(map[int]*types.Image),
	}
	if err := l.refreshTopology(context.Background()); err != nil {
		return nil, err
	}
	return l, nil
}

// SkipCount reports how many ticks in a row were skipped due to dedup.
func (l *Loop) SkipCount() int { return l.skipCount }

// Run drives ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if l.state.Paused() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		start := time.Now()
		l.tick(ctx)
		l.tickCount++

		if l.tickCount%MonitorCheckInterval == 0 {
			if err := l.refreshTopology(ctx); err != nil {
				log.Warn().Err(err).Msg("capture: topology refresh failed, keeping previous layout")
			}
		}

		elapsed := time.Since(start)
		sleepFor := time.Duration(l.cfg.IntervalSeconds)*time.Second - elapsed
		if sleepFor < 0 {
			sleepFor = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepFor):
		}
	}
}

func (l *Loop) refreshTopology(ctx context.Context) error {
	monitors, err := l.topology.Monitors(ctx)
	if err != nil {
		return fmt.Errorf("capture: querying topology: %w", err)
	}

	if topologyChanged(l.monitors, monitors) {
		log.Info().Int("monitor_count", len(monitors)).Msg("capture: topology changed, clearing dedup state")
		l.prevImage = make(map[int]*types.Image)
	}
	l.monitors = monitors
	return nil
}

func topologyChanged(old, updated []types.Monitor) bool {
	if len(old) != len(updated) {
		return true
	}
	for i := range old {
		if old[i] != updated[i] {
			return true
		}
	}
	return false
}

type captureResult struct {
	image *types.Image
	err   error
}

type windowResult struct {
	probe *adapters.WindowProbe
}

func (l *Loop) tick(ctx context.Context) {
	var wg sync.WaitGroup
	var shot captureResult
	var win windowResult

	wg.Add(2)
	go func() {
		defer wg.Done()
		img, err := l.screenshots.Capture(ctx)
		shot = captureResult{image: img, err: err}
	}()
	go func() {
		defer wg.Done()
		probe, err := l.windowInfo.ActiveWindow(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("capture: window probe failed")
			return
		}
		win.probe = probe
	}()
	wg.Wait()

	if shot.err != nil {
		log.Warn().Err(shot.err).Msg("capture: screenshot failed, skipping tick")
		return
	}
	if shot.image == nil {
		// User-owned screenshot tool running, or transient empty result.
		return
	}

	now := time.Now()
	monitorImages := l.cropPerMonitor(shot.image)

	changed, similarity := l.dedupDecision(monitorImages)
	if !changed {
		l.skipCount++
		return
	}
	l.skipCount = 0

	l.persist(ctx, now, monitorImages, win.probe, similarity)

	for i, img := range monitorImages {
		l.prevImage[i] = img
	}
}

func (l *Loop) cropPerMonitor(full *types.Image) map[int]*types.Image {
	out := make(map[int]*types.Image, len(l.monitors))
	for _, m := range l.monitors {
		out[m.Index] = imageutil.Crop(full, m.OriginX, m.OriginY, m.Width, m.Height)
	}
	return out
}

// dedupDecision implements spec.md section 4.C step 3: any monitor below
// threshold similarity (or with no previous image to compare) makes the
// whole tick "changed". The reported similarity is the lowest observed
// across monitors, the one that drove the decision; 0 when any monitor had
// no previous frame to compare against.
func (l *Loop) dedupDecision(monitorImages map[int]*types.Image) (changed bool, lowestSimilarity float64) {
	lowestSimilarity = 1.0
	changed = false

	for i, img := range monitorImages {
		prev, ok := l.prevImage[i]
		if !ok {
			changed = true
			lowestSimilarity = 0
			continue
		}
		sim := imageutil.Similarity(prev, img)
		if sim < lowestSimilarity {
			lowestSimilarity = sim
		}
		if sim < l.cfg.SimilarityThreshold {
			changed = true
		}
	}
	return changed, lowestSimilarity
}

func (l *Loop) persist(ctx context.Context, ts time.Time, monitorImages map[int]*types.Image, probe *adapters.WindowProbe, similarity float64) {
	dateDir := ts.Format("2006/01/02")
	localDate := ts.Format("2006-01-02")
	timeKey := fmt.Sprintf("%s_%06d", ts.Format("150405"), ts.Nanosecond()/1000)

	dir := filepath.Join(l.cfg.ScreenshotsDir, dateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Msg("capture: creating screenshot directory failed, skipping tick")
		return
	}

	var monitorInputs []store.MonitorCaptureInput
	pipelineMonitors := make([]pipeline.MonitorImage, 0, len(monitorImages))
	var totalBytes int64
	width, height := 0, 0

	indices := sortedIndices(monitorImages)
	for _, idx := range indices {
		img := monitorImages[idx]
		m := monitorByIndex(l.monitors, idx)

		encoded, err := imageutil.EncodeWebP(img, l.qualityOrDefault())
		if err != nil {
			log.Error().Err(err).Int("monitor", idx).Msg("capture: encoding monitor frame failed")
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("monitor%d_%s.webp", idx, timeKey))
		if err := os.WriteFile(path, encoded, 0o644); err != nil {
			log.Error().Err(err).Str("path", path).Msg("capture: writing monitor frame failed")
			continue
		}
		totalBytes += int64(len(encoded))

		monitorInputs = append(monitorInputs, store.MonitorCaptureInput{
			MonitorName: m.Name, MonitorIndex: idx, OriginX: m.OriginX, OriginY: m.OriginY,
			Width: img.Width, Height: img.Height, LiveFilePath: path,
		})

		if idx == indices[0] {
			width, height = img.Width, img.Height
		}
	}

	thumbPath := ""
	if len(indices) > 0 {
		thumb := imageutil.ResizeWidth(monitorImages[indices[0]], l.thumbnailWidthOrDefault())
		if encoded, err := imageutil.EncodeWebP(thumb, 75); err == nil {
			thumbPath = filepath.Join(dir, fmt.Sprintf("thumb_%s.webp", timeKey))
			if err := os.WriteFile(thumbPath, encoded, 0o644); err != nil {
				log.Warn().Err(err).Msg("capture: writing thumbnail failed")
				thumbPath = ""
			} else {
				totalBytes += int64(len(encoded))
			}
		}
	}

	var windowInput *store.WindowEventInput
	if probe != nil {
		domain := ""
		if l.browserURL != nil {
			if d, err := l.browserURL.RecentDomain(ctx, probe.AppClass); err == nil {
				domain = d
			}
		}
		windowInput = &store.WindowEventInput{
			Timestamp: ts, AppClass: probe.AppClass, AppName: probe.AppName,
			WindowTitle: probe.WindowTitle, DesktopFileID: probe.DesktopFileID, PID: probe.PID,
			BrowserDomain: domain,
		}
	}

	screenshotID, captureIDs, err := l.store.InsertScreenshot(store.CreateScreenshotInput{
		Timestamp: ts, LocalDate: localDate, Width: width, Height: height,
		Similarity: similarity, ThumbnailPath: thumbPath, Monitors: monitorInputs, Window: windowInput,
	})
	if err != nil {
		log.Error().Err(err).Msg("capture: persisting screenshot failed")
		return
	}
	if err := l.store.UpdateScreenshotFileSize(screenshotID, totalBytes); err != nil {
		log.Error().Err(err).Msg("capture: updating file size failed")
	}

	for i, idx := range indices {
		if i >= len(captureIDs) {
			break
		}
		pipelineMonitors = append(pipelineMonitors, pipeline.MonitorImage{
			MonitorCaptureID: captureIDs[i], Image: monitorImages[idx],
		})
	}

	if l.pipeline != nil {
		l.pipeline.Submit(pipeline.Job{ScreenshotID: screenshotID, Monitors: pipelineMonitors})
	}
}

func (l *Loop) qualityOrDefault() int {
	if l.cfg.Quality <= 0 {
		return 80
	}
	return l.cfg.Quality
}

func (l *Loop) thumbnailWidthOrDefault() int {
	if l.cfg.ThumbnailWidth <= 0 {
		return 320
	}
	return l.cfg.ThumbnailWidth
}

func sortedIndices(m map[int]*types.Image) []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func monitorByIndex(monitors []types.Monitor, idx int) types.Monitor {
	for _, m := range monitors {
		if m.Index == idx {
			return m
		}
	}
	return types.Monitor{Index: idx}
}
