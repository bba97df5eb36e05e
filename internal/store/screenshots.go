package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/screendiary/screendiary/internal/types"
)

// CreateScreenshotInput bundles a new tick's rows; InsertScreenshot commits
// them in the ordering spec.md section 5 requires: Screenshot ->
// MonitorCapture(s) -> WindowEvent.
type CreateScreenshotInput struct {
	Timestamp time.Time
	LocalDate string
	Width     int
	Height    int
	Similarity float64
	ThumbnailPath string
	Monitors  []MonitorCaptureInput
	Window    *WindowEventInput
}

type MonitorCaptureInput struct {
	MonitorName      string
	MonitorIndex     int
	OriginX, OriginY int
	Width, Height    int
	LiveFilePath     string
}

type WindowEventInput struct {
	Timestamp     time.Time
	AppClass      string
	AppName       string
	WindowTitle   string
	DesktopFileID string
	PID           int
	BrowserDomain string
}

// InsertScreenshot persists one accepted tick and returns the screenshot ID
// plus the created monitor-capture IDs in input order.
func (s *Store) InsertScreenshot(in CreateScreenshotInput) (uint64, []uint64, error) {
	row := ScreenshotModel{
		Timestamp:       in.Timestamp,
		LocalDate:       in.LocalDate,
		Width:           in.Width,
		Height:          in.Height,
		DedupSimilarity: in.Similarity,
		StorageType:     string(types.StorageLive),
		ThumbnailPath:   in.ThumbnailPath,
	}

	var monitorIDs []uint64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		for _, m := range in.Monitors {
			mc := MonitorCaptureModel{
				ScreenshotID: row.ID,
				MonitorName:  m.MonitorName,
				MonitorIndex: m.MonitorIndex,
				OriginX:      m.OriginX,
				OriginY:      m.OriginY,
				Width:        m.Width,
				Height:       m.Height,
				LiveFilePath: m.LiveFilePath,
			}
			if err := tx.Create(&mc).Error; err != nil {
				return err
			}
			monitorIDs = append(monitorIDs, mc.ID)
		}

		if in.Window != nil {
			we := WindowEventModel{
				ScreenshotID:  row.ID,
				Timestamp:     in.Window.Timestamp,
				AppClass:      in.Window.AppClass,
				AppName:       in.Window.AppName,
				WindowTitle:   in.Window.WindowTitle,
				DesktopFileID: in.Window.DesktopFileID,
				PID:           in.Window.PID,
				BrowserDomain: in.Window.BrowserDomain,
			}
			if err := tx.Create(&we).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return row.ID, monitorIDs, nil
}

// UpdateScreenshotFileSize sets the aggregate byte size after all monitor
// files for a tick have been written (spec.md section 4.C step 4).
func (s *Store) UpdateScreenshotFileSize(screenshotID uint64, totalBytes int64) error {
	return s.db.Model(&ScreenshotModel{}).Where("id = ?", screenshotID).
		Update("file_size", totalBytes).Error
}

// GetLiveScreenshotsBefore returns live screenshots older than cutoff, in
// ascending timestamp order (spec.md section 4.B).
func (s *Store) GetLiveScreenshotsBefore(cutoff time.Time) ([]types.Screenshot, error) {
	var rows []ScreenshotModel
	err := s.db.Where("storage_type = ? AND timestamp < ?", string(types.StorageLive), cutoff).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]types.Screenshot, len(rows))
	for i, r := range rows {
		out[i] = toDomainScreenshot(r)
	}
	return out, nil
}

// GetWindowEventsForDate returns every WindowEvent whose owning screenshot
// falls on localDate, in chronological order, the input merge_sessions
// consumes (spec.md section 4.G).
func (s *Store) GetWindowEventsForDate(localDate string) ([]types.WindowEvent, error) {
	var rows []WindowEventModel
	err := s.db.Joins("JOIN screenshots ON screenshots.id = window_events.screenshot_id").
		Where("screenshots.local_date = ?", localDate).
		Order("window_events.timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.WindowEvent, len(rows))
	for i, r := range rows {
		out[i] = types.WindowEvent{
			ID: r.ID, ScreenshotID: r.ScreenshotID, Timestamp: r.Timestamp,
			AppClass: r.AppClass, AppName: r.AppName, WindowTitle: r.WindowTitle,
			DesktopFileID: r.DesktopFileID, PID: r.PID, BrowserDomain: r.BrowserDomain,
		}
	}
	return out, nil
}

// GetMonitorCaptures returns the monitor captures belonging to a screenshot,
// ordered by monitor index.
func (s *Store) GetMonitorCaptures(screenshotID uint64) ([]types.MonitorCapture, error) {
	var rows []MonitorCaptureModel
	if err := s.db.Where("screenshot_id = ?", screenshotID).Order("monitor_index ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.MonitorCapture, len(rows))
	for i, r := range rows {
		out[i] = toDomainMonitorCapture(r)
	}
	return out, nil
}

// GetMonitorCapture fetches a single monitor capture by id.
func (s *Store) GetMonitorCapture(id uint64) (*types.MonitorCapture, error) {
	var row MonitorCaptureModel
	if err := s.db.First(&row, id).Error; err != nil {
		return nil, err
	}
	mc := toDomainMonitorCapture(row)
	return &mc, nil
}

func toDomainScreenshot(r ScreenshotModel) types.Screenshot {
	return types.Screenshot{
		ID:              r.ID,
		Timestamp:       r.Timestamp,
		LocalDate:       r.LocalDate,
		Width:           r.Width,
		Height:          r.Height,
		FileSize:        r.FileSize,
		DedupSimilarity: r.DedupSimilarity,
		StorageType:     types.StorageTier(r.StorageType),
		ThumbnailPath:   r.ThumbnailPath,
	}
}

func toDomainMonitorCapture(r MonitorCaptureModel) types.MonitorCapture {
	return types.MonitorCapture{
		ID:              r.ID,
		ScreenshotID:    r.ScreenshotID,
		MonitorName:     r.MonitorName,
		MonitorIndex:    r.MonitorIndex,
		OriginX:         r.OriginX,
		OriginY:         r.OriginY,
		Width:           r.Width,
		Height:          r.Height,
		LiveFilePath:    r.LiveFilePath,
		SegmentPath:     r.SegmentPath,
		SegmentOffsetMs: r.SegmentOffsetMs,
	}
}
