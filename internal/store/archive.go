package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/screendiary/screendiary/internal/types"
)

// InsertVideoSegment records one freshly encoded H.265 segment.
func (s *Store) InsertVideoSegment(date string, monitor int, filePath string, start, end time.Time, frameCount int, fileSize int64) (uint64, error) {
	row := VideoSegmentModel{
		Date:       date,
		Monitor:    monitor,
		FilePath:   filePath,
		StartTime:  start,
		EndTime:    end,
		FrameCount: frameCount,
		FileSize:   fileSize,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// GetVideoSegment fetches one segment by id.
func (s *Store) GetVideoSegment(id uint64) (*types.VideoSegment, error) {
	var r VideoSegmentModel
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, err
	}
	return &types.VideoSegment{
		ID: r.ID, Date: r.Date, Monitor: r.Monitor, FilePath: r.FilePath,
		StartTime: r.StartTime, EndTime: r.EndTime, FrameCount: r.FrameCount, FileSize: r.FileSize,
	}, nil
}

// UpdateMonitorCapturesArchived atomically re-points a batch of monitor
// captures at an encoded segment, clears their live file path, and flips the
// owning screenshots' storage_type to "archived" once every monitor capture
// for that screenshot has been re-pointed (spec.md section 4.B,
// "update_*_archived": atomically flips storage_type, sets segment
// reference, clears live filepath).
func (s *Store) UpdateMonitorCapturesArchived(captureIDs []uint64, segmentPath string, offsets map[uint64]int64) error {
	if len(captureIDs) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var captures []MonitorCaptureModel
		if err := tx.Where("id IN ?", captureIDs).Find(&captures).Error; err != nil {
			return err
		}

		screenshotIDs := make(map[uint64]struct{}, len(captures))
		for _, c := range captures {
			screenshotIDs[c.ScreenshotID] = struct{}{}
			if err := tx.Model(&MonitorCaptureModel{}).Where("id = ?", c.ID).Updates(map[string]any{
				"segment_path":      segmentPath,
				"segment_offset_ms": offsets[c.ID],
				"live_file_path":    "",
			}).Error; err != nil {
				return err
			}
		}

		for sid := range screenshotIDs {
			var remaining int64
			if err := tx.Model(&MonitorCaptureModel{}).
				Where("screenshot_id = ? AND live_file_path != ''", sid).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.Model(&ScreenshotModel{}).Where("id = ?", sid).
					Update("storage_type", string(types.StorageArchived)).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ListSegmentsOlderThan returns video segments whose EndTime is strictly
// before cutoff, oldest first. Rows with EndTime == cutoff are excluded,
// matching the half-open interval the segment itself uses (spec.md section
// 8, "Segment whose end_time equals cutoff: not eligible until strictly
// less than cutoff").
func (s *Store) ListSegmentsOlderThan(cutoff time.Time) ([]types.VideoSegment, error) {
	var rows []VideoSegmentModel
	if err := s.db.Where("end_time < ?", cutoff).Order("end_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.VideoSegment, len(rows))
	for i, r := range rows {
		out[i] = types.VideoSegment{
			ID: r.ID, Date: r.Date, Monitor: r.Monitor, FilePath: r.FilePath,
			StartTime: r.StartTime, EndTime: r.EndTime, FrameCount: r.FrameCount, FileSize: r.FileSize,
		}
	}
	return out, nil
}

// OldestSegment returns the single oldest video segment by EndTime, or nil
// if none exist, for the archiver's storage-budget prune loop.
func (s *Store) OldestSegment() (*types.VideoSegment, error) {
	var r VideoSegmentModel
	err := s.db.Order("end_time ASC").First(&r).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &types.VideoSegment{
		ID: r.ID, Date: r.Date, Monitor: r.Monitor, FilePath: r.FilePath,
		StartTime: r.StartTime, EndTime: r.EndTime, FrameCount: r.FrameCount, FileSize: r.FileSize,
	}, nil
}

// DeleteVideoSegment removes only the segment's row. Screenshots and
// monitor captures that pointed at it keep their segment_path reference
// dangling; this mirrors the original system's behavior, which the
// specification preserves without resolving whether it is intentional
// (spec.md section 9, open question 1). The archiver is responsible for
// unlinking the underlying file before calling this.
func (s *Store) DeleteVideoSegment(id uint64) error {
	return s.db.Delete(&VideoSegmentModel{}, id).Error
}

// TotalStorageBytes sums live screenshot file sizes and segment file sizes,
// the figure the archiver compares against max_storage_gb (spec.md section
// 4.C). Archived screenshots have their webp files deleted once their
// rows are re-pointed at a segment (see archiver.go), so this must only
// count rows still of storage_type "live" — matching
// db.py:get_total_storage_bytes's "WHERE storage_type = 'live'" filter —
// or the budget check would keep counting bytes that no longer exist on
// disk.
func (s *Store) TotalStorageBytes() (int64, error) {
	var liveBytes, archivedBytes int64
	if err := s.db.Model(&ScreenshotModel{}).
		Where("storage_type = ?", string(types.StorageLive)).
		Select("COALESCE(SUM(file_size), 0)").Scan(&liveBytes).Error; err != nil {
		return 0, err
	}
	if err := s.db.Model(&VideoSegmentModel{}).Select("COALESCE(SUM(file_size), 0)").Scan(&archivedBytes).Error; err != nil {
		return 0, err
	}
	return liveBytes + archivedBytes, nil
}
