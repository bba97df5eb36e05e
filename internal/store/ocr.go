package store

import (
	"gorm.io/gorm"

	"github.com/screendiary/screendiary/internal/types"
)

// OCRWordInput is one recognized word box, in original image coordinates.
type OCRWordInput struct {
	Word                    string
	Left, Top               int
	Width, Height           int
	Confidence              float64
}

// InsertOCRResult persists one monitor capture's recognized text plus its
// word boxes in a single transaction (spec.md section 4.B).
func (s *Store) InsertOCRResult(screenshotID, monitorCaptureID uint64, language, text string, meanConfidence float64, words []OCRWordInput) (uint64, error) {
	row := OCRResultModel{
		ScreenshotID:     screenshotID,
		MonitorCaptureID: monitorCaptureID,
		Language:         language,
		Text:             text,
		MeanConfidence:   meanConfidence,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, w := range words {
			word := OCRWordModel{
				OCRResultID:      row.ID,
				MonitorCaptureID: monitorCaptureID,
				Word:             w.Word,
				Left:             w.Left,
				Top:              w.Top,
				Width:            w.Width,
				Height:           w.Height,
				Confidence:       w.Confidence,
			}
			if err := tx.Create(&word).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

// GetOCRResultsForScreenshot returns every monitor's OCR text for one tick.
func (s *Store) GetOCRResultsForScreenshot(screenshotID uint64) ([]types.OCRResult, error) {
	var rows []OCRResultModel
	if err := s.db.Where("screenshot_id = ?", screenshotID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.OCRResult, len(rows))
	for i, r := range rows {
		out[i] = types.OCRResult{
			ID:               r.ID,
			ScreenshotID:     r.ScreenshotID,
			MonitorCaptureID: r.MonitorCaptureID,
			Language:         r.Language,
			Text:             r.Text,
			MeanConfidence:   r.MeanConfidence,
		}
	}
	return out, nil
}

// GetOCRResult fetches a single OCR result row by its FTS rowid. Search
// result hydration goes through GetOCRResultsForScreenshot instead.
func (s *Store) GetOCRResult(id uint64) (*types.OCRResult, error) {
	var r OCRResultModel
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, err
	}
	return &types.OCRResult{
		ID:               r.ID,
		ScreenshotID:     r.ScreenshotID,
		MonitorCaptureID: r.MonitorCaptureID,
		Language:         r.Language,
		Text:             r.Text,
		MeanConfidence:   r.MeanConfidence,
	}, nil
}
