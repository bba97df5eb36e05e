package store

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/screendiary/screendiary/internal/types"
)

// UpsertDaySummary stores (or replaces) the narrative/motd payload for a key.
func (s *Store) UpsertDaySummary(key, payload, model string, timestamp time.Time, eventCount int) error {
	row := DaySummaryModel{
		Key: key, Payload: payload, Model: model, Timestamp: timestamp, EventCount: eventCount,
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// GetDaySummary returns the stored summary for key, if any.
func (s *Store) GetDaySummary(key string) (*types.DaySummary, error) {
	var r DaySummaryModel
	err := s.db.First(&r, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &types.DaySummary{
		Key: r.Key, Payload: r.Payload, Model: r.Model, Timestamp: r.Timestamp, EventCount: r.EventCount,
	}, nil
}
