// Package store is the single embedded catalog database: frames, monitors,
// OCR text and word boxes, window events, embeddings, video segments, and
// day summaries (spec.md sections 3-4.B). It is grounded on the teacher's
// GORM-over-SQLite stack (gorm.io/driver/sqlite, gorm.io/gorm), with the
// WAL/busy_timeout/foreign_keys pragma convention cross-checked against the
// xg2g project's sqlite.Open helper.
package store

import "time"

// ScreenshotModel is the gorm row for one accepted capture tick.
type ScreenshotModel struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Timestamp       time.Time `gorm:"index"`
	LocalDate       string    `gorm:"index;size:10"`
	Width           int
	Height          int
	FileSize        int64
	DedupSimilarity float64
	StorageType     string `gorm:"index;size:16"` // "live" | "archived"
	ThumbnailPath   string

	MonitorCaptures []MonitorCaptureModel `gorm:"constraint:OnDelete:CASCADE"`
	WindowEvent     *WindowEventModel     `gorm:"constraint:OnDelete:CASCADE"`
	OCRResults      []OCRResultModel      `gorm:"constraint:OnDelete:CASCADE"`
	Embeddings      []EmbeddingModel      `gorm:"constraint:OnDelete:CASCADE"`
}

func (ScreenshotModel) TableName() string { return "screenshots" }

// MonitorCaptureModel is one physical monitor's frame within a Screenshot.
type MonitorCaptureModel struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	ScreenshotID     uint64 `gorm:"index"`
	MonitorName      string
	MonitorIndex     int
	OriginX, OriginY int
	Width, Height    int

	LiveFilePath string

	SegmentPath     string `gorm:"index"`
	SegmentOffsetMs int64

	OCRWords []OCRWordModel `gorm:"constraint:OnDelete:CASCADE"`
}

func (MonitorCaptureModel) TableName() string { return "monitor_captures" }

// WindowEventModel is the active-window identity for a Screenshot.
type WindowEventModel struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	ScreenshotID  uint64 `gorm:"uniqueIndex"`
	Timestamp     time.Time `gorm:"index"`
	AppClass      string    `gorm:"index"`
	AppName       string
	WindowTitle   string
	DesktopFileID string
	PID           int
	BrowserDomain string
}

func (WindowEventModel) TableName() string { return "window_events" }

// OCRResultModel is the per-monitor extracted text; the FTS5 shadow table
// ocr_fts is kept in sync via triggers installed in fts.go.
type OCRResultModel struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	ScreenshotID     uint64 `gorm:"index"`
	MonitorCaptureID uint64 `gorm:"index"`
	Language         string
	Text             string
	MeanConfidence   float64

	Words []OCRWordModel `gorm:"foreignKey:OCRResultID;constraint:OnDelete:CASCADE"`
}

func (OCRResultModel) TableName() string { return "ocr_results" }

// OCRWordModel is a single word's bounding box in original image coordinates.
type OCRWordModel struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	OCRResultID      uint64 `gorm:"index"`
	MonitorCaptureID uint64 `gorm:"index"`
	Word             string
	Left, Top        int
	Width, Height    int
	Confidence       float64
}

func (OCRWordModel) TableName() string { return "ocr_words" }

// EmbeddingModel stores a float32 vector as raw little-endian bytes.
type EmbeddingModel struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	ScreenshotID uint64 `gorm:"index"`
	Model        string
	Dimensions   int
	ContentHash  string `gorm:"index"`
	Vector       []byte
}

func (EmbeddingModel) TableName() string { return "embeddings" }

// VideoSegmentModel is one encoded H.265 file for one monitor's frames.
type VideoSegmentModel struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Date       string `gorm:"index;size:10"`
	Monitor    int
	FilePath   string `gorm:"uniqueIndex"`
	StartTime  time.Time
	EndTime    time.Time
	FrameCount int
	FileSize   int64
}

func (VideoSegmentModel) TableName() string { return "video_segments" }

// DaySummaryModel is the post-processed AI narrative (or the sibling
// "motd_<date>" row), keyed uniquely by its key.
type DaySummaryModel struct {
	Key        string `gorm:"primaryKey;size:32"`
	Payload    string
	Model      string
	Timestamp  time.Time
	EventCount int
}

func (DaySummaryModel) TableName() string { return "day_summaries" }

// SchemaVersionModel gates idempotent forward migrations (spec.md section
// 4.B); a single row, id=1.
type SchemaVersionModel struct {
	ID      uint   `gorm:"primaryKey"`
	Version int
}

func (SchemaVersionModel) TableName() string { return "schema_version" }
