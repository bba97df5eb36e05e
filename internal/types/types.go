// Package types holds the domain model shared across the capture, pipeline,
// archiver, storage and activity subsystems. Nothing in here touches the
// database or the filesystem directly.
package types

import "time"

// StorageTier identifies which tier a Screenshot's frames currently live in.
type StorageTier string

const (
	StorageLive      StorageTier = "live"
	StorageArchived  StorageTier = "archived"
)

// Screenshot is one accepted capture tick (one row per tick, not per monitor).
type Screenshot struct {
	ID              uint64
	Timestamp       time.Time
	LocalDate       string // YYYY-MM-DD
	Width           int
	Height          int
	FileSize        int64
	DedupSimilarity float64
	StorageType     StorageTier
	ThumbnailPath   string
}

// MonitorCapture is one physical monitor within a Screenshot.
type MonitorCapture struct {
	ID              uint64
	ScreenshotID    uint64
	MonitorName     string
	MonitorIndex    int
	OriginX, OriginY int
	Width, Height    int

	// Exactly one of (LiveFilePath) or (SegmentPath, SegmentOffsetMs) is set.
	LiveFilePath string

	SegmentPath     string
	SegmentOffsetMs int64
}

// IsArchived reports whether this capture has been re-pointed to a segment.
func (m MonitorCapture) IsArchived() bool {
	return m.SegmentPath != "" && m.LiveFilePath == ""
}

// WindowEvent is the active-window identity recorded alongside a Screenshot.
type WindowEvent struct {
	ID             uint64
	ScreenshotID   uint64
	Timestamp      time.Time
	AppClass       string
	AppName        string
	WindowTitle    string
	DesktopFileID  string
	PID            int
	BrowserDomain  string
}

// OCRResult is the per-monitor extracted text.
type OCRResult struct {
	ID               uint64
	ScreenshotID     uint64
	MonitorCaptureID uint64
	Language         string
	Text             string
	MeanConfidence   float64
}

// OCRWord is a single word's bounding box, in original image coordinates.
type OCRWord struct {
	ID               uint64
	OCRResultID      uint64
	MonitorCaptureID uint64
	Word             string
	Left, Top        int
	Width, Height    int
	Confidence       float64
}

// Embedding is a stored content vector for a screenshot's concatenated text.
type Embedding struct {
	ID           uint64
	ScreenshotID uint64
	Model        string
	Dimensions   int
	ContentHash  string
	Vector       []float32
}

// VideoSegment is one encoded H.265 file covering one monitor's frames over
// a half-open [Start, End) interval.
type VideoSegment struct {
	ID         uint64
	Date       string
	Monitor    int
	FilePath   string
	StartTime  time.Time
	EndTime    time.Time
	FrameCount int
	FileSize   int64
}

// DaySummary is the stored, post-processed AI narrative for one date.
type DaySummary struct {
	Key        string // "YYYY-MM-DD" or "motd_YYYY-MM-DD"
	Payload    string // JSON
	Model      string
	Timestamp  time.Time
	EventCount int
}

// Monitor describes one physical display, as resolved by the topology adapter.
type Monitor struct {
	Name           string
	Index          int
	OriginX, OriginY int
	Width, Height    int
}

// Image is an in-memory decoded frame handed from capture to the pipeline
// without a round-trip through disk.
type Image struct {
	Width, Height int
	// RGBA pixel data, row-major, 4 bytes per pixel.
	Pix []byte
}

// ActivitySession is a derived, contiguous run of WindowEvents.
type ActivitySession struct {
	AppClass      string
	Category      string
	Start, End    time.Time
	WindowTitles  []string // capped at 10, deduplicated
	BrowserDomains []string // deduplicated, unbounded
	EventCount    int
}

// Break is a derived gap between two sessions.
type Break struct {
	Start, End time.Time
}

func (b Break) Seconds() float64 { return b.End.Sub(b.Start).Seconds() }

// DayMetrics aggregates session/break data for one day.
type DayMetrics struct {
	ActiveSeconds      float64
	FirstActivity      time.Time
	LastActivity       time.Time
	BreakSeconds       float64
	BreakCount         int
	CategorySeconds    map[string]float64
}

// NarrativeBlock is one human-readable chunk of the AI-generated day narrative.
type NarrativeBlock struct {
	TimeRange       string
	StartMinute     int
	EndMinute       int
	DurationMinutes int
	Label           string
	Description     string
	Category        string
}

// Narrative is the parsed (and post-processed) AI response.
type Narrative struct {
	Summary string
	Blocks  []NarrativeBlock
}
