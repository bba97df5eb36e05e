package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CurrentSchemaVersion gates idempotent forward migrations. A database
// stamped with a version newer than this refuses to start (spec.md section
// 7, "invariant breach").
const CurrentSchemaVersion = 1

// Store is the single process-wide catalog handle. Readers share it
// lock-free under WAL; writers serialize through SQLite's own WAL
// single-writer model (spec.md section 3, section 5).
type Store struct {
	db *gorm.DB
}

// Open creates (or reopens) the catalog database at path with the mandatory
// pragmas: WAL journal mode, a 5s busy timeout, and foreign_keys=ON. The
// pragma-via-DSN convention mirrors xg2g's sqlite.Open helper; the
// concrete driver (mattn/go-sqlite3 through gorm.io/driver/sqlite) follows
// the teacher so that cgo-backed SQLite (and its FTS5 tokenizer support)
// stays available.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: creating data dir: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL",
		path,
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	var version SchemaVersionModel
	err := s.db.First(&version, "id = 1").Error
	switch {
	case err == gorm.ErrRecordNotFound:
		if err := s.db.AutoMigrate(
			&ScreenshotModel{},
			&MonitorCaptureModel{},
			&WindowEventModel{},
			&OCRResultModel{},
			&OCRWordModel{},
			&EmbeddingModel{},
			&VideoSegmentModel{},
			&DaySummaryModel{},
			&SchemaVersionModel{},
		); err != nil {
			return fmt.Errorf("store: automigrate: %w", err)
		}
		if err := installFTS(s.db); err != nil {
			return fmt.Errorf("store: installing fts: %w", err)
		}
		version = SchemaVersionModel{ID: 1, Version: CurrentSchemaVersion}
		if err := s.db.Create(&version).Error; err != nil {
			return fmt.Errorf("store: stamping schema version: %w", err)
		}
		log.Info().Int("version", CurrentSchemaVersion).Msg("store: initialized fresh database")
		return nil
	case err != nil:
		return fmt.Errorf("store: reading schema version: %w", err)
	}

	if version.Version > CurrentSchemaVersion {
		return fmt.Errorf("store: database schema version %d is newer than this binary supports (%d); refusing to start",
			version.Version, CurrentSchemaVersion)
	}
	if version.Version < CurrentSchemaVersion {
		// Forward migrations are idempotent no-ops until a future schema
		// bump actually needs one; AutoMigrate is always safe to re-run.
		if err := s.db.AutoMigrate(
			&ScreenshotModel{},
			&MonitorCaptureModel{},
			&WindowEventModel{},
			&OCRResultModel{},
			&OCRWordModel{},
			&EmbeddingModel{},
			&VideoSegmentModel{},
			&DaySummaryModel{},
		); err != nil {
			return fmt.Errorf("store: automigrate: %w", err)
		}
		version.Version = CurrentSchemaVersion
		if err := s.db.Save(&version).Error; err != nil {
			return fmt.Errorf("store: updating schema version: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
