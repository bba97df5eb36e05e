package store

import "gorm.io/gorm"

// installFTS creates the ocr_fts full-text index and the triggers that keep
// it in sync with ocr_results (spec.md section 4.B): unicode61 tokenizer
// with diacritics folded ("remove_diacritics 2"). No ecosystem Go library
// wraps SQLite FTS5 more usefully than raw DDL/triggers, so this is plain
// SQL executed through gorm's Exec — the justified bare-SQL case for an
// otherwise GORM-modeled store.
func installFTS(db *gorm.DB) error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS ocr_fts USING fts5(
			text,
			content='ocr_results',
			content_rowid='id',
			tokenize='unicode61 remove_diacritics 2'
		)`,
		`CREATE TRIGGER IF NOT EXISTS ocr_results_ai AFTER INSERT ON ocr_results BEGIN
			INSERT INTO ocr_fts(rowid, text) VALUES (new.id, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS ocr_results_ad AFTER DELETE ON ocr_results BEGIN
			INSERT INTO ocr_fts(ocr_fts, rowid, text) VALUES('delete', old.id, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS ocr_results_au AFTER UPDATE ON ocr_results BEGIN
			INSERT INTO ocr_fts(ocr_fts, rowid, text) VALUES('delete', old.id, old.text);
			INSERT INTO ocr_fts(rowid, text) VALUES (new.id, new.text);
		END`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// FTSHit is one full-text search match before screenshot-level dedup.
type FTSHit struct {
	ScreenshotID uint64
	OCRResultID  uint64
	BM25         float64
	Snippet      string
}

// SearchFTS runs the raw BM25 query spec.md section 4.B/4.H specifies:
// smaller rank = better match, snippet markup "<mark>...</mark>", ellipsis
// token "...", window 32 tokens.
func (s *Store) SearchFTS(query string, limit int) ([]FTSHit, error) {
	rows, err := s.db.Raw(`
		SELECT o.screenshot_id, o.id, bm25(ocr_fts) AS rank,
		       snippet(ocr_fts, 0, '<mark>', '</mark>', '...', 32) AS snippet
		FROM ocr_fts
		JOIN ocr_results o ON o.id = ocr_fts.rowid
		WHERE ocr_fts MATCH ?
		ORDER BY rank ASC
		LIMIT ?
	`, query, limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.ScreenshotID, &h.OCRResultID, &h.BM25, &h.Snippet); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
