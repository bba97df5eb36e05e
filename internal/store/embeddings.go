package store

import (
	"encoding/binary"
	"math"

	"github.com/screendiary/screendiary/internal/types"
)

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// InsertEmbedding stores one screenshot's content-hash-keyed vector. Callers
// are expected to have already checked GetEmbeddingByContentHash to avoid
// redundant embedding calls for unchanged text (spec.md section 4.D).
func (s *Store) InsertEmbedding(screenshotID uint64, model string, contentHash string, vector []float32) (uint64, error) {
	row := EmbeddingModel{
		ScreenshotID: screenshotID,
		Model:        model,
		Dimensions:   len(vector),
		ContentHash:  contentHash,
		Vector:       encodeVector(vector),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// GetEmbeddingByContentHash looks up an existing embedding for the same
// screenshot and identical OCR text, letting the pipeline skip re-embedding
// unchanged screens (spec.md section 4.D: "skip if a row with
// (screenshot_id, hash) already exists").
func (s *Store) GetEmbeddingByContentHash(screenshotID uint64, contentHash string) (*types.Embedding, error) {
	var row EmbeddingModel
	err := s.db.Where("screenshot_id = ? AND content_hash = ?", screenshotID, contentHash).First(&row).Error
	if err != nil {
		return nil, err
	}
	e := toDomainEmbedding(row)
	return &e, nil
}

// AllEmbeddings loads every stored embedding for semantic search (spec.md
// section 4.H). The catalog is sized for a single user's desktop activity,
// so a full in-memory scan is acceptable; see DESIGN.md for the scale
// assumption.
func (s *Store) AllEmbeddings(model string) ([]types.Embedding, error) {
	var rows []EmbeddingModel
	if err := s.db.Where("model = ?", model).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Embedding, len(rows))
	for i, r := range rows {
		out[i] = toDomainEmbedding(r)
	}
	return out, nil
}

func toDomainEmbedding(r EmbeddingModel) types.Embedding {
	return types.Embedding{
		ID:           r.ID,
		ScreenshotID: r.ScreenshotID,
		Model:        r.Model,
		Dimensions:   r.Dimensions,
		ContentHash:  r.ContentHash,
		Vector:       decodeVector(r.Vector),
	}
}
