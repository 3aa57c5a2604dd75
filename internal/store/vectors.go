package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// MemoryVector is a stored embedding for one memory item.
type MemoryVector struct {
	MemoryID  string
	Embedding []float32
	Model     string
	CreatedAt time.Time
}

// SaveVector upserts the embedding for a memory item.
func (s *SQLiteStore) SaveVector(ctx context.Context, memoryID string, embedding []float32, model string) error {
	if len(embedding) == 0 {
		return fmt.Errorf("empty embedding for %s", memoryID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_vectors (memory_id, embedding, dim, model, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			embedding = excluded.embedding, dim = excluded.dim,
			model = excluded.model, created_at = excluded.created_at
	`, memoryID, encodeVector(embedding), len(embedding), model, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("saving vector: %w", err)
	}

	s.logger.Debug("saved vector", "memory_id", memoryID, "dim", len(embedding))
	return nil
}

// AllVectors loads every stored embedding. The index is small enough to scan
// in memory.
func (s *SQLiteStore) AllVectors(ctx context.Context) ([]*MemoryVector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id, embedding, model, created_at FROM memory_vectors
	`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var vectors []*MemoryVector
	for rows.Next() {
		var v MemoryVector
		var blob []byte
		var createdAt string
		if err := rows.Scan(&v.MemoryID, &blob, &v.Model, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning vector row: %w", err)
		}
		v.Embedding = decodeVector(blob)
		v.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		vectors = append(vectors, &v)
	}

	return vectors, rows.Err()
}

// DeleteVector removes the embedding for a memory item. Missing rows are
// not an error: the cascade may have removed it already.
func (s *SQLiteStore) DeleteVector(ctx context.Context, memoryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_vectors WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("deleting vector: %w", err)
	}
	return nil
}

// CountVectors returns the number of stored embeddings.
func (s *SQLiteStore) CountVectors(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_vectors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return count, nil
}

// encodeVector packs float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
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
