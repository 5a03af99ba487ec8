package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingVector is a pgvector value that tolerates NULL columns. Rows
// imported before embeddings existed have a NULL intent_embedding until the
// backfill worker computes one.
type EmbeddingVector struct {
	Vector pgvector.Vector
	Valid  bool
}

func NewEmbeddingVector(v []float32) EmbeddingVector {
	return EmbeddingVector{Vector: pgvector.NewVector(v), Valid: true}
}

// Slice returns the raw float values, or nil for a NULL embedding.
func (e EmbeddingVector) Slice() []float32 {
	if !e.Valid {
		return nil
	}
	return e.Vector.Slice()
}

func (e *EmbeddingVector) Scan(src any) error {
	if src == nil {
		*e = EmbeddingVector{}
		return nil
	}
	if err := e.Vector.Scan(src); err != nil {
		return err
	}
	e.Valid = true
	return nil
}

// Value encodes the vector in the store's literal format: bracket-delimited,
// comma-separated, no internal whitespace.
func (e EmbeddingVector) Value() (driver.Value, error) {
	if !e.Valid {
		return nil, nil
	}
	return e.Vector.Value()
}

func (e EmbeddingVector) MarshalJSON() ([]byte, error) {
	if !e.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(e.Vector.Slice())
}

func (e *EmbeddingVector) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = EmbeddingVector{}
		return nil
	}
	var vals []float32
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	*e = NewEmbeddingVector(vals)
	return nil
}
