package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echuvyrov/cursor-mediaintents/models"
)

// ErrNotFound reports that no media intent has the requested id.
var ErrNotFound = errors.New("media intent not found")

// Search defaults used when the caller does not supply its own.
const (
	DefaultSearchLimit     = 5
	DefaultSearchThreshold = 0.75
)

// Embedder turns text into a fixed-dimension vector. Failures propagate to
// the caller; there is no zero-vector fallback.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IntentRepository owns all access to the media_intents table. It keeps the
// stored embedding consistent with the intent text: the embedding is
// recomputed whenever the text changes and is never accepted from callers.
type IntentRepository struct {
	db       *gorm.DB
	embedder Embedder
}

func New(db *gorm.DB, embedder Embedder) *IntentRepository {
	return &IntentRepository{db: db, embedder: embedder}
}

const selectColumns = `id, intent, title, media_type, "order", media_url, created_at, updated_at, intent_embedding`

// List returns every intent, ascending by presentation order.
func (r *IntentRepository) List(ctx context.Context) ([]models.MediaIntent, error) {
	var intents []models.MediaIntent
	tx := r.db.WithContext(ctx).
		Raw(`SELECT ` + selectColumns + ` FROM media_intents ORDER BY "order"`).
		Scan(&intents)
	if tx.Error != nil {
		return nil, fmt.Errorf("list intents: %w", tx.Error)
	}
	return intents, nil
}

// GetByID returns the intent with that id, or ErrNotFound.
func (r *IntentRepository) GetByID(ctx context.Context, id string) (*models.MediaIntent, error) {
	var intent models.MediaIntent
	tx := r.db.WithContext(ctx).
		Raw(`SELECT `+selectColumns+` FROM media_intents WHERE id = ?`, id).
		Scan(&intent)
	if tx.Error != nil {
		return nil, fmt.Errorf("get intent %s: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &intent, nil
}

// Create embeds the draft text, inserts the row and returns the stored
// entity. An embedding failure aborts the whole operation; nothing is
// inserted.
func (r *IntentRepository) Create(ctx context.Context, draft models.IntentDraft) (*models.MediaIntent, error) {
	vec, err := r.embedder.Embed(ctx, draft.Intent)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}

	mediaType := draft.MediaType
	if mediaType == "" {
		mediaType = models.MediaTypePhoto
	}

	var intent models.MediaIntent
	tx := r.db.WithContext(ctx).Raw(
		`INSERT INTO media_intents (id, intent, title, media_type, "order", media_url, intent_embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?::vector, now(), now())
		 RETURNING `+selectColumns,
		uuid.NewString(), draft.Intent, draft.Title, string(mediaType), draft.Order, draft.MediaURL,
		models.NewEmbeddingVector(vec),
	).Scan(&intent)
	if tx.Error != nil {
		return nil, fmt.Errorf("create intent: %w", tx.Error)
	}
	return &intent, nil
}

// Update applies a partial update as a single sparse UPDATE: only the
// supplied columns are touched, so unspecified fields keep their stored
// values. When the intent text changes, its embedding is recomputed and
// written in the same statement. Returns ErrNotFound if the id is missing.
func (r *IntentRepository) Update(ctx context.Context, id string, upd models.IntentUpdate) (*models.MediaIntent, error) {
	assignments, args := updateAssignments(upd)

	if upd.Intent != nil && *upd.Intent != "" {
		vec, err := r.embedder.Embed(ctx, *upd.Intent)
		if err != nil {
			return nil, fmt.Errorf("generate embedding: %w", err)
		}
		assignments = append(assignments, "intent_embedding = ?::vector")
		args = append(args, models.NewEmbeddingVector(vec))
	}

	assignments = append(assignments, "updated_at = now()")
	args = append(args, id)

	var intent models.MediaIntent
	tx := r.db.WithContext(ctx).Raw(
		`UPDATE media_intents SET `+strings.Join(assignments, ", ")+` WHERE id = ? RETURNING `+selectColumns,
		args...,
	).Scan(&intent)
	if tx.Error != nil {
		return nil, fmt.Errorf("update intent %s: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &intent, nil
}

// updateAssignments maps the supplied update fields to their table columns,
// in a fixed statement order. Columns not listed here can never be touched
// by an update; an empty intent is treated as absent.
func updateAssignments(upd models.IntentUpdate) ([]string, []any) {
	var (
		assignments []string
		args        []any
	)
	if upd.Intent != nil && *upd.Intent != "" {
		assignments = append(assignments, "intent = ?")
		args = append(args, *upd.Intent)
	}
	if upd.Title != nil {
		assignments = append(assignments, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.MediaType != nil {
		assignments = append(assignments, "media_type = ?")
		args = append(args, string(*upd.MediaType))
	}
	if upd.Order != nil {
		assignments = append(assignments, `"order" = ?`)
		args = append(args, *upd.Order)
	}
	if upd.MediaURL != nil {
		assignments = append(assignments, "media_url = ?")
		args = append(args, *upd.MediaURL)
	}
	return assignments, args
}

// Delete removes the row and reports whether it existed. Deleting a missing
// id returns false, not an error.
func (r *IntentRepository) Delete(ctx context.Context, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`DELETE FROM media_intents WHERE id = ?`, id)
	if tx.Error != nil {
		return false, fmt.Errorf("delete intent %s: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// FindSimilar ranks rows with an embedding by cosine similarity to the
// query vector, keeps those at or above threshold and returns at most limit
// of them, best match first, "order" breaking ties. Ranking and limiting
// happen in a single query so Postgres can serve it from the hnsw index.
func (r *IntentRepository) FindSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]models.SimilarIntent, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	vec := models.NewEmbeddingVector(embedding)

	var results []models.SimilarIntent
	tx := r.db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`, 1 - (intent_embedding <=> ?::vector) AS similarity
		 FROM media_intents
		 WHERE intent_embedding IS NOT NULL
		   AND 1 - (intent_embedding <=> ?::vector) >= ?
		 ORDER BY intent_embedding <=> ?::vector, "order"
		 LIMIT ?`,
		vec, vec, threshold, vec, limit,
	).Scan(&results)
	if tx.Error != nil {
		return nil, fmt.Errorf("find similar intents: %w", tx.Error)
	}
	return results, nil
}

// FindSimilarByText embeds the text and delegates to FindSimilar.
func (r *IntentRepository) FindSimilarByText(ctx context.Context, text string, limit int, threshold float64) ([]models.SimilarIntent, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	return r.FindSimilar(ctx, vec, limit, threshold)
}

// RefreshEmbedding recomputes the embedding of the stored intent text and
// persists it. Used by the backfill worker for rows that predate embeddings.
func (r *IntentRepository) RefreshEmbedding(ctx context.Context, id string) (*models.MediaIntent, error) {
	var row struct{ Intent string }
	tx := r.db.WithContext(ctx).
		Raw(`SELECT intent FROM media_intents WHERE id = ?`, id).
		Scan(&row)
	if tx.Error != nil {
		return nil, fmt.Errorf("get intent %s: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	vec, err := r.embedder.Embed(ctx, row.Intent)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}

	var intent models.MediaIntent
	tx = r.db.WithContext(ctx).Raw(
		`UPDATE media_intents SET intent_embedding = ?::vector, updated_at = now() WHERE id = ? RETURNING `+selectColumns,
		models.NewEmbeddingVector(vec), id,
	).Scan(&intent)
	if tx.Error != nil {
		return nil, fmt.Errorf("update embedding %s: %w", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &intent, nil
}

// MissingEmbeddingIDs returns the ids of rows whose embedding has not been
// computed yet.
func (r *IntentRepository) MissingEmbeddingIDs(ctx context.Context) ([]string, error) {
	var ids []string
	tx := r.db.WithContext(ctx).
		Raw(`SELECT id FROM media_intents WHERE intent_embedding IS NULL ORDER BY "order"`).
		Scan(&ids)
	if tx.Error != nil {
		return nil, fmt.Errorf("list intents missing embeddings: %w", tx.Error)
	}
	return ids, nil
}
