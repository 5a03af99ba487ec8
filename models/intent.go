package models

import (
	"time"
)

type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// MediaIntent maps a free-form intent text to a media asset. The embedding
// is derived from the intent text by the repository and is never accepted
// from callers.
type MediaIntent struct {
	ID              string          `gorm:"primaryKey" json:"id"`
	Intent          string          `gorm:"not null" json:"intent"`
	Title           string          `json:"title"`
	MediaType       MediaType       `gorm:"column:media_type;default:photo" json:"mediaType"`
	Order           int             `gorm:"column:order;index" json:"order"`
	MediaURL        string          `gorm:"column:media_url" json:"mediaUrl"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	IntentEmbedding EmbeddingVector `gorm:"column:intent_embedding;type:vector(1536)" json:"intentEmbedding"`
}

func (MediaIntent) TableName() string {
	return "media_intents"
}

// IntentDraft carries the caller-supplied fields for a new intent.
type IntentDraft struct {
	Intent    string    `json:"intent"`
	Title     string    `json:"title"`
	MediaType MediaType `json:"mediaType"`
	Order     int       `json:"order"`
	MediaURL  string    `json:"mediaUrl"`
}

// IntentUpdate is a partial update: nil fields keep their stored values.
type IntentUpdate struct {
	Intent    *string    `json:"intent"`
	Title     *string    `json:"title"`
	MediaType *MediaType `json:"mediaType"`
	Order     *int       `json:"order"`
	MediaURL  *string    `json:"mediaUrl"`
}

// SimilarIntent is a search hit: the intent plus its cosine similarity to
// the query vector, 1.0 meaning identical direction.
type SimilarIntent struct {
	MediaIntent
	Similarity float64 `json:"similarity"`
}
