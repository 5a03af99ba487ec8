package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/echuvyrov/cursor-mediaintents/models"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return db, mock
}

func intentColumns() []string {
	return []string{"id", "intent", "title", "media_type", "order", "media_url", "created_at", "updated_at", "intent_embedding"}
}

func TestList(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})
	now := time.Now()

	rows := sqlmock.NewRows(intentColumns()).
		AddRow("id-1", "show me your instagram", "Instagram", "photo", 1, "https://cdn.example.com/ig.jpg", now, now, "[0.1,0.2,0.3]").
		AddRow("id-2", "play the demo reel", "Demo reel", "video", 2, "https://cdn.example.com/reel.mp4", now, now, nil)
	mock.ExpectQuery(`SELECT id, intent, title, media_type, "order", media_url, created_at, updated_at, intent_embedding FROM media_intents ORDER BY "order"`).
		WillReturnRows(rows)

	intents, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, intents, 2)

	assert.Equal(t, "id-1", intents[0].ID)
	assert.Equal(t, models.MediaTypePhoto, intents[0].MediaType)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, intents[0].IntentEmbedding.Slice())
	assert.Equal(t, "id-2", intents[1].ID)
	assert.False(t, intents[1].IntentEmbedding.Valid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})
	now := time.Now()

	rows := sqlmock.NewRows(intentColumns()).
		AddRow("id-1", "show me your instagram", "Instagram", "photo", 1, "https://cdn.example.com/ig.jpg", now, now, "[0.1,0.2,0.3]")
	mock.ExpectQuery(`FROM media_intents WHERE id =`).
		WithArgs("id-1").
		WillReturnRows(rows)

	intent, err := repo.GetByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, "show me your instagram", intent.Intent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectQuery(`FROM media_intents WHERE id =`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(intentColumns()))

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate(t *testing.T) {
	db, mock := newTestDB(t)
	emb := &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	repo := New(db, emb)
	now := time.Now()

	rows := sqlmock.NewRows(intentColumns()).
		AddRow("id-1", "show me your instagram", "Instagram", "photo", 1, "https://cdn.example.com/ig.jpg", now, now, "[0.1,0.2,0.3]")
	// The vector must travel as the pgvector literal: brackets, commas,
	// no whitespace.
	mock.ExpectQuery(`INSERT INTO media_intents`).
		WithArgs(sqlmock.AnyArg(), "show me your instagram", "Instagram", "photo", 1, "https://cdn.example.com/ig.jpg", "[0.1,0.2,0.3]").
		WillReturnRows(rows)

	intent, err := repo.Create(context.Background(), models.IntentDraft{
		Intent:    "show me your instagram",
		Title:     "Instagram",
		MediaType: models.MediaTypePhoto,
		Order:     1,
		MediaURL:  "https://cdn.example.com/ig.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"show me your instagram"}, emb.calls)
	assert.Equal(t, "id-1", intent.ID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, intent.IntentEmbedding.Slice())
	assert.False(t, intent.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DefaultsMediaType(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{vec: []float32{1}})
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO media_intents`).
		WithArgs(sqlmock.AnyArg(), "hello", "", "photo", 0, "", "[1]").
		WillReturnRows(sqlmock.NewRows(intentColumns()).
			AddRow("id-1", "hello", "", "photo", 0, "", now, now, "[1]"))

	intent, err := repo.Create(context.Background(), models.IntentDraft{Intent: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypePhoto, intent.MediaType)
}

func TestCreate_EmbeddingFailureAborts(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{err: errors.New("upstream down")})

	_, err := repo.Create(context.Background(), models.IntentDraft{Intent: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate embedding")

	// No insert may happen when the embedding fails.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_IntentRecomputesEmbedding(t *testing.T) {
	db, mock := newTestDB(t)
	emb := &fakeEmbedder{vec: []float32{0.5, 0.5}}
	repo := New(db, emb)
	now := time.Now()

	rows := sqlmock.NewRows(intentColumns()).
		AddRow("id-1", "goodbye", "Instagram", "photo", 1, "https://cdn.example.com/ig.jpg", now, now, "[0.5,0.5]")
	mock.ExpectQuery(`UPDATE media_intents SET intent = `).
		WithArgs("goodbye", "[0.5,0.5]", "id-1").
		WillReturnRows(rows)

	newIntent := "goodbye"
	intent, err := repo.Update(context.Background(), "id-1", models.IntentUpdate{Intent: &newIntent})
	require.NoError(t, err)

	assert.Equal(t, []string{"goodbye"}, emb.calls)
	assert.Equal(t, "goodbye", intent.Intent)
	assert.Equal(t, []float32{0.5, 0.5}, intent.IntentEmbedding.Slice())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_OrderOnlyLeavesEmbeddingAlone(t *testing.T) {
	db, mock := newTestDB(t)
	emb := &fakeEmbedder{}
	repo := New(db, emb)
	now := time.Now()

	rows := sqlmock.NewRows(intentColumns()).
		AddRow("id-1", "hello", "Instagram", "photo", 5, "https://cdn.example.com/ig.jpg", now, now, "[0.1,0.2]")
	mock.ExpectQuery(`UPDATE media_intents SET "order" = `).
		WithArgs(5, "id-1").
		WillReturnRows(rows)

	order := 5
	intent, err := repo.Update(context.Background(), "id-1", models.IntentUpdate{Order: &order})
	require.NoError(t, err)

	assert.Empty(t, emb.calls)
	assert.Equal(t, 5, intent.Order)
	assert.Equal(t, "hello", intent.Intent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_EmptyIntentIgnored(t *testing.T) {
	db, mock := newTestDB(t)
	emb := &fakeEmbedder{}
	repo := New(db, emb)
	now := time.Now()

	rows := sqlmock.NewRows(intentColumns()).
		AddRow("id-1", "hello", "New title", "photo", 1, "u", now, now, "[0.1]")
	mock.ExpectQuery(`UPDATE media_intents SET title = `).
		WithArgs("New title", "id-1").
		WillReturnRows(rows)

	empty := ""
	title := "New title"
	_, err := repo.Update(context.Background(), "id-1", models.IntentUpdate{Intent: &empty, Title: &title})
	require.NoError(t, err)
	assert.Empty(t, emb.calls)
}

func TestUpdate_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectQuery(`UPDATE media_intents SET "order" = `).
		WithArgs(1, "nonexistent-id").
		WillReturnRows(sqlmock.NewRows(intentColumns()))

	order := 1
	_, err := repo.Update(context.Background(), "nonexistent-id", models.IntentUpdate{Order: &order})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_EmbeddingFailureAborts(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{err: errors.New("upstream down")})

	newIntent := "goodbye"
	_, err := repo.Update(context.Background(), "id-1", models.IntentUpdate{Intent: &newIntent})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectExec(`DELETE FROM media_intents WHERE id =`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "id-1")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDelete_Nonexistent(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectExec(`DELETE FROM media_intents WHERE id =`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFindSimilar(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})
	now := time.Now()

	columns := append(intentColumns(), "similarity")
	rows := sqlmock.NewRows(columns).
		AddRow("id-1", "hello", "Hello", "photo", 1, "u1", now, now, "[1,0,0]", 0.999).
		AddRow("id-2", "hey there", "Hey", "photo", 2, "u2", now, now, "[0.9,0.1,0]", 0.81)
	// One ranked-and-limited query; the threshold and limit are pushed to
	// the store.
	mock.ExpectQuery(`WHERE intent_embedding IS NOT NULL`).
		WithArgs("[1,0,0]", "[1,0,0]", 0.75, "[1,0,0]", 5).
		WillReturnRows(rows)

	results, err := repo.FindSimilar(context.Background(), []float32{1, 0, 0}, 5, 0.75)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "id-1", results[0].ID)
	assert.InDelta(t, 0.999, results[0].Similarity, 1e-9)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSimilar_DefaultLimit(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectQuery(`WHERE intent_embedding IS NOT NULL`).
		WithArgs("[1]", "[1]", 0.5, "[1]", DefaultSearchLimit).
		WillReturnRows(sqlmock.NewRows(append(intentColumns(), "similarity")))

	results, err := repo.FindSimilar(context.Background(), []float32{1}, 0, 0.5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilarByText(t *testing.T) {
	db, mock := newTestDB(t)
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	repo := New(db, emb)

	mock.ExpectQuery(`WHERE intent_embedding IS NOT NULL`).
		WithArgs("[1,0]", "[1,0]", 0.75, "[1,0]", 5).
		WillReturnRows(sqlmock.NewRows(append(intentColumns(), "similarity")))

	_, err := repo.FindSimilarByText(context.Background(), "hello", 5, 0.75)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, emb.calls)
}

func TestFindSimilarByText_EmbeddingFailure(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{err: errors.New("upstream down")})

	_, err := repo.FindSimilarByText(context.Background(), "hello", 5, 0.75)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshEmbedding(t *testing.T) {
	db, mock := newTestDB(t)
	emb := &fakeEmbedder{vec: []float32{0.3, 0.7}}
	repo := New(db, emb)
	now := time.Now()

	mock.ExpectQuery(`SELECT intent FROM media_intents WHERE id =`).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"intent"}).AddRow("hello"))
	mock.ExpectQuery(`UPDATE media_intents SET intent_embedding = `).
		WithArgs("[0.3,0.7]", "id-1").
		WillReturnRows(sqlmock.NewRows(intentColumns()).
			AddRow("id-1", "hello", "", "photo", 1, "u", now, now, "[0.3,0.7]"))

	intent, err := repo.RefreshEmbedding(context.Background(), "id-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"hello"}, emb.calls)
	assert.Equal(t, []float32{0.3, 0.7}, intent.IntentEmbedding.Slice())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshEmbedding_NotFound(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectQuery(`SELECT intent FROM media_intents WHERE id =`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"intent"}))

	_, err := repo.RefreshEmbedding(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingEmbeddingIDs(t *testing.T) {
	db, mock := newTestDB(t)
	repo := New(db, &fakeEmbedder{})

	mock.ExpectQuery(`WHERE intent_embedding IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-2").AddRow("id-7"))

	ids, err := repo.MissingEmbeddingIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id-2", "id-7"}, ids)
}
