package database

import (
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/echuvyrov/cursor-mediaintents/models"
)

// Connect opens the Postgres connection described by the DB_* config keys,
// ensures the pgvector extension and the media_intents schema exist, and
// returns the handle for injection into the repository.
func Connect() (*gorm.DB, error) {
	host := viper.GetString("DB_HOST")
	user := viper.GetString("DB_USER")
	password := viper.GetString("DB_PASSWORD")
	dbname := viper.GetString("DB_NAME")
	port := viper.GetString("DB_PORT")
	sslmode := viper.GetString("DB_SSLMODE")

	if host == "" || user == "" || password == "" || dbname == "" || port == "" || sslmode == "" {
		return nil, fmt.Errorf("missing required database environment variables: DB_HOST, DB_USER, DB_PASSWORD, DB_NAME, DB_PORT and DB_SSLMODE must be set")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, dbname, port, sslmode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector;").Error; err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}

	if err := db.AutoMigrate(&models.MediaIntent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	// hnsw lets Postgres serve the ranked similarity query from an index.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS media_intents_embedding_idx ON media_intents USING hnsw (intent_embedding vector_cosine_ops);").Error; err != nil {
		return nil, fmt.Errorf("failed to create embedding index: %w", err)
	}

	return db, nil
}
