package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/echuvyrov/cursor-mediaintents/database"
	"github.com/echuvyrov/cursor-mediaintents/handlers"
	"github.com/echuvyrov/cursor-mediaintents/repository"
	"github.com/echuvyrov/cursor-mediaintents/services"
)

func main() {
	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Msg("database connected successfully")

	openai := services.NewOpenAIClient()
	repo := repository.New(db, openai)

	var translator handlers.Translator
	if viper.GetBool("TRANSLATE_QUERIES") {
		translator = openai
	}

	h := handlers.New(repo, translator)

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("server running")
	if err := http.ListenAndServe(":"+port, h.Router()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("error reading .env file")
	}

	viper.AutomaticEnv()
}
