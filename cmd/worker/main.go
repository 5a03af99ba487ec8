package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/echuvyrov/cursor-mediaintents/database"
	"github.com/echuvyrov/cursor-mediaintents/queue"
	"github.com/echuvyrov/cursor-mediaintents/repository"
	"github.com/echuvyrov/cursor-mediaintents/services"
	"github.com/echuvyrov/cursor-mediaintents/worker"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	viper.SetDefault("WORKER_COUNT", 4)
	viper.SetDefault("SCAN_INTERVAL", "1m")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PASSWORD", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("error reading .env file")
	}
	viper.AutomaticEnv()

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	q, err := queue.New(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer q.Close()

	repo := repository.New(db, services.NewOpenAIClient())

	w := worker.New(q, repo, viper.GetInt("WORKER_COUNT"), viper.GetDuration("SCAN_INTERVAL"))
	w.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("stopping workers")
	w.Stop()
}
