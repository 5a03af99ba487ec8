package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/echuvyrov/cursor-mediaintents/models"
	"github.com/echuvyrov/cursor-mediaintents/queue"
	"github.com/echuvyrov/cursor-mediaintents/repository"
)

// Refresher is the repository surface the worker needs: find intents whose
// embedding is missing and compute it.
type Refresher interface {
	RefreshEmbedding(ctx context.Context, id string) (*models.MediaIntent, error)
	MissingEmbeddingIDs(ctx context.Context) ([]string, error)
}

// Worker backfills embeddings. A scan loop enqueues intents with a NULL
// embedding and a pool of workers drains the queue, computing and storing
// the vector for each.
type Worker struct {
	queue      *queue.Client
	repo       Refresher
	numWorkers int
	scanEvery  time.Duration
	stopChan   chan struct{}
	doneChan   chan struct{}
}

func New(q *queue.Client, repo Refresher, numWorkers int, scanEvery time.Duration) *Worker {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if scanEvery <= 0 {
		scanEvery = time.Minute
	}
	return &Worker{
		queue:      q,
		repo:       repo,
		numWorkers: numWorkers,
		scanEvery:  scanEvery,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// Start launches the scan loop and the worker pool.
func (w *Worker) Start() {
	log.Info().Int("workers", w.numWorkers).Msg("starting embedding backfill workers")

	for i := 0; i < w.numWorkers; i++ {
		go w.processItems(i)
	}
	go w.scanLoop()
}

// Stop signals the loops to stop and waits for them to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	for i := 0; i < w.numWorkers+1; i++ {
		<-w.doneChan
	}
	log.Info().Msg("all workers stopped")
}

func (w *Worker) scanLoop() {
	defer func() { w.doneChan <- struct{}{} }()

	ticker := time.NewTicker(w.scanEvery)
	defer ticker.Stop()

	w.scanMissing()
	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.scanMissing()
		}
	}
}

// scanMissing enqueues every intent without an embedding, skipping ids that
// are already queued or being processed.
func (w *Worker) scanMissing() {
	ctx := context.Background()

	ids, err := w.repo.MissingEmbeddingIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("error scanning for missing embeddings")
		return
	}

	for _, id := range ids {
		status, err := w.queue.Status(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("error checking task status")
			continue
		}
		if status == queue.StatusQueued || status == queue.StatusProcessing {
			continue
		}
		if _, err := w.queue.Enqueue(ctx, id); err != nil {
			log.Error().Err(err).Str("id", id).Msg("error enqueueing refresh task")
		}
	}
}

func (w *Worker) processItems(workerID int) {
	log.Info().Int("worker", workerID).Msg("worker started")
	defer func() {
		log.Info().Int("worker", workerID).Msg("worker stopped")
		w.doneChan <- struct{}{}
	}()

	for {
		select {
		case <-w.stopChan:
			return
		default:
			ctx := context.Background()

			task, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				log.Error().Err(err).Msg("error dequeueing task")
				time.Sleep(time.Second)
				continue
			}
			if task == nil {
				continue
			}

			w.handleTask(ctx, task)
		}
	}
}

// handleTask computes and stores the embedding for one intent, recording
// the outcome in the per-intent status key.
func (w *Worker) handleTask(ctx context.Context, task *queue.Task) {
	log.Info().Str("task", task.TaskID).Str("id", task.IntentID).Msg("refreshing embedding")

	if err := w.queue.SetStatus(ctx, task.IntentID, queue.StatusProcessing); err != nil {
		log.Error().Err(err).Str("id", task.IntentID).Msg("error updating task status")
	}

	_, err := w.repo.RefreshEmbedding(ctx, task.IntentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Row deleted since the scan; nothing left to refresh.
			log.Warn().Str("id", task.IntentID).Msg("intent vanished before refresh")
		} else {
			log.Error().Err(err).Str("id", task.IntentID).Msg("error refreshing embedding")
		}
		if err := w.queue.SetStatus(ctx, task.IntentID, queue.StatusFailed); err != nil {
			log.Error().Err(err).Str("id", task.IntentID).Msg("error updating task status")
		}
		return
	}

	if err := w.queue.SetStatus(ctx, task.IntentID, queue.StatusCompleted); err != nil {
		log.Error().Err(err).Str("id", task.IntentID).Msg("error updating task status")
	}
}
