package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EmbeddingRefreshQueue holds refresh tasks for intents whose embedding has
// not been computed yet.
const EmbeddingRefreshQueue = "embedding_refresh"

// Task statuses recorded per intent id.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const statusTTL = 24 * time.Hour

// Task is one embedding refresh request.
type Task struct {
	TaskID   string    `json:"task_id"`
	IntentID string    `json:"intent_id"`
	Created  time.Time `json:"created"`
}

// Client is a Redis-backed task queue for embedding refresh work.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis using the REDIS_* config keys and verifies the
// connection.
func New(ctx context.Context) (*Client, error) {
	addr := viper.GetString("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewWithRedis wraps an existing Redis client; used by tests.
func NewWithRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Enqueue adds a refresh task for the intent and marks it queued.
func (c *Client) Enqueue(ctx context.Context, intentID string) (string, error) {
	task := Task{
		TaskID:   fmt.Sprintf("%d", time.Now().UnixNano()),
		IntentID: intentID,
		Created:  time.Now(),
	}

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	if err := c.rdb.RPush(ctx, EmbeddingRefreshQueue, taskJSON).Err(); err != nil {
		return "", err
	}

	if err := c.SetStatus(ctx, intentID, StatusQueued); err != nil {
		return "", err
	}

	return task.TaskID, nil
}

// Dequeue pops the next task, blocking up to timeout. Returns nil when the
// queue stays empty.
func (c *Client) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := c.rdb.BLPop(ctx, timeout, EmbeddingRefreshQueue).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	// BLPOP returns the queue name at index 0 and the payload at index 1.
	if len(result) < 2 {
		return nil, fmt.Errorf("invalid result format from redis")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// SetStatus records the refresh status for an intent.
func (c *Client) SetStatus(ctx context.Context, intentID, status string) error {
	return c.rdb.Set(ctx, statusKey(intentID), status, statusTTL).Err()
}

// Status returns the recorded refresh status for an intent, or "unknown"
// when none is recorded.
func (c *Client) Status(ctx context.Context, intentID string) (string, error) {
	status, err := c.rdb.Get(ctx, statusKey(intentID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "unknown", nil
		}
		return "", err
	}
	return status, nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func statusKey(intentID string) string {
	return fmt.Sprintf("embedding:%s:status", intentID)
}
