package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kovan/internal/utils/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TaskClient handles task enqueuing with improved error handling and context support
type TaskClient struct {
	client       *asynq.Client
	logger       *logger.Logger
	redisOptions *redis.Options
	redisClient  *redis.Client
}

type RateLimiter struct {
	Rate   int
	Burst  int
	Period time.Duration
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

func (c *TaskClient) GetRedisClient() *redis.Client {
	return c.redisClient
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(redisAddr, username, password string, db int) *TaskClient {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Username: username,
		Password: password,
		DB:       db,
	}

	redisClient := redis.NewClient(
		&redis.Options{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
	)

	return &TaskClient{
		client: asynq.NewClient(redisOpt),
		redisOptions: &redis.Options{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
		redisClient: redisClient,
		logger:      logger.New("TASKS"),
	}
}

// EnqueueReminderSweep enqueues an immediate event reminder sweep; used at
// boot to catch reminders missed while the process was down.
func (c *TaskClient) EnqueueReminderSweep(ctx context.Context, windowHours int, opts ...asynq.Option) error {
	payload, err := json.Marshal(EventReminderPayload{WindowHours: windowHours})
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}

	opts = append([]asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutMedium),
	}, opts...)

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeEventReminder, payload), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder sweep: %w", err)
	}

	c.logger.Info("enqueued reminder sweep %s queue %s", info.ID, info.Queue)
	return nil
}

// EnqueueCleanup enqueues a cleanup sweep.
func (c *TaskClient) EnqueueCleanup(ctx context.Context, opts ...asynq.Option) error {
	opts = append([]asynq.Option{
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutLong),
	}, opts...)

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeCleanupExpired, nil), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue cleanup: %w", err)
	}

	c.logger.Info("enqueued cleanup %s queue %s", info.ID, info.Queue)
	return nil
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}
