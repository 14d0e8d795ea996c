package tasks

import (
	"context"
	"encoding/json"
	"time"

	"kovan/internal/config"
	"kovan/internal/events"
	"kovan/internal/models"
	"kovan/internal/services"
	"kovan/internal/tasks/rate"
	"kovan/internal/utils/logger"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

var (
	cfg, _ = config.Load()
)

// TaskHandler processes the background tasks
type TaskHandler struct {
	db         *gorm.DB
	logger     *logger.Logger
	taskClient *TaskClient
	events     *services.Events
	reminders  *rate.QueueRateLimiter
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(db *gorm.DB) *TaskHandler {
	taskClient := NewTaskClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)

	return &TaskHandler{
		db:         db,
		logger:     logger.New("task_handler"),
		taskClient: taskClient,
		events:     services.NewEvents(db),
		// one reminder per event per day, regardless of how often the
		// sweep runs
		reminders: rate.NewQueueRateLimiter(taskClient.GetRedisClient(), rate.QueueConfig{
			Name: QueueCritical,
			RateLimit: rate.RateLimit{
				Window:  24 * time.Hour,
				MaxJobs: 1,
			},
		}),
	}
}

// HandleEventReminderTask sweeps the calendar for events starting inside the
// payload window and emits a reminder for each, at most once per day.
func (h *TaskHandler) HandleEventReminderTask(ctx context.Context, t *asynq.Task) error {
	var payload EventReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return h.logger.Error("invalid event reminder payload", err)
	}
	if payload.WindowHours <= 0 {
		payload.WindowHours = 24
	}

	due, err := h.events.DueForReminder(ctx, time.Duration(payload.WindowHours)*time.Hour)
	if err != nil {
		return h.logger.Error("failed to load events due for reminder", err)
	}

	sent := 0
	for i := range due {
		event := due[i]
		ok, err := h.reminders.Allow(ctx, event.ID)
		if err != nil {
			return h.logger.Error("reminder rate check failed", err)
		}
		if !ok {
			continue
		}
		events.Emit("event.reminder", &event)
		sent++
	}

	h.logger.Info("event reminder sweep: %d due, %d reminded", len(due), sent)
	return nil
}

// HandleCleanupExpiredTask purges expired invites, reset codes and sessions.
func (h *TaskHandler) HandleCleanupExpiredTask(ctx context.Context, t *asynq.Task) error {
	now := time.Now()

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Pending invites past their deadline are rejected, not deleted,
		// so the inviter can still see what happened
		if err := tx.Model(&models.MemberInvite{}).
			Where("status = ? AND expires_at < ?", models.InviteStatusPending, now).
			Update("status", models.InviteStatusRejected).Error; err != nil {
			return err
		}

		if err := tx.Where("used = ? OR expires_at < ?", true, now).
			Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}

		return tx.Where("expires_at < ?", now).
			Delete(&models.AuthTransaction{}).Error
	})
	if err != nil {
		return h.logger.Error("cleanup sweep failed", err)
	}

	h.logger.Success("cleanup sweep finished")
	return nil
}
