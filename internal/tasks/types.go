package tasks

import "time"

// Task Types
const (
	// Event reminders for upcoming calendar entries
	TaskTypeEventReminder = "event:reminder"

	// Housekeeping for expired invites, reset codes and sessions
	TaskTypeCleanupExpired = "cleanup:expired"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like reminders
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Priorities (1-10, higher is more important)
const (
	PriorityCritical = 10
	PriorityHigh     = 8
	PriorityNormal   = 5
	PriorityLow      = 3
	PriorityBG       = 1
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// EventReminderPayload selects how far ahead the reminder sweep looks.
type EventReminderPayload struct {
	WindowHours int `json:"window_hours"`
}
