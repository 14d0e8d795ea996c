package services

import (
	"context"
	"errors"
	"time"

	"kovan/internal/authz"
	"kovan/internal/models"

	"gorm.io/gorm"
)

// Events manages the event calendar; RSVPs are handled by Responses.
type Events struct {
	db *gorm.DB
}

func NewEvents(db *gorm.DB) *Events {
	return &Events{db: db}
}

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	EventDate   time.Time
}

// Create records a new event; the date must not already be in the past.
func (s *Events) Create(ctx context.Context, auth authz.AuthContext, input CreateEventInput) (*models.Event, error) {
	if input.EventDate.Before(time.Now()) {
		return nil, authz.Policy("event date is in the past")
	}

	event := &models.Event{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		EventDate:   input.EventDate,
		CreatedByID: auth.UserID,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, authz.Storage(err)
	}
	return event, nil
}

// Get loads one event with its attendance.
func (s *Events) Get(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).
		Preload("Attendance").
		Where("id = ? AND is_deleted = ?", eventID, false).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.NotFound("event not found")
	}
	if err != nil {
		return nil, authz.Storage(err)
	}
	return &event, nil
}

// Upcoming lists events from now onward, soonest first.
func (s *Events) Upcoming(ctx context.Context) ([]models.Event, error) {
	var list []models.Event
	err := s.db.WithContext(ctx).
		Where("event_date >= ? AND is_deleted = ?", time.Now(), false).
		Order("event_date ASC").
		Find(&list).Error
	if err != nil {
		return nil, authz.Storage(err)
	}
	return list, nil
}

// DueForReminder lists events starting inside the window; used by the
// reminder task.
func (s *Events) DueForReminder(ctx context.Context, window time.Duration) ([]models.Event, error) {
	now := time.Now()
	var list []models.Event
	err := s.db.WithContext(ctx).
		Preload("Attendance").
		Where("event_date BETWEEN ? AND ? AND is_deleted = ?", now, now.Add(window), false).
		Find(&list).Error
	if err != nil {
		return nil, authz.Storage(err)
	}
	return list, nil
}
