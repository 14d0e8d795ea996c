package services

import (
	"context"
	"errors"
	"time"

	"kovan/internal/authz"
	"kovan/internal/models"

	"gorm.io/gorm"
)

// Polls creates and reads polls inside conversation scopes; the vote and
// custom-option mutations live in Responses.
type Polls struct {
	db     *gorm.DB
	scopes *authz.Scopes
}

func NewPolls(db *gorm.DB, scopes *authz.Scopes) *Polls {
	return &Polls{db: db, scopes: scopes}
}

type CreatePollInput struct {
	Question           string
	GroupID            *string
	Options            []string
	AllowCustomOptions bool
	ClosesAt           *time.Time
}

// Create opens a poll in a scope the author's tier admits. At least two
// options are required unless custom options are allowed.
func (s *Polls) Create(ctx context.Context, auth authz.AuthContext, input CreatePollInput) (*models.Poll, error) {
	if err := s.scopes.Authorize(ctx, auth, input.GroupID); err != nil {
		return nil, err
	}
	if len(input.Options) < 2 && !input.AllowCustomOptions {
		return nil, authz.Policy("a poll needs at least two options")
	}

	poll := &models.Poll{
		Question:           input.Question,
		AuthorID:           auth.UserID,
		GroupID:            input.GroupID,
		AllowCustomOptions: input.AllowCustomOptions,
		ClosesAt:           input.ClosesAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(poll).Error; err != nil {
			return authz.Storage(err)
		}
		for _, text := range input.Options {
			option := models.PollOption{PollID: poll.ID, Text: text}
			if err := tx.Create(&option).Error; err != nil {
				return authz.Storage(err)
			}
			poll.Options = append(poll.Options, option)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// Get loads a poll with options after authorizing its scope.
func (s *Polls) Get(ctx context.Context, auth authz.AuthContext, pollID string) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).
		Preload("Options").
		Where("id = ? AND is_deleted = ?", pollID, false).
		First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.NotFound("poll not found")
	}
	if err != nil {
		return nil, authz.Storage(err)
	}

	if err := s.scopes.Authorize(ctx, auth, poll.GroupID); err != nil {
		return nil, err
	}
	return &poll, nil
}

// OptionCount is one row of a poll result.
type OptionCount struct {
	OptionID string `json:"optionId"`
	Text     string `json:"text"`
	Votes    int64  `json:"votes"`
}

// Results tallies votes per option.
func (s *Polls) Results(ctx context.Context, auth authz.AuthContext, pollID string) ([]OptionCount, error) {
	poll, err := s.Get(ctx, auth, pollID)
	if err != nil {
		return nil, err
	}

	results := make([]OptionCount, 0, len(poll.Options))
	for _, option := range poll.Options {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.PollVote{}).
			Where("poll_id = ? AND option_id = ?", pollID, option.ID).
			Count(&count).Error; err != nil {
			return nil, authz.Storage(err)
		}
		results = append(results, OptionCount{OptionID: option.ID, Text: option.Text, Votes: count})
	}
	return results, nil
}
