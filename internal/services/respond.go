package services

import (
	"context"
	"errors"
	"time"

	"kovan/internal/authz"
	"kovan/internal/events"
	"kovan/internal/models"
	"kovan/internal/utils/logger"

	"gorm.io/gorm"
)

// Responses implements the single-response collapsing operations: per-user,
// per-target state where at most one live row may exist per key. Every
// replace runs inside one transaction so a storage failure never leaves both
// an old and a new row behind, and the composite unique indexes close the
// race between concurrent writers. Message-scoped operations run the scope
// decision for the message's conversation before anything is written; poll
// and event operations are scope-checked by their owning services.
type Responses struct {
	db     *gorm.DB
	scopes *authz.Scopes
	log    *logger.Logger
}

func NewResponses(db *gorm.DB, scopes *authz.Scopes) *Responses {
	return &Responses{db: db, scopes: scopes, log: logger.New("responses")}
}

// CastVote records the user's poll vote, replacing any previous one. After N
// calls with different options exactly one row exists for (poll, user),
// holding the last choice.
func (s *Responses) CastVote(ctx context.Context, pollID, userID, optionID string) (*models.PollVote, error) {
	vote := &models.PollVote{PollID: pollID, UserID: userID, OptionID: optionID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Where("id = ? AND is_deleted = ?", pollID, false).First(&poll).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authz.NotFound("poll not found")
			}
			return authz.Storage(err)
		}
		if poll.ClosesAt != nil && poll.ClosesAt.Before(time.Now()) {
			return authz.Policy("poll is closed")
		}

		var option models.PollOption
		if err := tx.Where("id = ? AND poll_id = ?", optionID, pollID).First(&option).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authz.NotFound("poll option not found")
			}
			return authz.Storage(err)
		}

		// replace, not append: clear the pair then insert
		if err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).
			Delete(&models.PollVote{}).Error; err != nil {
			return authz.Storage(err)
		}
		if err := tx.Create(vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// a racing vote landed first; the unique index kept the
				// invariant, report it as a conflict rather than a 500
				return authz.Policy("vote already recorded")
			}
			return authz.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit("poll.voted", vote)
	return vote, nil
}

// AddCustomOption creates a user-supplied option on a poll that allows them.
// Each user may add at most one custom option over the poll's lifetime; the
// cap is checked before any row is written.
func (s *Responses) AddCustomOption(ctx context.Context, pollID, userID, text string) (*models.PollOption, error) {
	option := &models.PollOption{
		PollID:      pollID,
		Text:        text,
		IsCustom:    true,
		CreatedByID: &userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Where("id = ? AND is_deleted = ?", pollID, false).First(&poll).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authz.NotFound("poll not found")
			}
			return authz.Storage(err)
		}
		if !poll.AllowCustomOptions {
			return authz.Policy("poll does not allow custom options")
		}

		var existing int64
		if err := tx.Model(&models.PollOption{}).
			Where("poll_id = ? AND created_by_id = ? AND is_custom = ?", pollID, userID, true).
			Count(&existing).Error; err != nil {
			return authz.Storage(err)
		}
		if existing > 0 {
			return authz.Policy("custom option already added for this poll")
		}

		if err := tx.Create(option).Error; err != nil {
			return authz.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return option, nil
}

// AddReaction upserts the (message, user, emoji) triple; repeating the call
// is a no-op.
func (s *Responses) AddReaction(ctx context.Context, auth authz.AuthContext, messageID, emoji string) (*models.MessageReaction, error) {
	if _, err := s.authorizeMessage(ctx, auth, messageID); err != nil {
		return nil, err
	}
	reaction := &models.MessageReaction{MessageID: messageID, UserID: auth.UserID, Emoji: emoji}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MessageReaction
		err := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, auth.UserID, emoji).
			First(&existing).Error
		if err == nil {
			*reaction = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Storage(err)
		}
		if err := tx.Create(reaction).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// racing add committed first; keep its row
				return tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, auth.UserID, emoji).
					First(reaction).Error
			}
			return authz.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reaction, nil
}

// RemoveReaction deletes exactly the (message, user, emoji) triple.
func (s *Responses) RemoveReaction(ctx context.Context, auth authz.AuthContext, messageID, emoji string) error {
	if _, err := s.authorizeMessage(ctx, auth, messageID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, auth.UserID, emoji).
		Delete(&models.MessageReaction{})
	if result.Error != nil {
		return authz.Storage(result.Error)
	}
	if result.RowsAffected == 0 {
		return authz.NotFound("reaction not found")
	}
	return nil
}

// Star marks a message as starred by the user; already-starred is a no-op.
func (s *Responses) Star(ctx context.Context, auth authz.AuthContext, messageID string) error {
	if _, err := s.authorizeMessage(ctx, auth, messageID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		star := &models.StarredMessage{MessageID: messageID, UserID: auth.UserID}
		if err := tx.Where(models.StarredMessage{MessageID: messageID, UserID: auth.UserID}).
			FirstOrCreate(star).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return authz.Storage(err)
		}
		return nil
	})
}

// Unstar removes the user's star from a message.
func (s *Responses) Unstar(ctx context.Context, auth authz.AuthContext, messageID string) error {
	if _, err := s.authorizeMessage(ctx, auth, messageID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, auth.UserID).
		Delete(&models.StarredMessage{})
	if result.Error != nil {
		return authz.Storage(result.Error)
	}
	if result.RowsAffected == 0 {
		return authz.NotFound("star not found")
	}
	return nil
}

// MarkRead records a read receipt; repeated reads keep the first timestamp.
func (s *Responses) MarkRead(ctx context.Context, auth authz.AuthContext, messageID string) error {
	if _, err := s.authorizeMessage(ctx, auth, messageID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receipt := &models.ReadReceipt{MessageID: messageID, UserID: auth.UserID, ReadAt: time.Now()}
		if err := tx.Where(models.ReadReceipt{MessageID: messageID, UserID: auth.UserID}).
			FirstOrCreate(receipt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return authz.Storage(err)
		}
		return nil
	})
}

// SetAttendance records the user's RSVP, replacing any previous answer.
// Events already in the past reject the RSVP before anything is written.
func (s *Responses) SetAttendance(ctx context.Context, eventID, userID string, status models.AttendanceStatus) (*models.EventAttendance, error) {
	if !models.IsValidAttendanceStatus(status) {
		return nil, authz.Policy("invalid attendance status")
	}

	attendance := &models.EventAttendance{EventID: eventID, UserID: userID, Status: status}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ? AND is_deleted = ?", eventID, false).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authz.NotFound("event not found")
			}
			return authz.Storage(err)
		}
		if event.EventDate.Before(time.Now()) {
			return authz.Policy("event is in the past")
		}

		if err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).
			Delete(&models.EventAttendance{}).Error; err != nil {
			return authz.Storage(err)
		}
		if err := tx.Create(attendance).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return authz.Policy("attendance already recorded")
			}
			return authz.Storage(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit("event.rsvp", attendance)
	return attendance, nil
}

// Pin marks a message as the pinned one for its conversation scope. The pin
// is scope-global and exclusive: any previously pinned message in the same
// scope, whoever pinned it, is cleared in the same transaction.
func (s *Responses) Pin(ctx context.Context, auth authz.AuthContext, messageID string) (*models.Message, error) {
	authorized, err := s.authorizeMessage(ctx, auth, messageID)
	if err != nil {
		return nil, err
	}
	message := *authorized

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Model(&models.Message{}).Where("pinned = ?", true)
		if message.GroupID == nil {
			scope = scope.Where("group_id IS NULL")
		} else {
			scope = scope.Where("group_id = ?", *message.GroupID)
		}
		if err := scope.Update("pinned", false).Error; err != nil {
			return authz.Storage(err)
		}

		if err := tx.Model(&message).Update("pinned", true).Error; err != nil {
			return authz.Storage(err)
		}
		message.Pinned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Unpin clears the pinned flag of a message.
func (s *Responses) Unpin(ctx context.Context, auth authz.AuthContext, messageID string) error {
	if _, err := s.authorizeMessage(ctx, auth, messageID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND pinned = ?", messageID, true).
		Update("pinned", false)
	if result.Error != nil {
		return authz.Storage(result.Error)
	}
	if result.RowsAffected == 0 {
		return authz.NotFound("pinned message not found")
	}
	return nil
}

// authorizeMessage loads a live message and runs the scope decision for its
// conversation; every chat mutation passes through here before touching rows.
func (s *Responses) authorizeMessage(ctx context.Context, auth authz.AuthContext, messageID string) (*models.Message, error) {
	var message models.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", messageID, false).
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.NotFound("message not found")
	}
	if err != nil {
		return nil, authz.Storage(err)
	}
	if err := s.scopes.Authorize(ctx, auth, message.GroupID); err != nil {
		return nil, err
	}
	return &message, nil
}
