package services

import (
	"context"
	"errors"
	"strings"

	"kovan/internal/authz"
	"kovan/internal/models"
	"kovan/internal/utils/logger"

	"gorm.io/gorm"
)

// Messages gates every conversation operation through the scope decision
// before touching storage. The same tier rule applies to posting, reading,
// forwarding and searching.
type Messages struct {
	db     *gorm.DB
	scopes *authz.Scopes
	log    *logger.Logger
}

func NewMessages(db *gorm.DB, scopes *authz.Scopes) *Messages {
	return &Messages{db: db, scopes: scopes, log: logger.New("messages")}
}

type PostMessageInput struct {
	Content   string
	GroupID   *string // nil = global channel
	ReplyToID *string
	TagIDs    []string // mentioned user IDs
}

// Post writes a message into a scope the author's tier admits.
func (s *Messages) Post(ctx context.Context, auth authz.AuthContext, input PostMessageInput) (*models.Message, error) {
	if err := s.scopes.Authorize(ctx, auth, input.GroupID); err != nil {
		return nil, err
	}

	message := &models.Message{
		Content:   input.Content,
		AuthorID:  auth.UserID,
		GroupID:   input.GroupID,
		ReplyToID: input.ReplyToID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ReplyToID != nil {
			var parent models.Message
			if err := tx.Where("id = ? AND is_deleted = ?", *input.ReplyToID, false).
				First(&parent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return authz.NotFound("replied-to message not found")
				}
				return authz.Storage(err)
			}
		}
		if err := tx.Create(message).Error; err != nil {
			return authz.Storage(err)
		}
		for _, taggedID := range input.TagIDs {
			tag := models.UserTag{
				MessageID:    message.ID,
				TaggedUserID: taggedID,
				TaggerUserID: auth.UserID,
			}
			if err := tx.Create(&tag).Error; err != nil {
				return authz.Storage(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// List returns messages of one scope, newest first, after authorizing it.
func (s *Messages) List(ctx context.Context, auth authz.AuthContext, groupID *string, page, limit int) ([]models.Message, int64, error) {
	if err := s.scopes.Authorize(ctx, auth, groupID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("is_deleted = ?", false)
	if groupID == nil {
		query = query.Where("group_id IS NULL")
	} else {
		query = query.Where("group_id = ?", *groupID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, authz.Storage(err)
	}

	var messages []models.Message
	err := query.
		Preload("Attachments").
		Preload("Reactions").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, authz.Storage(err)
	}
	return messages, total, nil
}

// Forward copies a message into a target scope; the requester needs access
// to both the source and the target, judged by the same tier rule.
func (s *Messages) Forward(ctx context.Context, auth authz.AuthContext, messageID string, targetGroupID *string) (*models.Message, error) {
	var source models.Message
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", messageID, false).
		First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.NotFound("message not found")
	}
	if err != nil {
		return nil, authz.Storage(err)
	}

	if err := s.scopes.Authorize(ctx, auth, source.GroupID); err != nil {
		return nil, err
	}
	if err := s.scopes.Authorize(ctx, auth, targetGroupID); err != nil {
		return nil, err
	}

	forwarded := &models.Message{
		Content:  source.Content,
		AuthorID: auth.UserID,
		GroupID:  targetGroupID,
	}
	if err := s.db.WithContext(ctx).Create(forwarded).Error; err != nil {
		return nil, authz.Storage(err)
	}
	return forwarded, nil
}

// Search matches message content case-insensitively. With an explicit scope
// the scope is authorized first; without one, the search spans the global
// channel plus every group the requester's tier admits.
func (s *Messages) Search(ctx context.Context, auth authz.AuthContext, term string, groupID *string) ([]models.Message, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, authz.Policy("empty search term")
	}
	pattern := "%" + strings.ToLower(term) + "%"

	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("is_deleted = ?", false).
		Where("LOWER(content) LIKE ?", pattern)

	if groupID != nil {
		if err := s.scopes.Authorize(ctx, auth, groupID); err != nil {
			return nil, err
		}
		query = query.Where("group_id = ?", *groupID)
	} else {
		accessible, err := s.scopes.AccessibleGroups(ctx, auth)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(accessible))
		for _, group := range accessible {
			ids = append(ids, group.ID)
		}
		if len(ids) > 0 {
			query = query.Where("group_id IS NULL OR group_id IN ?", ids)
		} else {
			query = query.Where("group_id IS NULL")
		}
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(100).Find(&messages).Error; err != nil {
		return nil, authz.Storage(err)
	}
	return messages, nil
}

// Pinned returns the pinned message of a scope, if any.
func (s *Messages) Pinned(ctx context.Context, auth authz.AuthContext, groupID *string) (*models.Message, error) {
	if err := s.scopes.Authorize(ctx, auth, groupID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("pinned = ? AND is_deleted = ?", true, false)
	if groupID == nil {
		query = query.Where("group_id IS NULL")
	} else {
		query = query.Where("group_id = ?", *groupID)
	}

	var message models.Message
	err := query.First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.NotFound("no pinned message")
	}
	if err != nil {
		return nil, authz.Storage(err)
	}
	return &message, nil
}

// UnreadTags returns a user's unread mentions.
func (s *Messages) UnreadTags(ctx context.Context, userID string) ([]models.UserTag, error) {
	var tags []models.UserTag
	err := s.db.WithContext(ctx).
		Preload("Message").
		Where("tagged_user_id = ? AND is_read = ? AND is_deleted = ?", userID, false, false).
		Order("created_at DESC").
		Find(&tags).Error
	if err != nil {
		return nil, authz.Storage(err)
	}
	return tags, nil
}
