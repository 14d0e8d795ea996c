package models

import (
	"fmt"
	"time"

	"kovan/internal/events"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoleGroup orders ranks into privilege tiers. Higher Order means more
// privileged; the conversation scopes reference groups by ID.
type RoleGroup struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name" validate:"required,min=2"`
	Description string `json:"description"`
	Order       int    `gorm:"index;not null" json:"order"`
	Ranks       []Rank `gorm:"foreignKey:GroupID;references:ID" json:"ranks,omitempty"`
}

// Rank is an administrator-managed role. Its permission matrix is stored as
// JSON and decoded by the authz package; GroupID is optional, a rank without
// a group resolves to the unranked tier.
type Rank struct {
	Base
	Name        string         `gorm:"uniqueIndex;not null" json:"name" validate:"required,min=2"`
	Description string         `json:"description"`
	Permissions datatypes.JSON `gorm:"type:jsonb" json:"permissions"`
	GroupID     *string        `gorm:"type:uuid;default:NULL" json:"groupId,omitempty" validate:"omitempty,uuid"`
	Group       *RoleGroup     `json:"group,omitempty"`
}

// Message lives in a conversation scope. A nil GroupID is the global channel,
// readable by every approved user regardless of rank.
type Message struct {
	Base
	Content   string     `gorm:"not null" json:"content" validate:"required"`
	AuthorID  string     `gorm:"type:uuid;not null;index" json:"authorId"`
	Author    *User      `json:"author,omitempty"`
	GroupID   *string    `gorm:"type:uuid;default:NULL;index" json:"groupId,omitempty"`
	Group     *RoleGroup `json:"group,omitempty"`
	Pinned    bool       `gorm:"default:false;index" json:"pinned"`
	ReplyToID *string    `gorm:"type:uuid;default:NULL" json:"replyToId,omitempty"`
	ReplyTo   *Message   `gorm:"foreignKey:ReplyToID" json:"replyTo,omitempty"`

	Attachments []File             `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
	Reactions   []MessageReaction  `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`
	Receipts    []ReadReceipt      `gorm:"foreignKey:MessageID" json:"receipts,omitempty"`
}

// MessageReaction is keyed by (message, user, emoji): the same user may react
// with several emojis but never twice with the same one.
type MessageReaction struct {
	Base
	MessageID string `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_triple" json:"messageId"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_triple" json:"userId"`
	Emoji     string `gorm:"not null;uniqueIndex:idx_reaction_triple" json:"emoji" validate:"required"`
}

// StarredMessage marks a message as starred by a user, at most once.
type StarredMessage struct {
	Base
	MessageID string `gorm:"type:uuid;not null;uniqueIndex:idx_star_pair" json:"messageId"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_star_pair" json:"userId"`
}

// ReadReceipt records that a user has seen a message, at most once.
type ReadReceipt struct {
	Base
	MessageID string    `gorm:"type:uuid;not null;uniqueIndex:idx_receipt_pair" json:"messageId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_receipt_pair" json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}

// UserTag is created when a message mentions a user.
type UserTag struct {
	Base
	MessageID    string     `gorm:"type:uuid;not null;index" json:"messageId"`
	Message      *Message   `json:"message,omitempty"`
	TaggedUserID string     `gorm:"type:uuid;not null;index" json:"taggedUserId"`
	TaggerUserID string     `gorm:"type:uuid;not null" json:"taggerUserId"`
	IsRead       bool       `gorm:"default:false" json:"isRead"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
}

// Poll belongs to a conversation scope like a message does. When
// AllowCustomOptions is set, each user may add at most one option of their own.
type Poll struct {
	Base
	Question           string       `gorm:"not null" json:"question" validate:"required"`
	AuthorID           string       `gorm:"type:uuid;not null" json:"authorId"`
	Author             *User        `json:"author,omitempty"`
	GroupID            *string      `gorm:"type:uuid;default:NULL;index" json:"groupId,omitempty"`
	Group              *RoleGroup   `json:"group,omitempty"`
	AllowCustomOptions bool         `gorm:"default:false" json:"allowCustomOptions"`
	ClosesAt           *time.Time   `json:"closesAt,omitempty"`
	Options            []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`
	Votes              []PollVote   `gorm:"foreignKey:PollID" json:"votes,omitempty"`
}

type PollOption struct {
	Base
	PollID      string  `gorm:"type:uuid;not null;index" json:"pollId"`
	Text        string  `gorm:"not null" json:"text" validate:"required"`
	IsCustom    bool    `gorm:"default:false" json:"isCustom"`
	CreatedByID *string `gorm:"type:uuid;default:NULL" json:"createdById,omitempty"`
}

// PollVote holds at most one row per (poll, user); re-voting replaces the
// previous choice.
type PollVote struct {
	Base
	PollID   string `gorm:"type:uuid;not null;uniqueIndex:idx_vote_pair" json:"pollId"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_vote_pair" json:"userId"`
	OptionID string `gorm:"type:uuid;not null" json:"optionId"`
}

// Event is a dated gathering users RSVP to.
type Event struct {
	Base
	Title       string            `gorm:"not null" json:"title" validate:"required"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	EventDate   time.Time         `gorm:"not null;index" json:"eventDate" validate:"required"`
	CreatedByID string            `gorm:"type:uuid;not null" json:"createdById"`
	Attendance  []EventAttendance `gorm:"foreignKey:EventID" json:"attendance,omitempty"`
}

// EventAttendance holds at most one RSVP per (event, user).
type EventAttendance struct {
	Base
	EventID string           `gorm:"type:uuid;not null;uniqueIndex:idx_rsvp_pair" json:"eventId"`
	UserID  string           `gorm:"type:uuid;not null;uniqueIndex:idx_rsvp_pair" json:"userId"`
	Status  AttendanceStatus `gorm:"not null" json:"status" validate:"required,attendance_status"`
}

// Meeting is an administrative record managed through the generic CRUD surface.
type Meeting struct {
	Base
	Title       string    `gorm:"not null" json:"title" validate:"required"`
	Agenda      string    `json:"agenda"`
	HeldAt      time.Time `gorm:"not null" json:"heldAt" validate:"required"`
	CreatedByID string    `gorm:"type:uuid;not null" json:"createdById"`
}

// File is an uploaded attachment; SignedURL is filled on read.
type File struct {
	Base
	MessageID *string `gorm:"type:uuid;default:NULL;index" json:"messageId,omitempty"`
	Path      string  `gorm:"not null" json:"path" validate:"required"`
	UserID    string  `gorm:"type:uuid;default:NULL" json:"userId" validate:"omitempty,uuid"`
	User      *User   `json:"user,omitempty"`
	Name      string  `gorm:"not null" json:"name" validate:"required"`
	Size      int64   `gorm:"not null" json:"size" validate:"required,min=1"`
	Type      string  `gorm:"not null" json:"type" validate:"required"`
	SignedURL string  `gorm:"-" json:"signedUrl,omitempty"` // Virtual field
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

func (f *File) AfterFind(tx *gorm.DB) error {
	registryMu.RLock()
	generator := urlGenerator
	registryMu.RUnlock()

	if generator != nil {
		// Generate URL with 1-hour expiry
		url, err := generator.GetSignedURL(tx.Statement.Context, f.Path, time.Hour)
		if err != nil {
			return fmt.Errorf("failed to generate signed URL: %w", err)
		}
		f.SignedURL = url
	}
	return nil
}

func (m *Message) AfterCreate(tx *gorm.DB) error {
	events.Emit("message.created", m)
	return nil
}
