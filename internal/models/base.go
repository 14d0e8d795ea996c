package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	DeletedAt time.Time `gorm:"index;default:NULL" json:"-" validate:"omitempty"`
	IsDeleted bool      `json:"isDeleted" default:"false"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// MembershipStatus gates dashboard entry; only APPROVED users reach the API
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "PENDING"
	MembershipApproved MembershipStatus = "APPROVED"
	MembershipRejected MembershipStatus = "REJECTED"
)

// AttendanceStatus is the RSVP answer for an event
type AttendanceStatus string

const (
	AttendanceGoing    AttendanceStatus = "GOING"
	AttendanceNotGoing AttendanceStatus = "NOT_GOING"
	AttendanceMaybe    AttendanceStatus = "MAYBE"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusRejected InviteStatus = "REJECTED"
)

// IsValidAttendanceStatus checks if a given RSVP answer is valid
func IsValidAttendanceStatus(status AttendanceStatus) bool {
	switch status {
	case AttendanceGoing, AttendanceNotGoing, AttendanceMaybe:
		return true
	default:
		return false
	}
}

// IsValidMembershipStatus checks if a membership status is one of the known states
func IsValidMembershipStatus(status MembershipStatus) bool {
	switch status {
	case MembershipPending, MembershipApproved, MembershipRejected:
		return true
	default:
		return false
	}
}
