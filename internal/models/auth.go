package models

import (
	"time"
)

type User struct {
	Base
	Email            string           `gorm:"uniqueIndex;not null" json:"email"`
	Password         string           `gorm:"not null" json:"-"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Rutbe            *string          `gorm:"index;default:NULL" json:"rutbe,omitempty"` // rank name, nil = rankless
	MembershipStatus MembershipStatus `gorm:"not null;default:'PENDING'" json:"membershipStatus"`
	TwoFactorEnabled bool             `gorm:"default:false" json:"twoFactorEnabled"`
	ProfilePicture   File             `gorm:"foreignKey:ProfilePictureID" json:"profilePicture,omitempty"`
	ProfilePictureID string           `gorm:"type:uuid;default:NULL" json:"profilePictureId,omitempty"`
}

type MemberInvite struct {
	Base
	Email     string       `gorm:"not null" json:"email" validate:"required,email"`
	Name      string       `gorm:"not null" json:"name" validate:"required,min=2"`
	InviterID string       `gorm:"type:uuid;not null" json:"inviterId" validate:"required,uuid"`
	Inviter   *User        `json:"inviter,omitempty"`
	Rutbe     string       `gorm:"not null" json:"rutbe" validate:"required"`
	Code      string       `gorm:"not null" json:"code" validate:"required"`
	Status    InviteStatus `gorm:"not null;default:'PENDING'" json:"status" validate:"required,oneof=PENDING ACCEPTED REJECTED"`
	ExpiresAt time.Time    `gorm:"not null" json:"expiresAt" validate:"required,gt"`
}

type PasswordReset struct {
	Base
	User      *User     `json:"user,omitempty"`
	UserID    string    `gorm:"type:uuid;not null" json:"userId"`
	Code      string    `gorm:"not null" json:"code"`
	Used      bool      `gorm:"default:false" json:"used"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthTransaction struct {
	Base
	UserID    string    `gorm:"type:uuid;not null" json:"userId"`
	User      *User     `json:"user,omitempty"`
	Token     string    `gorm:"not null" json:"token"`
	Refresh   string    `gorm:"not null" json:"refresh"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsApproved reports whether the user may enter the API surface at all.
func (u *User) IsApproved() bool {
	return u.MembershipStatus == MembershipApproved
}
