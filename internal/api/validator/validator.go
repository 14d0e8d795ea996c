package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Register custom validation tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	err := v.RegisterValidation("attendance_status", validateAttendanceStatus)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("membership_status", validateMembershipStatus)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("invite_status", validateInviteStatus)
	if err != nil {
		return nil
	}

	return &CustomValidator{validator: v}
}

// Custom validation functions
func validateAttendanceStatus(fl playgroundvalidator.FieldLevel) bool {
	status := fl.Field().String()
	return status == "GOING" || status == "NOT_GOING" || status == "MAYBE"
}

func validateMembershipStatus(fl playgroundvalidator.FieldLevel) bool {
	status := fl.Field().String()
	return status == "PENDING" || status == "APPROVED" || status == "REJECTED"
}

func validateInviteStatus(fl playgroundvalidator.FieldLevel) bool {
	status := fl.Field().String()
	return status == "PENDING" || status == "ACCEPTED" || status == "REJECTED"
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// RegisterRequest Request validation structs based on models
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ApprovalRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type AssignRankRequest struct {
	UserID string  `json:"userId" validate:"required,uuid"`
	Rutbe  *string `json:"rutbe" validate:"omitempty,min=2"`
}

type MessageRequest struct {
	Content   string   `json:"content" validate:"required"`
	GroupID   *string  `json:"groupId" validate:"omitempty,uuid"`
	ReplyToID *string  `json:"replyToId" validate:"omitempty,uuid"`
	TagIDs    []string `json:"tagIds" validate:"omitempty,dive,uuid"`
}

type ForwardRequest struct {
	GroupID *string `json:"groupId" validate:"omitempty,uuid"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,min=1,max=16"`
}

type PollRequest struct {
	Question           string     `json:"question" validate:"required"`
	GroupID            *string    `json:"groupId" validate:"omitempty,uuid"`
	Options            []string   `json:"options" validate:"omitempty,dive,min=1"`
	AllowCustomOptions bool       `json:"allowCustomOptions"`
	ClosesAt           *time.Time `json:"closesAt" validate:"omitempty,gt"`
}

type VoteRequest struct {
	OptionID string `json:"optionId" validate:"required,uuid"`
}

type CustomOptionRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

type EventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventDate   time.Time `json:"eventDate" validate:"required"`
}

type AttendanceRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

type RankRequest struct {
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
	GroupID     *string         `json:"groupId" validate:"omitempty,uuid"`
}

type RoleGroupRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"min=0"`
}
