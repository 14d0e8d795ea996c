package authz

import (
	"errors"
	"fmt"
)

// Kind classifies a denial so handlers can map it onto an HTTP status
// without parsing reason strings.
type Kind int

const (
	// KindDenied means the caller lacks permission or rank. Maps to 403.
	KindDenied Kind = iota + 1
	// KindNotFound means the referenced target does not exist. Maps to 404.
	KindNotFound
	// KindPolicy means a domain rule was broken (past-event RSVP, duplicate
	// custom option). Maps to 400.
	KindPolicy
	// KindStorage means the persistence layer errored. Maps to 500.
	KindStorage
)

// Error carries a user-facing reason string alongside its kind. Rejections
// are never bare booleans; the reason distinguishes "not authorized" from
// "not found" from "invalid request".
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Denied builds a permission/rank rejection.
func Denied(reason string) *Error {
	return &Error{Kind: KindDenied, Reason: reason}
}

// NotFound builds a missing-target rejection.
func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// Policy builds a domain-rule rejection.
func Policy(reason string) *Error {
	return &Error{Kind: KindPolicy, Reason: reason}
}

// Storage wraps a persistence failure; never swallowed, always surfaced.
func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Reason: "storage failure", Err: err}
}

// KindOf extracts the kind from an error chain; unknown errors are treated
// as storage failures so nothing maps to an accidental allow.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStorage
}

func IsDenied(err error) bool   { return KindOf(err) == KindDenied }
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsPolicy(err error) bool   { return KindOf(err) == KindPolicy }
