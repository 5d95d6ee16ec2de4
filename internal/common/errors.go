// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrUnknownAccount = errors.New("unknown account")

	// Format resolution and parsing errors.
	ErrUnknownFormat    = errors.New("unknown format")
	ErrNoMatchingFormat = errors.New("no matching format")
	ErrMalformedSource  = errors.New("malformed source")

	// Classification and review errors.
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyPattern     = errors.New("rule pattern cannot be empty")
	ErrInvalidPattern   = errors.New("invalid rule pattern")
	ErrInvalidMatchKind = errors.New("invalid match kind")
	ErrSessionClosed    = errors.New("review session is not active")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Malformed wraps a structural parse failure of file as ErrMalformedSource.
func Malformed(file, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedSource, file, fmt.Sprintf(format, args...))
}
