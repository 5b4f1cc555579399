package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a session, item, step, run or comment does not exist
	// or is outside the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when a portal token cannot be resolved.
	ErrUnauthorized = errors.New("invalid or expired link")
	// ErrForbidden is returned when the actor lacks the capability for an action.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a violated input rule before any mutation happened.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ForbiddenError carries the policy reason for a denied action.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return ErrForbidden.Error()
	}
	return e.Reason
}

// Is lets errors.Is(err, ErrForbidden) match.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
