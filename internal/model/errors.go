package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the entity is missing or not owned by the caller.
	// Both cases are reported identically so existence is never leaked.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the operation is not valid for the entity's
	// current lifecycle state, e.g. stopping a stopped time log.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict means the operation would break a uniqueness rule,
	// e.g. starting a second timer on a task that already has one.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized means no valid identity accompanied the request.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports malformed input caught before storage is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Message)
}

// Invalid returns a *ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err (or any error in its chain) is a
// *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
