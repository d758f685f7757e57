package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrInvalidEvent indicates that a tracked event failed validation
	ErrInvalidEvent = errors.New("invalid event")
)

// ValidationError represents a validation error with detailed field information.
// It wraps ErrInvalidEvent so callers can match either the field or the category.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidEvent) match any validation error.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}
