package service

import (
	"errors"
	"fmt"

	"github.com/nikbrunner/stash/internal/storage"
)

// Sentinel errors for common conditions
var (
	ErrNotFound  = storage.ErrNotFound
	ErrInUse     = storage.ErrInUse
	ErrDuplicate = storage.ErrDuplicate
	ErrInvalid   = errors.New("invalid input")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
