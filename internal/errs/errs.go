// Package errs defines the error kinds the ledger returns to its callers.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidationFailed       = errors.New("validation failed")
	ErrDataNotFound           = errors.New("data not found")
	ErrRequiredFieldMissing   = errors.New("required field missing")
	ErrAuthenticationRequired = errors.New("authentication required")
)

// Validation returns an error wrapping ErrValidationFailed.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

// NotFound returns an error wrapping ErrDataNotFound for the given entity and key.
func NotFound(what string, key any) error {
	return fmt.Errorf("%w: %s %v", ErrDataNotFound, what, key)
}

// MissingField returns an error wrapping ErrRequiredFieldMissing.
func MissingField(field string) error {
	return &FieldError{Field: field}
}

// FieldError names the empty identity-critical field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRequiredFieldMissing, e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrRequiredFieldMissing
}
