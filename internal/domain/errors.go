// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrGuestForbidden is returned when a guest account attempts a
	// mutation reserved for registered users.
	ErrGuestForbidden = errors.New("guest users cannot perform this action")

	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrTagInUse is returned when deleting a tag that another user's tasks still reference.
	ErrTagInUse = errors.New("tag is referenced by another user's tasks")

	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError. A nil err defaults to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors collects every field failure found in one pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ve := range e {
		parts = append(parts, ve.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes each field error so errors.Is(err, ErrValidation) holds.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, ve := range e {
		errs = append(errs, ve)
	}
	return errs
}

// Fields groups messages by field name, in the order they were added.
func (e ValidationErrors) Fields() map[string][]string {
	fields := make(map[string][]string, len(e))
	for _, ve := range e {
		fields[ve.Field] = append(fields[ve.Field], ve.Message)
	}
	return fields
}

// Add appends a field failure.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, NewValidationError(field, message, ErrValidation))
}

// OrNil returns nil when no failures were recorded.
func (e ValidationErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
