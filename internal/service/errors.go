package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrBlobMissing indicates attachment metadata exists but its blob does not.
	// API layer should map this to HTTP 404 Not Found.
	ErrBlobMissing = errors.New("attachment file is missing")
)

// ServiceError wraps a failure with the service and operation it came from.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a ServiceError for the task service.
func NewTaskServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Service: "task", Operation: operation, Message: message, Err: err}
}

// NewTagServiceError creates a ServiceError for the tag service.
func NewTagServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Service: "tag", Operation: operation, Message: message, Err: err}
}

// NewAccountServiceError creates a ServiceError for the account service.
func NewAccountServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Service: "account", Operation: operation, Message: message, Err: err}
}
