// Package apperrors provides structured application errors with HTTP status mapping.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrAuthentication = errors.New("authentication error")
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrRemote         = errors.New("remote service error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "instance_count", "job_id")
	Resource string // For not found/invalid state (e.g., "job", "tool")
	Op       string // Operation that failed (e.g., "cloud.submit")
	Cause    error  // Underlying error, kept for diagnostics only
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Authentication creates an authentication error.
// The message is deliberately fixed: it must not reveal whether a tool or
// job exists, nor anything about the expected credential.
func Authentication() error {
	return &Error{
		Sentinel: ErrAuthentication,
		Message:  "invalid credential",
	}
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		Resource: resource,
	}
}

// InvalidState creates an error for an operation that is not legal in the
// resource's current lifecycle state.
func InvalidState(resource, id, reason string) error {
	return &Error{
		Sentinel: ErrInvalidState,
		Message:  reason,
		Resource: resource,
	}
}

// Remote creates a remote service error wrapping an underlying cause.
// The caller-facing message names only the operation; the cause stays
// attached for logs.
func Remote(op string, cause error) error {
	return &Error{
		Sentinel: ErrRemote,
		Message:  fmt.Sprintf("remote service failure during %s", op),
		Op:       op,
		Cause:    cause,
	}
}

// Classified reports whether err already carries one of the gateway's error
// kinds. Use cases pass classified errors through and wrap everything else
// as a remote service error.
func Classified(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrRemote)
}
