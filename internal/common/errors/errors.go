// Package errors provides the standardized error taxonomy shared by the
// synchronization engine and the rules engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeNetwork covers transport failures with no backend response.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeBackend covers non-2xx backend responses carrying a message.
	ErrCodeBackend ErrorCode = "BACKEND_ERROR"
	// ErrCodeValidation covers client-local invariant violations.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeNotFound covers operations on an unknown record id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAuth covers missing or invalid credentials.
	ErrCodeAuth ErrorCode = "AUTH_ERROR"
	// ErrCodeImmutableRecord covers mutation attempts on system-owned
	// singleton records.
	ErrCodeImmutableRecord ErrorCode = "IMMUTABLE_RECORD"
	// ErrCodeStorage covers fallback-cache read/write failures.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewNetworkError creates a retryable transport error.
func NewNetworkError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetwork,
		Message:   "Network error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendError creates an error for a non-2xx backend response. The
// message is the backend's own message when it sent one.
func NewBackendError(status int, message string) *StandardError {
	if message == "" {
		message = "Request failed"
	}
	return &StandardError{
		Code:      ErrCodeBackend,
		Message:   message,
		Details:   fmt.Sprintf("status: %d", status),
		Retryable: status >= 500,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable client-local validation error.
func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable unknown-id error.
func NewNotFoundError(entity, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", entity),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthError creates a non-retryable authentication error.
func NewAuthError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuth,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewImmutableRecordError creates a non-retryable error for deletes of
// recurring singleton records.
func NewImmutableRecordError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeImmutableRecord,
		Message:   "Fixed recurring expenses cannot be deleted",
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageError creates a retryable fallback-cache error.
func NewStorageError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorage,
		Message:   "Local cache operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the ErrorCode, or empty for foreign errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsNotFound reports whether err is an unknown-id error.
func IsNotFound(err error) bool { return Is(err, ErrCodeNotFound) }

// IsImmutableRecord reports whether err is an immutable-record violation.
func IsImmutableRecord(err error) bool { return Is(err, ErrCodeImmutableRecord) }

// Message returns the human-readable error string the synchronizer stores
// on a collection, preferring the backend's own message and degrading to
// the supplied fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) && stdErr.Message != "" {
		return stdErr.Message
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
