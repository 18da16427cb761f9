package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an engine error.
type ErrorCode string

const (
	// Graph construction errors. Raised before any task executes.
	ErrCodeCycle              ErrorCode = "CYCLE_DETECTED"
	ErrCodeDanglingReference  ErrorCode = "DANGLING_REFERENCE"
	ErrCodeMissingPlaceholder ErrorCode = "MISSING_PLACEHOLDER"

	// Provider errors. Timeout and rate-limited dispatches are retryable,
	// malformed requests are not.
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// Execution errors.
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"
	ErrCodeTaskExecution   ErrorCode = "TASK_EXECUTION"
	ErrCodeRunCancelled    ErrorCode = "RUN_CANCELLED"

	// Storage errors.
	ErrCodeMemoryStore ErrorCode = "MEMORY_STORE"

	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// Error is the structured error used across the engine. TaskID and Field
// are filled where the failure can be attributed to a specific task or
// schema field.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	TaskID    string    `json:"task_id,omitempty"`
	Field     string    `json:"field,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.TaskID != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s [task %s]: %s: %v", e.Code, e.TaskID, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s [task %s]: %s", e.Code, e.TaskID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a structured error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches an underlying cause and returns the error for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithTaskID attributes the error to a task.
func (e *Error) WithTaskID(taskID string) *Error {
	e.TaskID = taskID
	return e
}

// WithField attributes the error to a schema field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithRetryable marks whether the operation may be retried.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// NewTimeoutError reports a provider dispatch that exceeded its deadline.
func NewTimeoutError(message string) *Error {
	return &Error{Code: ErrCodeTimeout, Message: message, Retryable: true}
}

// NewRateLimitedError reports a provider that refused a dispatch for
// exceeding its own rate limits.
func NewRateLimitedError(message string) *Error {
	return &Error{Code: ErrCodeRateLimited, Message: message, Retryable: true}
}

// NewInvalidRequestError reports a malformed dispatch. Never retryable.
func NewInvalidRequestError(message string) *Error {
	return &Error{Code: ErrCodeInvalidRequest, Message: message}
}

// IsRetryable reports whether err carries a retryable engine error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the engine error code, or ErrCodeUnknown when err
// is not an engine error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

// IsCode reports whether err carries the given engine error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
