package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorChaining(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	e := NewError(ErrCodeTaskExecution, "dispatch failed").
		WithTaskID("research_task").
		WithCause(cause).
		WithRetryable(true)

	if e.Code != ErrCodeTaskExecution {
		t.Fatalf("Code = %q", e.Code)
	}
	if e.TaskID != "research_task" {
		t.Fatalf("TaskID = %q", e.TaskID)
	}
	if !e.Retryable {
		t.Fatal("Retryable should be true")
	}
	if !errors.Is(e, cause) {
		t.Fatal("errors.Is should reach the cause")
	}

	msg := e.Error()
	if !strings.Contains(msg, "TASK_EXECUTION") || !strings.Contains(msg, "research_task") || !strings.Contains(msg, "connection reset") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestErrorWithField(t *testing.T) {
	t.Parallel()

	e := NewError(ErrCodeSchemaViolation, "tags must be a list of strings").WithField("tags")
	if e.Field != "tags" {
		t.Fatalf("Field = %q", e.Field)
	}
	if e.Retryable {
		t.Fatal("schema violations are not retryable")
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if !IsRetryable(NewTimeoutError("deadline exceeded")) {
		t.Fatal("timeout should be retryable")
	}
	if !IsRetryable(NewRateLimitedError("429")) {
		t.Fatal("rate limited should be retryable")
	}
	if IsRetryable(NewInvalidRequestError("empty role")) {
		t.Fatal("invalid request should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatal("plain errors are not retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}

func TestIsRetryableWrapped(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("attempt 2: %w", NewTimeoutError("deadline exceeded"))
	if !IsRetryable(wrapped) {
		t.Fatal("IsRetryable should see through fmt.Errorf wrapping")
	}
}

func TestGetErrorCode(t *testing.T) {
	t.Parallel()

	if got := GetErrorCode(NewError(ErrCodeCycle, "a -> b -> a")); got != ErrCodeCycle {
		t.Fatalf("GetErrorCode = %q", got)
	}
	if got := GetErrorCode(errors.New("plain")); got != ErrCodeUnknown {
		t.Fatalf("GetErrorCode for plain error = %q", got)
	}

	wrapped := fmt.Errorf("run aborted: %w", NewError(ErrCodeDanglingReference, "unknown task"))
	if got := GetErrorCode(wrapped); got != ErrCodeDanglingReference {
		t.Fatalf("GetErrorCode for wrapped error = %q", got)
	}
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	e := NewError(ErrCodeMissingPlaceholder, "missing {topic}")
	if !IsCode(e, ErrCodeMissingPlaceholder) {
		t.Fatal("IsCode should match")
	}
	if IsCode(e, ErrCodeCycle) {
		t.Fatal("IsCode should not match a different code")
	}
}
