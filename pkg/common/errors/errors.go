// Package errors defines the sentinel errors shared across taskflow packages.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates that a wait gave up before completion. Waiting
	// for a task result with a timeout returns this without affecting the
	// task's own execution.
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates that a task was cancelled before it produced
	// a result.
	ErrCancelled = errors.New("task cancelled")

	// ErrWorkerStopped indicates an attempt to stop a worker whose
	// execution context has already terminated.
	ErrWorkerStopped = errors.New("worker already stopped")

	// ErrQueueClosed indicates an operation on a closed task queue.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrLoopClosed indicates a submission to a run loop that has shut down.
	ErrLoopClosed = errors.New("run loop is closed")

	// ErrRateLimited indicates that a submission was rejected by a throttle.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidConfiguration indicates invalid configuration parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsTerminalFailure reports whether err represents a state that will not
// resolve by waiting. Cancellation and closed resources are terminal;
// timeouts and throttling are not.
func IsTerminalFailure(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrQueueClosed) ||
		errors.Is(err, ErrLoopClosed)
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// ValidationError describes a configuration value that failed validation.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{Module: module, Field: field, Value: value, Reason: reason}
}

// WithHint attaches a remediation hint to the error.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s (%v): %s", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrInvalidConfiguration) to match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}
