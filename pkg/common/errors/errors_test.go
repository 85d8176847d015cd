package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsTerminalFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cancelled", ErrCancelled, true},
		{"queue closed", ErrQueueClosed, true},
		{"loop closed", ErrLoopClosed, true},
		{"wrapped cancelled", fmt.Errorf("submit: %w", ErrCancelled), true},
		{"timeout", ErrTimeout, false},
		{"rate limited", ErrRateLimited, false},
		{"nil", nil, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTerminalFailure(tt.err); got != tt.want {
				t.Errorf("IsTerminalFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrTimeout) {
		t.Error("timeout should be retryable")
	}
	if !IsRetryable(fmt.Errorf("throttle: %w", ErrRateLimited)) {
		t.Error("wrapped rate limit should be retryable")
	}
	if IsRetryable(ErrCancelled) {
		t.Error("cancellation should not be retryable")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("dispatch", "MaxWorkers", 0, "must be positive").
		WithHint("use at least 1 worker")

	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Error("validation error should match ErrInvalidConfiguration")
	}

	msg := err.Error()
	for _, want := range []string{"dispatch", "MaxWorkers", "must be positive", "at least 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
