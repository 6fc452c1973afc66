package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("scheduler", "workerCount", 0, "must be positive")
	if got, want := err.Error(), "scheduler: invalid workerCount=0 (must be positive)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	hinted := err.WithHint("value must be greater than 0")
	if hinted != err {
		t.Error("WithHint should return the receiver for chaining")
	}
	if got, want := err.Error(), "scheduler: invalid workerCount=0 (must be positive) - value must be greater than 0"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOperationErrorMessage(t *testing.T) {
	err := NewOperationError("hitcounter", "Increment", errors.New("connection refused"))
	if got, want := err.Error(), "hitcounter.Increment failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.WithContext("key hitpool:hits")
	if got, want := err.Error(), "hitcounter.Increment failed: connection refused (key hitpool:hits)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassificationThroughWrapping(t *testing.T) {
	timeout := NewOperationError("hitcounter", "Value", errors.Join(ErrTimeout, context.DeadlineExceeded))
	full := NewOperationError("periodic", "Add", ErrCapacityExceeded)
	closed := NewOperationError("scheduler", "Create", ErrClosed)
	invalid := fmt.Errorf("config: %w", NewValidationError("config", "log.level", "loud", "unsupported value"))

	tests := []struct {
		name       string
		err        error
		retryable  bool
		temporary  bool
		validation bool
	}{
		{"joined timeout", timeout, true, true, false},
		{"capacity", full, false, true, false},
		{"closed", closed, false, false, false},
		{"wrapped validation", invalid, false, false, true},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if got := IsTemporary(tt.err); got != tt.temporary {
				t.Errorf("IsTemporary = %v, want %v", got, tt.temporary)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError = %v, want %v", got, tt.validation)
			}
		})
	}

	if !errors.Is(invalid, ErrInvalidConfiguration) {
		t.Error("validation errors should match ErrInvalidConfiguration")
	}
}
