package validation

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/hitpool/pkg/common/errors"
)

// check asserts that err is nil when ok, and otherwise a ValidationError
// naming module and field whose message carries hint.
func check(t *testing.T, err error, ok bool, module, field, hint string) {
	t.Helper()
	if ok {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}

	var ve *errors.ValidationError
	if !stderrors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	if ve.Module != module || ve.Field != field {
		t.Errorf("got %s.%s, want %s.%s", ve.Module, ve.Field, module, field)
	}
	if !stderrors.Is(err, errors.ErrInvalidConfiguration) {
		t.Error("expected ErrInvalidConfiguration in chain")
	}
	if !strings.Contains(err.Error(), hint) {
		t.Errorf("error %q missing hint %q", err.Error(), hint)
	}
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name   string
		module string
		field  string
		value  int
		ok     bool
	}{
		{"one worker", "scheduler", "workerCount", 1, true},
		{"no workers", "scheduler", "workerCount", 0, false},
		{"negative job limit", "periodic", "maxJobs", -3, false},
		{"default read buffer", "config", "server.read_buffer", 1024, true},
		{"empty read buffer", "config", "server.read_buffer", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check(t, ValidatePositive(tt.module, tt.field, tt.value), tt.ok, tt.module, tt.field, "greater than 0")
		})
	}
}

func TestValidateNonNegativeDuration(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value time.Duration
		ok    bool
	}{
		{"no read timeout", "ReadTimeout", 0, true},
		{"read timeout", "ReadTimeout", 5 * time.Second, true},
		{"negative redis timeout", "timeout", -time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegativeDuration("server", tt.field, tt.value)
			check(t, err, tt.ok, "server", tt.field, "use 0 to disable the limit")
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	check(t, ValidateNotNil("server", "executor", nil), false, "server", "executor", "provide a valid executor")
	check(t, ValidateNotNil("server", "counter", struct{}{}), true, "", "", "")
}

func TestValidateNotEmpty(t *testing.T) {
	check(t, ValidateNotEmpty("periodic", "name", ""), false, "periodic", "name", "provide a non-empty name")
	check(t, ValidateNotEmpty("periodic", "name", "hit-report"), true, "", "", "")
}

func TestValidateOneOf(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"memory", true},
		{"redis", true},
		{"Redis", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := ValidateOneOf("config", "counter.backend", tt.value, "memory", "redis")
			check(t, err, tt.ok, "config", "counter.backend", "use one of: memory, redis")
		})
	}
}
