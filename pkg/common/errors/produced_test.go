package errors_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/hitpool/internal/config"
	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/hitcounter"
	"github.com/vnykmshr/hitpool/pkg/ratelimit/admission"
	"github.com/vnykmshr/hitpool/pkg/scheduling/periodic"
	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
	"github.com/vnykmshr/hitpool/pkg/server"
)

func quietScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.NewWithConfig(scheduler.Config{
		WorkerCount: 1,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(s.Shutdown)
	return s
}

// silentRedis accepts connections and never answers, so every call runs
// into its deadline.
func silentRedis(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				for _, c := range conns {
					c.Close()
				}
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})
	return ln.Addr().String()
}

// TestProducedErrors checks the errors each package actually returns against
// the sentinels and classifiers callers rely on.
func TestProducedErrors(t *testing.T) {
	tests := []struct {
		name       string
		produce    func(t *testing.T) error
		is         error
		retryable  bool
		temporary  bool
		validation bool
		contains   string
	}{
		{
			name: "scheduler submit after shutdown",
			produce: func(t *testing.T) error {
				s := quietScheduler(t)
				s.Shutdown()
				return s.Submit(scheduler.TaskFunc(func() {}))
			},
			is:       hperrors.ErrClosed,
			contains: "scheduler.Create failed: resource is closed",
		},
		{
			name: "scheduler negative worker count",
			produce: func(t *testing.T) error {
				_, err := scheduler.NewSafe(scheduler.Config{WorkerCount: -1})
				return err
			},
			is:         hperrors.ErrInvalidConfiguration,
			validation: true,
			contains:   "scheduler: invalid workerCount=-1",
		},
		{
			name: "periodic job limit",
			produce: func(t *testing.T) error {
				r, err := periodic.New(quietScheduler(t), periodic.Config{MaxJobs: 1})
				if err != nil {
					return err
				}
				task := scheduler.TaskFunc(func() {})
				if err := r.Add("first", "@every 1m", task); err != nil {
					t.Fatalf("first Add: %v", err)
				}
				return r.Add("second", "@every 1m", task)
			},
			is:        hperrors.ErrCapacityExceeded,
			temporary: true,
			contains:  "limit of 1 jobs reached",
		},
		{
			name: "periodic bad spec",
			produce: func(t *testing.T) error {
				return periodic.ValidateSpec("whenever")
			},
			is:         hperrors.ErrInvalidConfiguration,
			validation: true,
			contains:   "descriptor such as @every 30s",
		},
		{
			name: "hitcounter deadline",
			produce: func(t *testing.T) error {
				client := redis.NewClient(&redis.Options{Addr: silentRedis(t), MaxRetries: -1})
				defer client.Close()
				c, err := hitcounter.NewRedis(hitcounter.RedisConfig{Client: client, Key: "hits:deadline", Timeout: 50 * time.Millisecond})
				if err != nil {
					return err
				}
				_, err = c.Increment(context.Background())
				return err
			},
			is:        hperrors.ErrTimeout,
			retryable: true,
			temporary: true,
			contains:  "hitcounter.Increment failed",
		},
		{
			name: "config unknown counter backend",
			produce: func(t *testing.T) error {
				path := filepath.Join(t.TempDir(), "config.yaml")
				if err := os.WriteFile(path, []byte("counter:\n  backend: etcd\n"), 0o600); err != nil {
					t.Fatal(err)
				}
				_, err := config.Load(path)
				return err
			},
			is:         hperrors.ErrInvalidConfiguration,
			validation: true,
			contains:   "use one of: memory, redis",
		},
		{
			name: "server without executor",
			produce: func(t *testing.T) error {
				_, err := server.New(server.Config{}, nil, hitcounter.NewMemory())
				return err
			},
			is:         hperrors.ErrInvalidConfiguration,
			validation: true,
			contains:   "provide a valid executor",
		},
		{
			name: "admission zero rate",
			produce: func(t *testing.T) error {
				_, err := admission.NewSafe(admission.Config{Rate: 0, Burst: 1})
				return err
			},
			is:         hperrors.ErrInvalidConfiguration,
			validation: true,
			contains:   "admission: invalid rate=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.produce(t)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.is)
			}
			if got := hperrors.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if got := hperrors.IsTemporary(err); got != tt.temporary {
				t.Errorf("IsTemporary = %v, want %v", got, tt.temporary)
			}
			if got := hperrors.IsValidationError(err); got != tt.validation {
				t.Errorf("IsValidationError = %v, want %v", got, tt.validation)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.contains)
			}
		})
	}
}
