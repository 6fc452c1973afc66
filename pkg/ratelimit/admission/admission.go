// Package admission throttles how fast the acceptor hands connections to the
// scheduler. It is a token bucket: Rate tokens are added per second up to
// Burst, and each admitted connection spends one.
package admission

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/hitpool/pkg/common/errors"
)

const moduleName = "admission"

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// Config holds the bucket parameters.
type Config struct {
	// Rate is the number of connections admitted per second.
	Rate float64

	// Burst is the number of connections that may be admitted back to back.
	Burst int

	// Clock defaults to SystemClock.
	Clock Clock
}

// Limiter is a token bucket. The zero value is not usable; use New or NewSafe.
type Limiter struct {
	mu         sync.Mutex
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// New creates a Limiter and panics on invalid configuration.
func New(rate float64, burst int) *Limiter {
	l, err := NewSafe(Config{Rate: rate, Burst: burst})
	if err != nil {
		panic(err)
	}
	return l
}

// NewSafe creates a Limiter, returning a ValidationError for a non-positive
// rate or burst. The bucket starts full.
func NewSafe(config Config) (*Limiter, error) {
	if config.Rate <= 0 || math.IsNaN(config.Rate) {
		return nil, errors.NewValidationError(moduleName, "rate", config.Rate, "rate must be positive").
			WithHint("leave admission unset to accept connections as fast as they arrive")
	}
	if config.Burst <= 0 {
		return nil, errors.NewValidationError(moduleName, "burst", config.Burst, "burst must be positive").
			WithHint("burst is how many connections may be admitted at once")
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	return &Limiter{
		rate:       config.Rate,
		burst:      config.Burst,
		tokens:     float64(config.Burst),
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}

// Allow admits one connection if a token is available now.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.clock.Now())
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Wait blocks until a token is available or ctx is done. The token is
// claimed up front, so concurrent waiters are admitted in arrival order.
func (l *Limiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	delay := l.reserve()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		l.release()
		return ctx.Err()
	}
}

// Tokens returns the number of tokens currently available. It is negative
// while waiters hold reservations.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(l.clock.Now())
	return l.tokens
}

// reserve spends one token, possibly going into debt, and returns how long
// the caller must wait before acting on it.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.clock.Now())
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

func (l *Limiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(l.clock.Now())
	l.tokens = math.Min(l.tokens+1, float64(l.burst))
}

func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastUpdate)
	if elapsed <= 0 {
		return
	}
	l.tokens = math.Min(l.tokens+elapsed.Seconds()*l.rate, float64(l.burst))
	l.lastUpdate = now
}
