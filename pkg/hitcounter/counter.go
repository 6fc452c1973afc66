// Package hitcounter provides the shared request counter that acceptor tasks
// close over. Implementations are safe for concurrent use; the scheduler
// itself gives tasks no mutual exclusion.
package hitcounter

import (
	"context"
	"sync"

	"github.com/vnykmshr/hitpool/pkg/metrics"
)

// Counter is a monotonically increasing hit counter.
type Counter interface {
	// Increment adds one hit and returns the new total.
	Increment(ctx context.Context) (uint64, error)

	// Value returns the current total.
	Value(ctx context.Context) (uint64, error)
}

// Memory is an in-process Counter guarded by a mutex.
type Memory struct {
	mu   sync.Mutex
	hits uint64
}

// NewMemory returns a Memory counter starting at zero.
func NewMemory() *Memory {
	return &Memory{}
}

// Increment implements Counter.
func (m *Memory) Increment(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
	return m.hits, nil
}

// Value implements Counter.
func (m *Memory) Value(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, nil
}

// Instrumented publishes every observed total to the hits gauge.
type Instrumented struct {
	Counter
	name     string
	registry *metrics.Registry
}

// WithMetrics wraps c so that Increment and Value update the hits gauge
// labelled with name. A nil registry selects metrics.Default().
func WithMetrics(c Counter, name string, registry *metrics.Registry) *Instrumented {
	if registry == nil {
		registry = metrics.Default()
	}
	return &Instrumented{Counter: c, name: name, registry: registry}
}

// Increment implements Counter.
func (i *Instrumented) Increment(ctx context.Context) (uint64, error) {
	n, err := i.Counter.Increment(ctx)
	if err == nil {
		i.registry.Hits.WithLabelValues(i.name).Set(float64(n))
	}
	return n, err
}

// Value implements Counter.
func (i *Instrumented) Value(ctx context.Context) (uint64, error) {
	n, err := i.Counter.Value(ctx)
	if err == nil {
		i.registry.Hits.WithLabelValues(i.name).Set(float64(n))
	}
	return n, err
}
