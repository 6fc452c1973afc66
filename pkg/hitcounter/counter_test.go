package hitcounter

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/hitpool/internal/testutil"
	"github.com/vnykmshr/hitpool/pkg/metrics"
	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
)

func TestMemoryIncrement(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	n, err := c.Value(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, uint64(0))

	for want := uint64(1); want <= 3; want++ {
		n, err := c.Increment(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, n, want)
	}
}

func TestMemoryConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var wg sync.WaitGroup
	seen := make([]bool, 1001)
	var mu sync.Mutex
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				n, _ := c.Increment(ctx)
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	n, _ := c.Value(ctx)
	testutil.AssertEqual(t, n, uint64(1000))
	for i := 1; i <= 1000; i++ {
		if !seen[i] {
			t.Fatalf("total %d was never returned by Increment", i)
		}
	}
}

func TestMemoryThroughScheduler(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	sched := scheduler.NewWithConfig(scheduler.Config{WorkerCount: 4})

	var producers sync.WaitGroup
	for p := 0; p < 4; p++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for i := 0; i < 250; i++ {
				sched.Create(scheduler.TaskFunc(func() {
					_, _ = c.Increment(ctx)
				}))
			}
		}()
	}
	producers.Wait()
	sched.Shutdown()

	n, err := c.Value(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, uint64(1000))
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	c := WithMetrics(NewMemory(), "memory", registry)

	for i := 0; i < 7; i++ {
		_, err := c.Increment(ctx)
		testutil.AssertNoError(t, err)
	}

	testutil.AssertEqual(t, promtest.ToFloat64(registry.Hits.WithLabelValues("memory")), 7.0)

	n, err := c.Value(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, uint64(7))
}
