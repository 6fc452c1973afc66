package scheduler_test

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
)

// Example demonstrates handing tasks to the scheduler and shutting it down.
func Example() {
	sched := scheduler.NewWithConfig(scheduler.Config{WorkerCount: 4})

	var hits atomic.Int64
	for i := 0; i < 100; i++ {
		sched.Create(scheduler.TaskFunc(func() {
			hits.Add(1)
		}))
	}

	// Shutdown blocks until every worker has exited; queued tasks run first.
	sched.Shutdown()
	fmt.Println("hits:", hits.Load())

	// Output:
	// hits: 100
}

// Example_completionSignal shows a producer waiting for its own task using
// a side channel, since Create returns before the task runs.
func Example_completionSignal() {
	sched := scheduler.NewWithConfig(scheduler.Config{WorkerCount: 2})
	defer sched.Shutdown()

	done := make(chan string, 1)
	sched.Create(scheduler.TaskFunc(func() {
		done <- "handled"
	}))

	fmt.Println(<-done)

	// Output:
	// handled
}

// Example_sharedState shows tasks protecting the state they close over.
func Example_sharedState() {
	sched := scheduler.NewWithConfig(scheduler.Config{WorkerCount: 4})

	var mu sync.Mutex
	total := 0
	for i := 1; i <= 10; i++ {
		n := i
		sched.Create(scheduler.TaskFunc(func() {
			mu.Lock()
			total += n
			mu.Unlock()
		}))
	}
	sched.Shutdown()

	fmt.Println("total:", total)

	// Output:
	// total: 55
}
