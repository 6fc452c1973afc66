package scheduler

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/common/validation"
)

const moduleName = "scheduler"

// Task represents a unit of work. A created task is run exactly once, by
// exactly one worker.
type Task interface {
	Run()
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func()

// Run implements the Task interface for TaskFunc.
func (f TaskFunc) Run() {
	f()
}

// Executor is the task submission surface shared by Scheduler and
// MetricsScheduler.
type Executor interface {
	// Create enqueues a task and returns immediately.
	// It panics if the executor has been shut down.
	Create(task Task)

	// Submit is the error-returning form of Create.
	Submit(task Task) error

	// Shutdown stops every worker once the signals queued ahead of the
	// shutdown have been claimed, and blocks until all workers have exited.
	Shutdown()

	// Size returns the number of workers.
	Size() int

	// QueueSize returns the number of signals waiting to be claimed.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently running a task.
	ActiveWorkers() int

	// TotalCreated returns the number of tasks accepted for execution.
	TotalCreated() int64

	// TotalCompleted returns the number of tasks that finished running,
	// including those that panicked.
	TotalCompleted() int64

	// TotalFailed returns the number of tasks that panicked.
	TotalFailed() int64
}

// Config holds configuration options for creating a Scheduler.
type Config struct {
	// WorkerCount is the number of workers. Zero sizes the pool to the
	// number of execution units available to the process.
	WorkerCount int

	// Logger receives shutdown progress and task failures.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// PanicHandler is called on the worker goroutine when a task panics.
	// If nil, the panic and its stack trace are logged at error level.
	// Either way the worker keeps serving signals.
	PanicHandler func(workerID int, recovered interface{})

	// OnWorkerStart is called on the worker goroutine before its first claim.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called on the worker goroutine as it exits.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int)

	// OnTaskComplete is called after a task finishes. err is non-nil when
	// the task panicked.
	OnTaskComplete func(workerID int, duration time.Duration, err error)
}

// Scheduler owns a fixed set of workers and the queue they claim signals from.
type Scheduler struct {
	config  Config
	logger  *slog.Logger
	workers []*worker
	queue   *signalQueue

	mu           sync.RWMutex
	isShutdown   bool
	shutdownOnce sync.Once
	done         chan struct{}

	active    atomic.Int64
	created   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// executionUnits reports the parallelism available to the process.
var executionUnits = runtime.NumCPU

// New creates a Scheduler with one worker per execution unit.
func New() *Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a Scheduler with the specified configuration.
// It panics if the resulting worker count is less than one: a process that
// cannot see a single execution unit is not in a state worth continuing.
func NewWithConfig(config Config) *Scheduler {
	s, err := NewSafe(config)
	if err != nil {
		panic(fmt.Errorf("unable to determine the number of execution units to assign to workers: %w", err))
	}
	return s
}

// NewSafe creates a Scheduler with validation that returns an error instead of panicking.
func NewSafe(config Config) (*Scheduler, error) {
	if config.WorkerCount == 0 {
		config.WorkerCount = executionUnits()
	}
	if err := validation.ValidatePositive(moduleName, "workerCount", config.WorkerCount); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		config: config,
		logger: logger,
		queue:  newSignalQueue(),
		done:   make(chan struct{}),
	}

	s.workers = make([]*worker, config.WorkerCount)
	for id := range s.workers {
		s.workers[id] = startWorker(id, s)
	}

	return s, nil
}

// Create wraps task in a create signal and enqueues it for the next idle
// worker. It never waits for execution.
//
// Calling Create after Shutdown has begun is a programming error and panics
// with an error wrapping errors.ErrClosed.
func (s *Scheduler) Create(task Task) {
	if err := s.Submit(task); err != nil {
		panic(err)
	}
}

// Submit enqueues task like Create but reports failures as errors.
func (s *Scheduler) Submit(task Task) error {
	if task == nil {
		return hperrors.NewValidationError(moduleName, "task", nil, "cannot be nil")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isShutdown {
		return hperrors.NewOperationError(moduleName, "Create", hperrors.ErrClosed).
			WithContext("scheduler has been shut down")
	}

	s.created.Add(1)
	if err := s.queue.push(signal{kind: createTask, task: task}); err != nil {
		s.created.Add(-1)
		return hperrors.NewOperationError(moduleName, "Create", err)
	}
	return nil
}

// Shutdown enqueues one terminate signal per worker and joins the workers
// in id order. Tasks created before Shutdown still run, since their signals
// precede every terminate signal in the queue. Only the first call does the
// work; concurrent and later calls block until it has finished.
//
// Shutdown must not be called from inside a task: the calling worker would
// wait on itself.
func (s *Scheduler) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.isShutdown = true
		for range s.workers {
			if err := s.queue.push(signal{kind: terminateTask}); err != nil {
				s.logger.Error("unable to signal worker termination", "error", err)
			}
		}
		s.mu.Unlock()

		for _, w := range s.workers {
			s.logger.Info("Shutting down worker", "worker", w.id)
			<-w.done
		}

		s.queue.close()
		close(s.done)
	})
	<-s.done
}

// Close implements io.Closer by calling Shutdown.
func (s *Scheduler) Close() error {
	s.Shutdown()
	return nil
}

// Done returns a channel that is closed once Shutdown has joined every worker.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Size returns the number of workers.
func (s *Scheduler) Size() int {
	return len(s.workers)
}

// QueueSize returns the number of signals waiting to be claimed.
func (s *Scheduler) QueueSize() int {
	return s.queue.len()
}

// ActiveWorkers returns the number of workers currently running a task.
func (s *Scheduler) ActiveWorkers() int {
	return int(s.active.Load())
}

// TotalCreated returns the number of tasks accepted for execution.
func (s *Scheduler) TotalCreated() int64 {
	return s.created.Load()
}

// TotalCompleted returns the number of tasks that finished running.
func (s *Scheduler) TotalCompleted() int64 {
	return s.completed.Load()
}

// TotalFailed returns the number of tasks that panicked.
func (s *Scheduler) TotalFailed() int64 {
	return s.failed.Load()
}
