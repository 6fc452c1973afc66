package scheduler

import (
	"time"

	"github.com/vnykmshr/hitpool/pkg/metrics"
)

// MetricsScheduler wraps an Executor with Prometheus metrics collection.
type MetricsScheduler struct {
	exec     Executor
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a Scheduler from config and instruments it.
// A nil registry selects metrics.Default().
func NewWithMetrics(config Config, name string, registry *metrics.Registry) *MetricsScheduler {
	return WithMetrics(NewWithConfig(config), name, registry)
}

// WithMetrics instruments an existing Executor.
func WithMetrics(exec Executor, name string, registry *metrics.Registry) *MetricsScheduler {
	if registry == nil {
		registry = metrics.Default()
	}

	ms := &MetricsScheduler{
		exec:     exec,
		name:     name,
		registry: registry,
	}
	ms.registry.SchedulerWorkers.WithLabelValues(name).Set(float64(exec.Size()))
	ms.registry.SchedulerActive.WithLabelValues(name).Add(0)
	ms.updateMetrics()

	return ms
}

// updateMetrics refreshes the queue gauge from the wrapped executor. The
// active gauge is not sampled: it is moved by each instrumented task, since a
// worker only lowers its own active count after the task has returned.
func (ms *MetricsScheduler) updateMetrics() {
	ms.registry.SchedulerQueued.WithLabelValues(ms.name).Set(float64(ms.exec.QueueSize()))
}

// Create enqueues an instrumented task. It panics after shutdown.
func (ms *MetricsScheduler) Create(task Task) {
	if err := ms.Submit(task); err != nil {
		panic(err)
	}
}

// Submit enqueues an instrumented task.
func (ms *MetricsScheduler) Submit(task Task) error {
	if task == nil {
		return ms.exec.Submit(nil)
	}

	wrapped := &metricsTask{
		original:   task,
		ms:         ms,
		submitTime: time.Now(),
	}
	if err := ms.exec.Submit(wrapped); err != nil {
		return err
	}

	ms.registry.TasksCreated.WithLabelValues(ms.name).Inc()
	ms.updateMetrics()
	return nil
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original   Task
	ms         *MetricsScheduler
	submitTime time.Time
}

// Run records queue wait and execution time around the original task. A
// panic is counted and then re-raised so the worker's recovery still applies.
func (mt *metricsTask) Run() {
	reg := mt.ms.registry
	name := mt.ms.name

	active := reg.SchedulerActive.WithLabelValues(name)
	active.Inc()

	start := time.Now()
	reg.TaskWaitDuration.WithLabelValues(name).Observe(start.Sub(mt.submitTime).Seconds())
	mt.ms.updateMetrics()

	defer func() {
		active.Dec()
		reg.TaskExecutionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		reg.TasksExecuted.WithLabelValues(name).Inc()

		if r := recover(); r != nil {
			reg.TasksFailed.WithLabelValues(name).Inc()
			panic(r)
		}
		mt.ms.updateMetrics()
	}()

	mt.original.Run()
}

// Shutdown shuts down the wrapped executor and refreshes the queue gauge.
func (ms *MetricsScheduler) Shutdown() {
	ms.exec.Shutdown()
	ms.updateMetrics()
}

// Size returns the number of workers.
func (ms *MetricsScheduler) Size() int {
	return ms.exec.Size()
}

// QueueSize returns the number of queued signals.
func (ms *MetricsScheduler) QueueSize() int {
	queued := ms.exec.QueueSize()
	ms.registry.SchedulerQueued.WithLabelValues(ms.name).Set(float64(queued))
	return queued
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (ms *MetricsScheduler) ActiveWorkers() int {
	return ms.exec.ActiveWorkers()
}

// TotalCreated returns the total number of tasks accepted.
func (ms *MetricsScheduler) TotalCreated() int64 {
	return ms.exec.TotalCreated()
}

// TotalCompleted returns the total number of tasks completed.
func (ms *MetricsScheduler) TotalCompleted() int64 {
	return ms.exec.TotalCompleted()
}

// TotalFailed returns the total number of tasks that panicked.
func (ms *MetricsScheduler) TotalFailed() int64 {
	return ms.exec.TotalFailed()
}
