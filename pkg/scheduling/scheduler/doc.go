/*
Package scheduler provides a fixed-size worker pool with an orderly, blocking
shutdown.

A Scheduler owns N long-lived workers and a single unbounded FIFO of signals.
Producers hand it tasks with Create; each task is wrapped in a create signal
and claimed by exactly one idle worker, which runs it on its own goroutine
and then goes back to waiting. Shutdown enqueues one terminate signal per
worker and joins every worker before returning.

Basic usage:

	sched := scheduler.New() // one worker per execution unit
	defer sched.Shutdown()

	sched.Create(scheduler.TaskFunc(func() {
		handle(conn)
	}))

Sizing:

New sizes the pool with runtime.NumCPU. NewWithConfig accepts an explicit
WorkerCount; zero means "detect". Construction panics when the resulting
count is below one. NewSafe reports the same condition as a
*errors.ValidationError instead.

Delivery guarantees:

  - every task passed to Create runs exactly once, on exactly one worker
  - at most WorkerCount tasks run at the same time
  - signals are claimed in the order they were enqueued; there is no
    guarantee about which worker claims which signal, nor about the
    completion order of tasks created concurrently
  - tasks created before Shutdown still run, because their signals precede
    the terminate signals

Tasks close over whatever state they need and are responsible for
synchronising it. Create never blocks and never reports completion; a
producer that needs to wait must use its own side channel.

Failures:

Calling Create after Shutdown has begun panics with an error wrapping
errors.ErrClosed. Submit is the non-panicking variant.

A task that panics is recovered by its worker. The panic is passed to
Config.PanicHandler, or logged with its stack trace when no handler is set,
and counted in TotalFailed. The worker keeps serving, so a misbehaving task
never shrinks the pool.

Metrics:

WithMetrics and NewWithMetrics wrap an Executor with Prometheus collectors
from package metrics: tasks created, executed and failed, execution and
queue wait time, and worker gauges.
*/
package scheduler
