package scheduler

import (
	"fmt"
	"runtime/debug"
	"time"
)

// worker is one long-lived execution context of a Scheduler.
type worker struct {
	id    int
	sched *Scheduler
	done  chan struct{}
}

func startWorker(id int, s *Scheduler) *worker {
	w := &worker{
		id:    id,
		sched: s,
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// run is the main loop for a worker. The queue lock is held only while a
// signal is claimed; the task itself runs after the lock is released so the
// other workers can claim the next signal meanwhile.
func (w *worker) run() {
	defer close(w.done)

	s := w.sched
	if s.config.OnWorkerStart != nil {
		s.config.OnWorkerStart(w.id)
	}
	if s.config.OnWorkerStop != nil {
		defer s.config.OnWorkerStop(w.id)
	}

	for {
		sig, ok := s.queue.pop()
		if !ok {
			s.logger.Error("signal queue closed unexpectedly, stopping worker", "worker", w.id)
			return
		}

		switch sig.kind {
		case createTask:
			w.execute(sig.task)
		case terminateTask:
			s.logger.Debug("worker received terminate signal", "worker", w.id)
			return
		}
	}
}

// execute runs a single task, isolating panics so the worker survives them.
func (w *worker) execute(task Task) {
	s := w.sched
	start := time.Now()
	s.active.Add(1)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			s.failed.Add(1)
			if s.config.PanicHandler != nil {
				s.config.PanicHandler(w.id, r)
			} else {
				s.logger.Error("task panicked", "worker", w.id, "panic", r, "stack", string(debug.Stack()))
			}
		}

		s.active.Add(-1)
		s.completed.Add(1)

		if s.config.OnTaskComplete != nil {
			s.config.OnTaskComplete(w.id, time.Since(start), err)
		}
	}()

	if s.config.OnTaskStart != nil {
		s.config.OnTaskStart(w.id)
	}
	task.Run()
}
