package scheduler

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
)

type signalKind uint8

const (
	// createTask carries one task to execute.
	createTask signalKind = iota
	// terminateTask tells the receiving worker to leave its loop.
	terminateTask
)

type signal struct {
	kind signalKind
	task Task
}

// signalQueue is an unbounded FIFO shared by every worker. A signal is
// removed under mu, so each one is claimed by exactly one worker.
type signalQueue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  *linkedlistqueue.Queue
	closed bool
}

func newSignalQueue() *signalQueue {
	q := &signalQueue{items: linkedlistqueue.New()}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// push appends sig. It fails with ErrClosed once the queue has been closed.
func (q *signalQueue) push(sig signal) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return hperrors.ErrClosed
	}
	q.items.Enqueue(sig)
	q.ready.Signal()
	return nil
}

// pop blocks until a signal is available and claims it. The second result is
// false when the queue was closed; unclaimed signals are discarded then.
func (q *signalQueue) pop() (signal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Empty() && !q.closed {
		q.ready.Wait()
	}
	if q.closed {
		return signal{}, false
	}

	v, _ := q.items.Dequeue()
	return v.(signal), true
}

// close destroys the receiving side and wakes every blocked pop.
func (q *signalQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items.Clear()
	q.ready.Broadcast()
}

func (q *signalQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Size()
}
