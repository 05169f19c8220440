package paced

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// workItem pairs an operation with the Future its submitter waits on.
type workItem struct {
	id       string
	ctx      context.Context
	op       Operation
	future   *Future
	enqueued time.Time
}

func newWorkItem(ctx context.Context, op Operation, now time.Time) *workItem {
	id := uuid.NewString()
	return &workItem{
		id:       id,
		ctx:      ctx,
		op:       op,
		future:   newFuture(id),
		enqueued: now,
	}
}

// queue is an unbounded FIFO shared by all workers. A single buffered token
// in ready wakes one idle worker; a worker that leaves items behind passes
// the token on so idle workers wake one after another.
type queue struct {
	mu     sync.Mutex
	items  []*workItem
	closed bool
	ready  chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

// push appends an item. It returns false once the queue is closed.
func (q *queue) push(item *workItem) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
	return true
}

// pop blocks until an item is available, the queue is closed, or ctx is done.
func (q *queue) pop(ctx context.Context) (*workItem, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()

			if more {
				q.signal()
			}
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// close marks the queue closed and returns the items that were never claimed.
func (q *queue) close() []*workItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	drained := q.items
	q.items = nil
	return drained
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
