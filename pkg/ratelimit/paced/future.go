package paced

import (
	"context"
	"sync"
	"time"

	pferrors "github.com/vnykmshr/pacer/pkg/common/errors"
)

// Future is the completion handle of a submitted operation. It is written
// exactly once, by the worker that executed the operation or by Stop.
type Future struct {
	id    string
	value any
	err   error
	once  sync.Once
	done  chan struct{}
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// ID returns the id of the work item this Future belongs to.
func (f *Future) ID() string {
	return f.id
}

// Done returns a channel that is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await waits for the outcome. If ctx is done first it returns ctx.Err();
// the operation may still run and its outcome is then discarded.
func (f *Future) Await(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// An available outcome wins over a canceled context
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AwaitWithTimeout waits up to timeout for the outcome and returns
// ErrTimeout if it is not available in time.
func (f *Future) AwaitWithTimeout(timeout time.Duration) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-time.After(timeout):
		return nil, pferrors.ErrTimeout
	}
}

// IsComplete checks if the outcome is available without blocking.
func (f *Future) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// complete stores the outcome. Only the first call has any effect; it
// reports whether this call wrote the outcome.
func (f *Future) complete(value any, err error) bool {
	written := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		written = true
	})
	return written
}
