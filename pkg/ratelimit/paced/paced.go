package paced

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	pfcontext "github.com/vnykmshr/pacer/pkg/common/context"
	pferrors "github.com/vnykmshr/pacer/pkg/common/errors"
)

// Start spawns the configured number of workers.
func (l *pacedLimiter) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateInactive {
		return fmt.Errorf("cannot start limiter %q (%s): %w", l.config.Name, l.state, pferrors.ErrAlreadyStarted)
	}
	l.state = StateActive

	l.workers = make([]*worker, l.config.Workers)
	for i := range l.workers {
		l.workers[i] = &worker{id: i, limiter: l}
		l.workerWg.Add(1)
		go l.workers[i].run()
	}

	go func() {
		l.workerWg.Wait()
		close(l.done)
	}()

	l.logger.Debug("limiter started", "workers", l.config.Workers, "delay", l.config.Delay)
	return nil
}

// Stop stops the workers and cancels queued items.
func (l *pacedLimiter) Stop() <-chan struct{} {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		previous := l.state
		l.state = StateStopped
		l.mu.Unlock()

		// Close the queue before signalling workers so nothing is claimed
		// after the drain.
		drained := l.queue.close()
		l.cancel()

		for _, item := range drained {
			l.discard(item, pferrors.ErrCancelled)
		}

		if previous != StateActive {
			close(l.done)
		}

		l.logger.Debug("limiter stopped", "drained", len(drained))
	})

	return l.done
}

// Submit queues op for execution.
func (l *pacedLimiter) Submit(op Operation) (*Future, error) {
	return l.SubmitWithContext(context.Background(), op)
}

// SubmitWithContext queues op with a context bound to the work item.
func (l *pacedLimiter) SubmitWithContext(ctx context.Context, op Operation) (*Future, error) {
	if op == nil {
		return nil, pferrors.NewValidationError("paced", "operation", nil, "cannot be nil").
			WithHint("provide a valid operation")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled before attempting to queue
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cannot submit: context canceled: %w", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state != StateActive {
		return nil, fmt.Errorf("cannot submit to limiter %q: %w", l.config.Name, pferrors.ErrNotActive)
	}

	item := newWorkItem(ctx, op, l.clock.Now())
	if !l.queue.push(item) {
		return nil, fmt.Errorf("cannot submit to limiter %q: %w", l.config.Name, pferrors.ErrNotActive)
	}
	l.totalSubmitted.Add(1)

	return item.future, nil
}

// Workers returns the number of workers.
func (l *pacedLimiter) Workers() int {
	return l.config.Workers
}

// Delay returns the pacing delay.
func (l *pacedLimiter) Delay() time.Duration {
	return l.config.Delay
}

// State returns the lifecycle state.
func (l *pacedLimiter) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// QueueSize returns the number of queued items.
func (l *pacedLimiter) QueueSize() int {
	return l.queue.len()
}

// ActiveWorkers returns the number of workers currently executing.
func (l *pacedLimiter) ActiveWorkers() int {
	return int(l.activeWorkers.Load())
}

// TotalSubmitted returns the number of accepted items.
func (l *pacedLimiter) TotalSubmitted() int64 {
	return l.totalSubmitted.Load()
}

// TotalCompleted returns the number of executed items.
func (l *pacedLimiter) TotalCompleted() int64 {
	return l.totalCompleted.Load()
}

// TotalCancelled returns the number of items resolved without execution.
func (l *pacedLimiter) TotalCancelled() int64 {
	return l.totalCancelled.Load()
}

// discard resolves an item that will never execute.
func (l *pacedLimiter) discard(item *workItem, err error) {
	l.totalCancelled.Add(1)
	if l.config.OnCancel != nil {
		l.hook("OnCancel", func() { l.config.OnCancel(item.id, err) })
	}
	item.future.complete(nil, err)
}

// hook runs a user callback. A panic in it is logged and does not reach the
// worker, so the item's Future is still completed.
func (l *pacedLimiter) hook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}

// run is the main loop for a worker.
func (w *worker) run() {
	l := w.limiter
	defer l.workerWg.Done()

	if l.config.OnWorkerStart != nil {
		l.hook("OnWorkerStart", func() { l.config.OnWorkerStart(w.id) })
	}
	if l.config.OnWorkerStop != nil {
		defer l.hook("OnWorkerStop", func() { l.config.OnWorkerStop(w.id) })
	}
	l.logger.Debug("worker started", "worker", w.id)
	defer l.logger.Debug("worker stopped", "worker", w.id)

	for {
		item, ok := l.queue.pop(l.ctx)
		if !ok {
			return
		}

		if !w.process(item) {
			continue
		}

		if !w.pace() {
			return
		}
	}
}

// process executes a claimed item and delivers its outcome. It returns false
// if the item was skipped without executing.
func (w *worker) process(item *workItem) bool {
	l := w.limiter
	claimed := l.clock.Now()

	// The submitter gave up while the item was queued
	if err := item.ctx.Err(); err != nil {
		l.discard(item, err)
		return false
	}

	l.activeWorkers.Add(1)
	defer l.activeWorkers.Add(-1)

	if l.config.OnExecuteStart != nil {
		l.hook("OnExecuteStart", func() { l.config.OnExecuteStart(w.id, item.id) })
	}

	value, err := w.execute(item)

	result := Result{
		ItemID:    item.id,
		Value:     value,
		Err:       err,
		QueueWait: claimed.Sub(item.enqueued),
		Duration:  l.clock.Now().Sub(claimed),
		WorkerID:  w.id,
	}

	l.totalCompleted.Add(1)
	if l.config.OnExecuteComplete != nil {
		l.hook("OnExecuteComplete", func() { l.config.OnExecuteComplete(w.id, result) })
	}

	item.future.complete(value, err)
	return true
}

// execute runs the operation, converting a panic into an error outcome.
func (w *worker) execute(item *workItem) (value any, err error) {
	ctx, cancel := pfcontext.Merge(item.ctx, w.limiter.ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = pferrors.NewOperationError("paced", "Execute", fmt.Errorf("%w: %v", pferrors.ErrPanicked, r)).
				WithContext(fmt.Sprintf("worker %d", w.id))
			w.limiter.logger.Warn("operation panicked",
				"worker", w.id,
				"item", item.id,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	return item.op(ctx)
}

// pace waits out the delay before the next claim. It returns false if the
// limiter stopped while waiting.
func (w *worker) pace() bool {
	l := w.limiter
	if l.config.Delay <= 0 {
		return l.ctx.Err() == nil
	}

	select {
	case <-l.clock.After(l.config.Delay):
		return true
	case <-l.ctx.Done():
		return false
	}
}
