package paced

import (
	"context"
)

// Run starts l, calls fn with it, and stops l on every exit path of fn,
// including a panic. After fn returns, Run waits for the workers to exit or
// for ctx to be done, whichever comes first. It returns fn's error.
func Run(ctx context.Context, l Limiter, fn func(Limiter) error) error {
	if err := l.Start(); err != nil {
		return err
	}

	defer func() {
		done := l.Stop()
		if ctx == nil {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
		}
	}()

	return fn(l)
}

// RunWithConfig builds a limiter from config and runs fn inside it, as Run.
func RunWithConfig(ctx context.Context, config Config, fn func(Limiter) error) error {
	l, err := NewWithConfig(config)
	if err != nil {
		return err
	}
	return Run(ctx, l, fn)
}

// Do submits fn to l and waits for its outcome. Waiting stops early when ctx
// is done; ctx is also bound to the work item.
func Do[T any](ctx context.Context, l Limiter, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	future, err := l.SubmitWithContext(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	value, err := future.Await(ctx)
	if typed, ok := value.(T); ok {
		return typed, err
	}
	return zero, err
}

// Wrap returns a function with the signature of fn whose every call is
// routed through l.
func Wrap[T any](l Limiter, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, l, fn)
	}
}
