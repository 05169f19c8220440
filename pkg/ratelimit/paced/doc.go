/*
Package paced provides a paced worker-pool limiter for calls to rate-limited
resources.

A Limiter owns an unbounded submission queue and a fixed number of workers.
Each worker claims one item, executes it, delivers its outcome to the item's
Future, then waits the configured delay before claiming the next item. At most
Workers operations execute at once, and each worker runs at most one operation
per (execution time + Delay).

Basic usage:

	limiter, err := paced.New(2, time.Second) // 2 workers, 1s between calls per worker
	if err != nil {
		log.Fatal(err)
	}
	if err := limiter.Start(); err != nil {
		log.Fatal(err)
	}
	defer limiter.Stop()

	future, err := limiter.Submit(func(ctx context.Context) (any, error) {
		return client.Get(ctx, "/repos")
	})
	if err != nil {
		return err // ErrNotActive
	}
	repos, err := future.Await(ctx)

Scoped usage stops the workers on every exit path:

	err := paced.Run(ctx, limiter, func(l paced.Limiter) error {
		user, err := paced.Do(ctx, l, fetchUser)
		...
	})

Lifecycle:

A limiter is created inactive. Start spawns the workers; Submit before Start
or after Stop fails with ErrNotActive. Stop is non-blocking and may be called
more than once. It resolves every item still queued with ErrCancelled without
running it and cancels the context passed to operations that are already
executing. Those operations finish and deliver their outcome; cancellation of
running work is advisory.

Failures:

An error returned by an operation is delivered unchanged to its submitter.
A panic is recovered and delivered as an *errors.OperationError wrapping
ErrPanicked. Neither affects other items or the worker, which paces and
continues as after a success.

Ordering:

The queue is FIFO across the whole pool, but items claimed by different
workers complete in no particular order.
*/
package paced
