/*
Package pacer provides a paced worker-pool limiter for Go applications.

A limiter runs submitted operations on a fixed number of workers. After every
operation a worker waits a fixed delay before claiming the next one, so no
worker starts more than one operation per delay window. Any number of
goroutines may submit concurrently; each gets its own Future.

Rate Limiting (pkg/ratelimit):
  - paced: Paced worker-pool limiter with per-item futures

Scheduling (pkg/scheduling):
  - feeder: Cron schedules that submit work into a limiter

Supporting packages:
  - metrics: Prometheus collectors for limiters and feeders
  - common/errors: Sentinel errors and validation errors

Example usage:

	import "github.com/vnykmshr/pacer/pkg/ratelimit/paced"

	limiter, _ := paced.New(2, time.Second) // 2 workers, 1 call/sec each
	limiter.Start()
	defer limiter.Stop()

	future, err := limiter.Submit(func(ctx context.Context) (any, error) {
		return client.Fetch(ctx)
	})
	if err != nil {
		return err
	}
	value, err := future.Await(ctx)

See the examples directory for complete programs.
*/
package pacer
