/*
Package ratelimit provides rate limiting primitives for Go applications.

  - paced: Fixed-worker limiter that waits a delay after every operation

Unlike a token bucket, a paced limiter has no burst capacity and no
fractional rates. Its throughput is exactly workers per delay window, and
every submission is queued rather than rejected:

	limiter, _ := paced.New(3, time.Second) // at most 3 calls/sec
	limiter.Start()
	defer limiter.Stop()

	n, err := paced.Do(ctx, limiter, fetchCount)

Limiters are safe for concurrent use and integrate with the context package
for cancellation and timeouts.
*/
package ratelimit
