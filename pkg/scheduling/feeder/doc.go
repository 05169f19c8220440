// Package feeder drives a paced limiter from cron schedules.
//
// A Feeder owns a robfig/cron scheduler. Every entry pairs a cron
// expression with an operation; on each tick the operation is submitted to
// the limiter, which queues and paces it like any other caller's work. The
// outcome of each tick is handed to the entry's Handler.
//
// Basic usage:
//
//	limiter, _ := paced.New(2, time.Second)
//	limiter.Start()
//	defer limiter.Stop()
//
//	f := feeder.New(limiter, feeder.Config{Name: "sync"})
//	f.Add("refresh", "@every 30s", refresh, func(r feeder.Result) {
//		if r.Err != nil {
//			log.Printf("refresh failed: %v", r.Err)
//		}
//	})
//	f.Start()
//	defer f.Stop()
//
// Expressions accept an optional leading seconds field and the standard
// descriptors (@hourly, @daily, @every <duration>).
package feeder
