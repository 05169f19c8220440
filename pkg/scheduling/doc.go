/*
Package scheduling provides time-based task scheduling for Go applications.

  - feeder: Cron-style schedules whose ticks are submitted to a paced limiter

Feeder:

	f := feeder.New(limiter, feeder.Config{Name: "sync"})
	f.Add("report", "0 9 * * MON-FRI", buildReport, handleResult) // Weekdays at 9 AM
	f.Start()
	defer f.Stop()
*/
package scheduling
