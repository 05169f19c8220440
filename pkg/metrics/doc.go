// Package metrics provides Prometheus instrumentation for pacer components.
//
// # Quick Start
//
// Enable metrics by using the metrics-enabled constructors:
//
//	limiter, err := paced.NewWithMetrics(2, time.Second, "github_api")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	limiter, err := paced.NewWithConfigAndMetrics(
//		paced.Config{Workers: 4, Delay: 250 * time.Millisecond},
//		"custom_limiter",
//		metrics.Config{Enabled: true, Registry: registry},
//	)
//
// # Available Metrics
//
// Limiter metrics, labelled by limiter_name:
//
//   - pacer_limiter_submitted_total: work items accepted by Submit
//   - pacer_limiter_executed_total: work items run by a worker
//   - pacer_limiter_completed_total: work items that returned a value
//   - pacer_limiter_failed_total: work items whose operation returned an error
//   - pacer_limiter_cancelled_total: queued work items discarded at shutdown
//   - pacer_limiter_execution_duration_seconds: time spent executing
//   - pacer_limiter_queue_wait_seconds: time spent queued before a worker claimed the item
//   - pacer_limiter_workers: configured worker count
//   - pacer_limiter_active_workers: workers currently executing
//   - pacer_limiter_queued_items: items waiting in the submission queue
//
// Feeder metrics, labelled by feeder_name and entry:
//
//   - pacer_feeder_ticks_total: cron ticks that submitted work
//   - pacer_feeder_rejected_total: cron ticks whose submission was rejected
//
// # Runtime Control
//
// Components implementing the Instrumentable interface support runtime control:
//
//	ml.DisableMetrics()
//	ml.EnableMetrics(config)
//	enabled := ml.MetricsEnabled()
package metrics
