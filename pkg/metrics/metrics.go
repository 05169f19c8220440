// Package metrics provides Prometheus instrumentation for pacer components.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metric instances for pacer components.
type Registry struct {
	// Limiter Metrics
	ItemsSubmitted     *prometheus.CounterVec
	ItemsExecuted      *prometheus.CounterVec
	ItemsCompleted     *prometheus.CounterVec
	ItemsFailed        *prometheus.CounterVec
	ItemsCancelled     *prometheus.CounterVec
	ExecutionDuration  *prometheus.HistogramVec
	QueueWaitDuration  *prometheus.HistogramVec
	LimiterWorkers     *prometheus.GaugeVec
	LimiterActive      *prometheus.GaugeVec
	LimiterQueuedItems *prometheus.GaugeVec

	// Feeder Metrics
	FeederTicks    *prometheus.CounterVec
	FeederRejected *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by pacer components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// It panics if the collectors conflict with ones already registered under
// the same names.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithNamespace(reg, DefaultNamespace)
}

// NewRegistryWithNamespace creates a registry whose metric names use namespace
// instead of the default "pacer". It panics where Register would fail.
func NewRegistryWithNamespace(reg prometheus.Registerer, namespace string) *Registry {
	r, err := Register(reg, namespace)
	if err != nil {
		panic(err)
	}
	return r
}

// Register registers the pacer collectors with reg. Collectors already
// registered with reg by an earlier call are reused, so several limiters can
// share one Prometheus registry and tell themselves apart by label.
func Register(reg prometheus.Registerer, namespace string) (*Registry, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := &registrar{reg: reg}
	limiterLabels := []string{"limiter_name"}

	r := &Registry{
		ItemsSubmitted: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "submitted_total",
				Help:      "Total number of work items accepted by the limiter",
			},
			limiterLabels,
		),

		ItemsExecuted: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "executed_total",
				Help:      "Total number of work items executed by a worker",
			},
			limiterLabels,
		),

		ItemsCompleted: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "completed_total",
				Help:      "Total number of work items that returned a value",
			},
			limiterLabels,
		),

		ItemsFailed: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "failed_total",
				Help:      "Total number of work items whose operation returned an error",
			},
			limiterLabels,
		),

		ItemsCancelled: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "cancelled_total",
				Help:      "Total number of queued work items discarded at shutdown",
			},
			limiterLabels,
		),

		ExecutionDuration: histogramVec(factory,
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "execution_duration_seconds",
				Help:      "Time spent executing work items",
				Buckets:   prometheus.DefBuckets,
			},
			limiterLabels,
		),

		QueueWaitDuration: histogramVec(factory,
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "queue_wait_seconds",
				Help:      "Time work items spent queued before a worker claimed them",
				Buckets:   prometheus.DefBuckets,
			},
			limiterLabels,
		),

		LimiterWorkers: gaugeVec(factory,
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "workers",
				Help:      "Configured number of workers",
			},
			limiterLabels,
		),

		LimiterActive: gaugeVec(factory,
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "active_workers",
				Help:      "Number of workers currently executing an item",
			},
			limiterLabels,
		),

		LimiterQueuedItems: gaugeVec(factory,
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "limiter",
				Name:      "queued_items",
				Help:      "Number of work items waiting in the submission queue",
			},
			limiterLabels,
		),

		FeederTicks: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feeder",
				Name:      "ticks_total",
				Help:      "Total number of cron ticks that produced a submission",
			},
			[]string{"feeder_name", "entry"},
		),

		FeederRejected: counterVec(factory,
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feeder",
				Name:      "rejected_total",
				Help:      "Total number of cron ticks whose submission was rejected",
			},
			[]string{"feeder_name", "entry"},
		),
	}

	if factory.err != nil {
		return nil, factory.err
	}
	return r, nil
}

// registrar registers collectors and keeps the first failure.
type registrar struct {
	reg prometheus.Registerer
	err error
}

func counterVec(r *registrar, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	return register(r, prometheus.NewCounterVec(opts, labels))
}

func histogramVec(r *registrar, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	return register(r, prometheus.NewHistogramVec(opts, labels))
}

func gaugeVec(r *registrar, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	return register(r, prometheus.NewGaugeVec(opts, labels))
}

// register adds c to the registerer, returning the existing collector when an
// identical one is already registered.
func register[C prometheus.Collector](r *registrar, c C) C {
	if r.err != nil {
		return c
	}

	err := r.reg.Register(c)
	if err == nil {
		return c
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}

	r.err = fmt.Errorf("register pacer metrics: %w", err)
	return c
}
