package paced

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/pacer/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter Limiter
	name    string

	mu       sync.RWMutex
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a new limiter with metrics enabled.
func NewWithMetrics(workers int, delay time.Duration, name string) (*MetricsLimiter, error) {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	config := metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	}

	l, err := NewWithConfigAndMetrics(Config{Workers: workers, Delay: delay, Name: name}, name, config)
	if err != nil {
		return nil, err
	}
	return l.(*MetricsLimiter), nil
}

// NewWithConfigAndMetrics creates a new limiter with custom config and metrics.
// With metrics disabled it returns the plain limiter.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) (Limiter, error) {
	if !metricsConfig.Enabled {
		return NewWithConfig(config)
	}

	if config.Name == "" {
		config.Name = name
	}

	registry, err := metricsConfig.Resolve()
	if err != nil {
		return nil, err
	}

	ml := &MetricsLimiter{
		name:     name,
		registry: registry,
		enabled:  true,
	}

	onComplete := config.OnExecuteComplete
	config.OnExecuteComplete = func(workerID int, result Result) {
		defer ml.observeExecution(result)
		if onComplete != nil {
			onComplete(workerID, result)
		}
	}

	onCancel := config.OnCancel
	config.OnCancel = func(itemID string, err error) {
		defer ml.observeCancel()
		if onCancel != nil {
			onCancel(itemID, err)
		}
	}

	onStart := config.OnExecuteStart
	config.OnExecuteStart = func(workerID int, itemID string) {
		defer ml.updateMetrics()
		if onStart != nil {
			onStart(workerID, itemID)
		}
	}

	base, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}
	ml.limiter = base

	// Initialize metrics
	ml.updateMetrics()

	return ml, nil
}

// current returns the active registry, or nil when metrics are disabled.
func (ml *MetricsLimiter) current() *metrics.Registry {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	if !ml.enabled {
		return nil
	}
	return ml.registry
}

// updateMetrics updates the current state metrics.
func (ml *MetricsLimiter) updateMetrics() {
	registry := ml.current()
	if registry == nil || ml.limiter == nil {
		return
	}

	registry.LimiterWorkers.WithLabelValues(ml.name).Set(float64(ml.limiter.Workers()))
	registry.LimiterActive.WithLabelValues(ml.name).Set(float64(ml.limiter.ActiveWorkers()))
	registry.LimiterQueuedItems.WithLabelValues(ml.name).Set(float64(ml.limiter.QueueSize()))
}

func (ml *MetricsLimiter) observeExecution(result Result) {
	registry := ml.current()
	if registry == nil {
		return
	}

	registry.ItemsExecuted.WithLabelValues(ml.name).Inc()
	registry.ExecutionDuration.WithLabelValues(ml.name).Observe(result.Duration.Seconds())
	registry.QueueWaitDuration.WithLabelValues(ml.name).Observe(result.QueueWait.Seconds())

	if result.Err != nil {
		registry.ItemsFailed.WithLabelValues(ml.name).Inc()
	} else {
		registry.ItemsCompleted.WithLabelValues(ml.name).Inc()
	}

	ml.updateMetrics()
}

func (ml *MetricsLimiter) observeCancel() {
	registry := ml.current()
	if registry == nil {
		return
	}

	registry.ItemsCancelled.WithLabelValues(ml.name).Inc()
	ml.updateMetrics()
}

// Start spawns the workers.
func (ml *MetricsLimiter) Start() error {
	err := ml.limiter.Start()
	ml.updateMetrics()
	return err
}

// Stop stops the workers and cancels queued items.
func (ml *MetricsLimiter) Stop() <-chan struct{} {
	done := ml.limiter.Stop()
	ml.updateMetrics()
	return done
}

// Submit queues op for execution.
func (ml *MetricsLimiter) Submit(op Operation) (*Future, error) {
	return ml.SubmitWithContext(context.Background(), op)
}

// SubmitWithContext queues op with a context bound to the work item.
func (ml *MetricsLimiter) SubmitWithContext(ctx context.Context, op Operation) (*Future, error) {
	future, err := ml.limiter.SubmitWithContext(ctx, op)

	if registry := ml.current(); registry != nil && err == nil {
		registry.ItemsSubmitted.WithLabelValues(ml.name).Inc()
		ml.updateMetrics()
	}

	return future, err
}

// Workers returns the number of workers.
func (ml *MetricsLimiter) Workers() int {
	return ml.limiter.Workers()
}

// Delay returns the pacing delay.
func (ml *MetricsLimiter) Delay() time.Duration {
	return ml.limiter.Delay()
}

// State returns the lifecycle state.
func (ml *MetricsLimiter) State() State {
	return ml.limiter.State()
}

// QueueSize returns the number of queued items.
func (ml *MetricsLimiter) QueueSize() int {
	queueSize := ml.limiter.QueueSize()

	if registry := ml.current(); registry != nil {
		registry.LimiterQueuedItems.WithLabelValues(ml.name).Set(float64(queueSize))
	}

	return queueSize
}

// ActiveWorkers returns the number of workers currently executing.
func (ml *MetricsLimiter) ActiveWorkers() int {
	active := ml.limiter.ActiveWorkers()

	if registry := ml.current(); registry != nil {
		registry.LimiterActive.WithLabelValues(ml.name).Set(float64(active))
	}

	return active
}

// TotalSubmitted returns the number of accepted items.
func (ml *MetricsLimiter) TotalSubmitted() int64 {
	return ml.limiter.TotalSubmitted()
}

// TotalCompleted returns the number of executed items.
func (ml *MetricsLimiter) TotalCompleted() int64 {
	return ml.limiter.TotalCompleted()
}

// TotalCancelled returns the number of items resolved without execution.
func (ml *MetricsLimiter) TotalCancelled() int64 {
	return ml.limiter.TotalCancelled()
}

// Registry returns the metrics registry in use, so other components such as
// a feeder can report into the same collectors.
func (ml *MetricsLimiter) Registry() *metrics.Registry {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return ml.registry
}

// EnableMetrics enables metrics collection. A non-nil config.Registry
// switches collection to that registerer; the current registry is kept if
// it cannot be registered.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	var registry *metrics.Registry
	if config.Registry != nil {
		var err error
		if registry, err = config.Resolve(); err != nil {
			return err
		}
	}

	ml.mu.Lock()
	ml.enabled = config.Enabled
	if registry != nil {
		ml.registry = registry
	}
	ml.mu.Unlock()

	ml.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return ml.enabled
}

var (
	_ Limiter                = (*MetricsLimiter)(nil)
	_ metrics.Instrumentable = (*MetricsLimiter)(nil)
)
