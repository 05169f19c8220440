package paced

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/pacer/internal/testutil"
	"github.com/vnykmshr/pacer/pkg/metrics"
)

func TestMetricsLimiter(t *testing.T) {
	registry := prometheus.NewRegistry()
	clock := testutil.NewMockClock(time.Time{})

	var userHookCalls int32
	l, err := NewWithConfigAndMetrics(Config{
		Workers: 1,
		Delay:   time.Second,
		Clock:   clock,
		OnExecuteComplete: func(int, Result) {
			atomic.AddInt32(&userHookCalls, 1)
		},
	}, "api", metrics.Config{Enabled: true, Registry: registry})
	testutil.AssertNoError(t, err)

	ml, ok := l.(*MetricsLimiter)
	if !ok {
		t.Fatalf("expected *MetricsLimiter, got %T", l)
	}
	testutil.AssertEqual(t, ml.MetricsEnabled(), true)
	testutil.AssertNoError(t, ml.Start())

	r := ml.Registry()
	testutil.AssertEqual(t, promtest.ToFloat64(r.LimiterWorkers.WithLabelValues("api")), 1.0)

	ok1, err := ml.Submit(func(ctx context.Context) (any, error) { return 1, nil })
	testutil.AssertNoError(t, err)
	await(t, ok1)

	failed, err := ml.Submit(func(ctx context.Context) (any, error) { return nil, errors.New("x") })
	testutil.AssertNoError(t, err)
	queued, err := ml.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	testutil.AssertNoError(t, err)

	testutil.AssertEventually(t, func() bool { return clock.PendingTimers() == 1 })
	clock.Advance(time.Second)
	await(t, failed)

	<-ml.Stop()
	await(t, queued)

	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsSubmitted.WithLabelValues("api")), 3.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsExecuted.WithLabelValues("api")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsCompleted.WithLabelValues("api")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsFailed.WithLabelValues("api")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsCancelled.WithLabelValues("api")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.LimiterQueuedItems.WithLabelValues("api")), 0.0)
	testutil.AssertEqual(t, atomic.LoadInt32(&userHookCalls), int32(2))
}

func TestMetricsLimiterDisabled(t *testing.T) {
	l, err := NewWithConfigAndMetrics(Config{Workers: 1}, "plain", metrics.Config{Enabled: false})
	testutil.AssertNoError(t, err)

	if _, ok := l.(*MetricsLimiter); ok {
		t.Error("disabled metrics should return the plain limiter")
	}
}

func TestMetricsLimiterRuntimeControl(t *testing.T) {
	ml, err := NewWithMetrics(1, 0, "toggle")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, ml.Start())
	defer ml.Stop()

	r := ml.Registry()
	ml.DisableMetrics()
	testutil.AssertEqual(t, ml.MetricsEnabled(), false)

	f, err := ml.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	testutil.AssertNoError(t, err)
	await(t, f)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsSubmitted.WithLabelValues("toggle")), 0.0)

	fresh := prometheus.NewRegistry()
	testutil.AssertNoError(t, ml.EnableMetrics(metrics.Config{Enabled: true, Registry: fresh}))
	testutil.AssertEqual(t, ml.MetricsEnabled(), true)

	f, err = ml.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	testutil.AssertNoError(t, err)
	await(t, f)
	testutil.AssertEqual(t, promtest.ToFloat64(ml.Registry().ItemsSubmitted.WithLabelValues("toggle")), 1.0)
}

func TestMetricsLimitersShareRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	config := metrics.Config{Enabled: true, Registry: registry}

	a, err := NewWithConfigAndMetrics(Config{Workers: 1}, "a", config)
	testutil.AssertNoError(t, err)
	b, err := NewWithConfigAndMetrics(Config{Workers: 2}, "b", config)
	testutil.AssertNoError(t, err)

	for _, l := range []Limiter{a, b} {
		testutil.AssertNoError(t, l.Start())
		f, err := l.Submit(func(ctx context.Context) (any, error) { return nil, nil })
		testutil.AssertNoError(t, err)
		await(t, f)
		<-l.Stop()
	}

	r := a.(*MetricsLimiter).Registry()
	testutil.AssertEqual(t, r, b.(*MetricsLimiter).Registry())
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsSubmitted.WithLabelValues("a")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsSubmitted.WithLabelValues("b")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.LimiterWorkers.WithLabelValues("b")), 2.0)

	n, err := promtest.GatherAndCount(registry, "pacer_limiter_submitted_total")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, 2)
}

func TestEnableMetricsTwiceWithSameRegistry(t *testing.T) {
	ml, err := NewWithMetrics(1, 0, "again")
	testutil.AssertNoError(t, err)

	config := metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()}
	testutil.AssertNoError(t, ml.EnableMetrics(config))
	first := ml.Registry()
	testutil.AssertNoError(t, ml.EnableMetrics(config))
	testutil.AssertEqual(t, ml.Registry().ItemsSubmitted, first.ItemsSubmitted)
}

func TestMetricsConflictReturnsError(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pacer_limiter_workers",
		Help: "unrelated",
	}, []string{"pool"}))
	config := metrics.Config{Enabled: true, Registry: registry}

	if _, err := NewWithConfigAndMetrics(Config{Workers: 1}, "x", config); err == nil {
		t.Error("expected registration error from NewWithConfigAndMetrics")
	}

	ml, err := NewWithMetrics(1, 0, "y")
	testutil.AssertNoError(t, err)
	before := ml.Registry()
	testutil.AssertError(t, ml.EnableMetrics(config))
	testutil.AssertEqual(t, ml.Registry(), before)
}

func TestMetricsSurvivePanickingHook(t *testing.T) {
	registry := prometheus.NewRegistry()
	l, err := NewWithConfigAndMetrics(Config{
		Workers:           1,
		OnExecuteComplete: func(int, Result) { panic("hook") },
	}, "panicky", metrics.Config{Enabled: true, Registry: registry})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, l.Start())
	defer l.Stop()

	f, err := l.Submit(func(ctx context.Context) (any, error) { return 1, nil })
	testutil.AssertNoError(t, err)
	await(t, f)

	r := l.(*MetricsLimiter).Registry()
	testutil.AssertEqual(t, promtest.ToFloat64(r.ItemsExecuted.WithLabelValues("panicky")), 1.0)
}

func TestNewWithMetricsValidation(t *testing.T) {
	if _, err := NewWithMetrics(0, time.Second, "bad"); err == nil {
		t.Error("expected error for zero workers")
	}
}
