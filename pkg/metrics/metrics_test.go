package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryWithNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistryWithNamespace(reg, "myapp")

	r.ItemsCancelled.WithLabelValues("api").Inc()

	expected := `
# HELP myapp_limiter_cancelled_total Total number of queued work items discarded at shutdown
# TYPE myapp_limiter_cancelled_total counter
myapp_limiter_cancelled_total{limiter_name="api"} 1
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "myapp_limiter_cancelled_total"); err != nil {
		t.Error(err)
	}
}

func TestEmptyNamespaceFallsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistryWithNamespace(reg, "")

	r.LimiterWorkers.WithLabelValues("api").Set(3)

	if got := promtest.ToFloat64(r.LimiterWorkers.WithLabelValues("api")); got != 3 {
		t.Errorf("workers gauge = %v, want 3", got)
	}
	if n, err := promtest.GatherAndCount(reg, "pacer_limiter_workers"); err != nil || n != 1 {
		t.Errorf("GatherAndCount() = %d, %v; want 1, nil", n, err)
	}
}

func TestResolveDefault(t *testing.T) {
	got, err := (Config{Enabled: true}).Resolve()
	if err != nil || got != DefaultRegistry {
		t.Errorf("Resolve() = %p, %v; want DefaultRegistry", got, err)
	}
}

func TestResolveDefaultRegisterer(t *testing.T) {
	got, err := DefaultConfig().Resolve()
	if err != nil || got != DefaultRegistry {
		t.Errorf("Resolve() = %p, %v; want DefaultRegistry", got, err)
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := Register(reg, "")
	if err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	second, err := Register(reg, "")
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	if first.ItemsSubmitted != second.ItemsSubmitted || first.FeederTicks != second.FeederTicks {
		t.Error("second Register() should return the collectors registered by the first")
	}

	first.ItemsSubmitted.WithLabelValues("a").Inc()
	second.ItemsSubmitted.WithLabelValues("b").Add(2)

	expected := `
# HELP pacer_limiter_submitted_total Total number of work items accepted by the limiter
# TYPE pacer_limiter_submitted_total counter
pacer_limiter_submitted_total{limiter_name="a"} 1
pacer_limiter_submitted_total{limiter_name="b"} 2
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "pacer_limiter_submitted_total"); err != nil {
		t.Error(err)
	}
}

func TestResolveSameRegistererTwice(t *testing.T) {
	config := Config{Enabled: true, Registry: prometheus.NewRegistry()}

	first, err := config.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := config.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first.LimiterWorkers != second.LimiterWorkers {
		t.Error("resolving the same registerer twice should share collectors")
	}
}

func TestRegisterConflict(t *testing.T) {
	reg := prometheus.NewRegistry()

	// Same name, different labels
	reg.MustRegister(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DefaultNamespace,
		Subsystem: "limiter",
		Name:      "submitted_total",
		Help:      "Something else",
	}, []string{"other"}))

	if _, err := Register(reg, ""); err == nil {
		t.Fatal("expected error for conflicting collector")
	}

	defer func() {
		if recover() == nil {
			t.Error("NewRegistry should panic on a conflicting collector")
		}
	}()
	NewRegistry(reg)
}
