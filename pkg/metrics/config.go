package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "pacer"

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses DefaultRegistry.
	Registry prometheus.Registerer

	// Namespace overrides the default "pacer" namespace for metrics.
	Namespace string
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// Resolve returns the Registry described by the config. A nil Registerer, or
// the Prometheus default registerer with the default namespace, selects
// DefaultRegistry. Resolving the same Registerer again reuses the collectors
// registered the first time.
func (c Config) Resolve() (*Registry, error) {
	if c.Registry == nil {
		return DefaultRegistry, nil
	}
	if c.Registry == prometheus.DefaultRegisterer && (c.Namespace == "" || c.Namespace == DefaultNamespace) {
		return DefaultRegistry, nil
	}
	return Register(c.Registry, c.Namespace)
}

// Instrumentable is an interface for components that can be instrumented with metrics.
type Instrumentable interface {
	// EnableMetrics enables metrics collection for this component.
	EnableMetrics(config Config) error

	// DisableMetrics disables metrics collection for this component.
	DisableMetrics()

	// MetricsEnabled returns true if metrics are currently enabled.
	MetricsEnabled() bool
}
