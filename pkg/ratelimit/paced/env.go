package paced

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vnykmshr/pacer/pkg/metrics"
)

// EnvConfig is the subset of Config that can be read from the environment.
//
//	PACER_WORKERS=4
//	PACER_DELAY=250ms
//	PACER_NAME=github_api
//	PACER_METRICS_ENABLED=true
type EnvConfig struct {
	Workers        int           `env:"WORKERS" envDefault:"1"`
	Delay          time.Duration `env:"DELAY" envDefault:"1s"`
	Name           string        `env:"NAME" envDefault:"default"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"false"`
}

// LoadEnvConfig parses environment variables carrying prefix into an EnvConfig.
func LoadEnvConfig(prefix string) (EnvConfig, error) {
	var ec EnvConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: prefix}); err != nil {
		return EnvConfig{}, fmt.Errorf("load limiter config: %w", err)
	}
	return ec, nil
}

// Config converts the environment settings into a limiter Config.
func (ec EnvConfig) Config() Config {
	return Config{
		Workers: ec.Workers,
		Delay:   ec.Delay,
		Name:    ec.Name,
	}
}

// NewFromEnv builds an inactive limiter from environment variables carrying
// prefix. When metrics are enabled the limiter reports to metrics.DefaultRegistry.
func NewFromEnv(prefix string) (Limiter, error) {
	ec, err := LoadEnvConfig(prefix)
	if err != nil {
		return nil, err
	}

	if ec.MetricsEnabled {
		return NewWithConfigAndMetrics(ec.Config(), ec.Name, metrics.DefaultConfig())
	}
	return NewWithConfig(ec.Config())
}
