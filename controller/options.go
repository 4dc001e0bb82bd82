package controller

import (
	"time"

	"github.com/openscripts/carrot2/config"
	"github.com/openscripts/carrot2/metric"
)

// controllerOptions holds the tunables applied during construction.
type controllerOptions struct {
	capacity      int
	waitTimeout   time.Duration
	shutdownGrace time.Duration
	stopTimeout   time.Duration
	metricReg     *metric.Registry
	owner         string
}

// Option configures a Controller during construction.
type Option func(*controllerOptions)

// WithCapacity bounds the number of memoized results.
func WithCapacity(n int) Option {
	return func(o *controllerOptions) {
		o.capacity = n
	}
}

// WithWaitTimeout sets the controller-level default bound on how long a
// coalesced caller waits for a result. A caller's context deadline may
// shorten it further. Zero disables the controller-level bound.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *controllerOptions) {
		o.waitTimeout = d
	}
}

// WithShutdownGrace bounds how long Close waits for in-flight executions
// before tearing chains down.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *controllerOptions) {
		o.shutdownGrace = d
	}
}

// WithStopTimeout bounds each component's Stop hook during teardown.
func WithStopTimeout(d time.Duration) Option {
	return func(o *controllerOptions) {
		o.stopTimeout = d
	}
}

// WithMetrics enables Prometheus metrics, registered with the given
// registry under the owner name.
func WithMetrics(registry *metric.Registry, owner string) Option {
	return func(o *controllerOptions) {
		o.metricReg = registry
		o.owner = owner
	}
}

// WithConfig applies controller settings loaded from configuration.
func WithConfig(cfg config.ControllerConfig) Option {
	return func(o *controllerOptions) {
		o.capacity = cfg.CacheCapacity
		o.waitTimeout = cfg.WaitTimeout
		o.shutdownGrace = cfg.ShutdownGrace
		o.stopTimeout = cfg.StopTimeout
	}
}
