package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openscripts/carrot2/metric"
)

// controllerMetrics holds Prometheus metrics for controller operations.
type controllerMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	coalesced prometheus.Counter
	failures  prometheus.Counter
	evictions prometheus.Counter
	timeouts  prometheus.Counter

	executionDuration prometheus.Histogram
	cacheSize         prometheus.Gauge
}

// newControllerMetrics creates and registers controller metrics with the
// provided registry under the given owner name.
func newControllerMetrics(registry *metric.Registry, owner string) (*controllerMetrics, error) {
	labels := prometheus.Labels{"controller": owner}
	m := &controllerMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "cache_hits_total",
			ConstLabels: labels,
			Help:        "Total number of fingerprint cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "cache_misses_total",
			ConstLabels: labels,
			Help:        "Total number of fingerprint cache misses",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "coalesced_waiters_total",
			ConstLabels: labels,
			Help:        "Total number of callers served by a shared in-flight execution",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "execution_failures_total",
			ConstLabels: labels,
			Help:        "Total number of failed chain executions",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "cache_evictions_total",
			ConstLabels: labels,
			Help:        "Total number of cache evictions",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "wait_timeouts_total",
			ConstLabels: labels,
			Help:        "Total number of caller-local wait timeouts",
		}),
		executionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "execution_duration_seconds",
			ConstLabels: labels,
			Help:        "Chain execution duration in seconds",
			Buckets:     prometheus.DefBuckets,
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "carrot2",
			Subsystem:   "controller",
			Name:        "cache_size",
			ConstLabels: labels,
			Help:        "Current number of memoized results",
		}),
	}

	// Register all metrics with the registry
	if err := registry.RegisterCounter(owner, "cache_hits", m.hits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(owner, "cache_misses", m.misses); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(owner, "coalesced_waiters", m.coalesced); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(owner, "execution_failures", m.failures); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(owner, "cache_evictions", m.evictions); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(owner, "wait_timeouts", m.timeouts); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(owner, "execution_duration", m.executionDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(owner, "cache_size", m.cacheSize); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *controllerMetrics) recordHit() {
	m.hits.Inc()
}

func (m *controllerMetrics) recordMiss() {
	m.misses.Inc()
}

func (m *controllerMetrics) recordCoalesced() {
	m.coalesced.Inc()
}

func (m *controllerMetrics) recordFailure() {
	m.failures.Inc()
}

func (m *controllerMetrics) recordEviction() {
	m.evictions.Inc()
}

func (m *controllerMetrics) recordTimeout() {
	m.timeouts.Inc()
}

func (m *controllerMetrics) recordExecution(d time.Duration) {
	m.executionDuration.Observe(d.Seconds())
}

func (m *controllerMetrics) updateSize(size int) {
	m.cacheSize.Set(float64(size))
}
