// Package metrics exports recommendation pipeline metrics in
// Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "recwise"
	subsystem = "recs"
)

// Exporter holds the pipeline's Prometheus collectors. All recording
// methods are nil-safe so components can run unmetered in tests.
type Exporter struct {
	registry *prometheus.Registry

	cacheHits       *prometheus.CounterVec
	cacheMisses     prometheus.Counter
	cacheEvictions  prometheus.Counter
	cacheBackfills  prometheus.Counter
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
	fallbackFills   prometheus.Counter
	requestLatency  prometheus.Histogram
}

// New creates an Exporter backed by the given registry, or a fresh
// registry when nil.
func New(registry *prometheus.Registry) *Exporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Total cache hits by tier",
		},
		[]string{"tier"},
	)

	e.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Total lookups that missed both tiers",
		},
	)

	e.cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_evictions_total",
			Help:      "Total fast-tier capacity evictions",
		},
	)

	e.cacheBackfills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_backfills_total",
			Help:      "Total fast-tier backfills from durable hits",
		},
	)

	e.upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_requests_total",
			Help:      "Total upstream generation requests by outcome",
		},
		[]string{"status"},
	)

	e.upstreamLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_latency_seconds",
			Help:      "Upstream generation latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30},
		},
	)

	e.fallbackFills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fallback_records_total",
			Help:      "Total synthesized records served",
		},
	)

	e.requestLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_latency_seconds",
			Help:      "End-to-end recommendation latency in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
	)

	registry.MustRegister(
		e.cacheHits, e.cacheMisses, e.cacheEvictions, e.cacheBackfills,
		e.upstreamCalls, e.upstreamLatency, e.fallbackFills, e.requestLatency,
	)

	return e
}

// Handler exposes the registry for the /metrics route.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) CacheHit(tier string) {
	if e != nil {
		e.cacheHits.WithLabelValues(tier).Inc()
	}
}

func (e *Exporter) CacheMiss() {
	if e != nil {
		e.cacheMisses.Inc()
	}
}

func (e *Exporter) CacheEviction() {
	if e != nil {
		e.cacheEvictions.Inc()
	}
}

func (e *Exporter) CacheBackfill() {
	if e != nil {
		e.cacheBackfills.Inc()
	}
}

func (e *Exporter) UpstreamCall(status string, elapsed time.Duration) {
	if e != nil {
		e.upstreamCalls.WithLabelValues(status).Inc()
		e.upstreamLatency.Observe(elapsed.Seconds())
	}
}

func (e *Exporter) FallbackRecords(n int) {
	if e != nil && n > 0 {
		e.fallbackFills.Add(float64(n))
	}
}

func (e *Exporter) RequestLatency(elapsed time.Duration) {
	if e != nil {
		e.requestLatency.Observe(elapsed.Seconds())
	}
}
