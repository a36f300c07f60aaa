// Package metrics provides Prometheus metrics for the NexusAI generation API
// and the Gin middleware that records them.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds all Prometheus metric collectors for the service.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Provider calls
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec
	ProviderTokensUsed   *prometheus.CounterVec

	// Generation jobs
	JobsTotal    *prometheus.CounterVec
	JobDuration  prometheus.Histogram
	JobsInFlight prometheus.Gauge
	QueueDepth   prometheus.Gauge

	// Rate limiting and cache
	RateLimitHitsTotal *prometheus.CounterVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
}

// Get returns the singleton Metrics instance.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint, method, and status code",
		},
		[]string{"endpoint", "method", "status"},
	)

	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexusai",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint", "method"},
	)

	m.HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nexusai",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	m.ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total LLM provider calls by provider, phase, and outcome",
		},
		[]string{"provider", "phase", "outcome"},
	)

	m.ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexusai",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "LLM provider call duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 180, 240},
		},
		[]string{"provider", "phase"},
	)

	m.ProviderTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "provider",
			Name:      "tokens_used_total",
			Help:      "Total tokens consumed by provider",
		},
		[]string{"provider"},
	)

	m.JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Generation jobs by terminal outcome",
		},
		[]string{"outcome"},
	)

	m.JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nexusai",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "End-to-end generation job duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 240, 480, 900},
		},
	)

	m.JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nexusai",
			Subsystem: "jobs",
			Name:      "in_flight",
			Help:      "Generation jobs currently executing",
		},
	)

	m.QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nexusai",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Jobs waiting in the worker queue",
		},
	)

	m.RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Requests denied by the rate limiter, by tier and scope",
		},
		[]string{"tier", "scope"},
	)

	m.CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Generation cache hits",
		},
	)

	m.CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nexusai",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Generation cache misses",
		},
	)

	return m
}

// ObserveProviderCall records one LLM provider call.
func ObserveProviderCall(provider, phase, outcome string, d time.Duration) {
	m := Get()
	m.ProviderCallsTotal.WithLabelValues(provider, phase, outcome).Inc()
	m.ProviderCallDuration.WithLabelValues(provider, phase).Observe(d.Seconds())
}

// ObserveJob records a job reaching a terminal state. Duration is only
// observed for completed jobs.
func ObserveJob(outcome string, d time.Duration) {
	m := Get()
	m.JobsTotal.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		m.JobDuration.Observe(d.Seconds())
	}
}
