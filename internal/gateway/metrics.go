package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors on a private registry
// so tests can construct servers without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	duration          prometheus.Histogram
	inFlight          prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	admissionTimeouts prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weathergate_requests_total",
			Help: "Chat requests by outcome.",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weathergate_request_duration_seconds",
			Help:    "End-to-end chat request latency, queue wait included.",
			Buckets: prometheus.DefBuckets,
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weathergate_inflight_requests",
			Help: "Chat requests currently in the pipeline.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "weathergate_cache_hits_total",
			Help: "Chat requests answered from the response cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "weathergate_cache_misses_total",
			Help: "Chat requests that reached the answer service.",
		}),
		admissionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "weathergate_admission_timeouts_total",
			Help: "Chat requests rejected after waiting for a slot.",
		}),
	}
}

// Handler serves the text exposition format for this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
