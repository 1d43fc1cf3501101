// Package metrics exposes Prometheus counters for the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's instruments on a private registry so tests
// can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal    *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	LoginsTotal     *prometheus.CounterVec
	UpstreamCalls   *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	NotifySends     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telecom_queries_total",
			Help: "Data queries served, by outcome.",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telecom_cache_hits_total",
			Help: "Queries answered from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telecom_cache_misses_total",
			Help: "Queries that had to hit the carrier.",
		}),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telecom_logins_total",
			Help: "Carrier login attempts, by outcome.",
		}, []string{"outcome"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telecom_upstream_calls_total",
			Help: "Carrier endpoint calls, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telecom_upstream_latency_seconds",
			Help:    "Carrier endpoint call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		NotifySends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telecom_notify_sends_total",
			Help: "Notification sends, by platform and outcome.",
		}, []string{"platform", "outcome"}),
	}

	registry.MustRegister(
		m.QueriesTotal,
		m.CacheHits,
		m.CacheMisses,
		m.LoginsTotal,
		m.UpstreamCalls,
		m.UpstreamLatency,
		m.NotifySends,
	)
	return m
}

// ObserveUpstream records one carrier call.
func (m *Metrics) ObserveUpstream(endpoint string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamCalls.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
