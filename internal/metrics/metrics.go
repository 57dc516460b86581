// Package metrics exposes Prometheus collectors for list fetches. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "backoffice"

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	stale    *prometheus.CounterVec
	cache    *prometheus.CounterVec
}

// New registers the collectors on reg; pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_requests_total",
			Help:      "List fetches by screen and outcome.",
		}, []string{"screen", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "list_request_duration_seconds",
			Help:      "List fetch latency by screen.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"screen"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_stale_responses_total",
			Help:      "Responses discarded because a newer request superseded them.",
		}, []string{"screen"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_cache_lookups_total",
			Help:      "List cache lookups by result.",
		}, []string{"screen", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.stale, m.cache)
	}
	return m
}

func (m *Metrics) ObserveRequest(screen string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(screen, outcome).Inc()
	m.duration.WithLabelValues(screen).Observe(elapsed.Seconds())
}

func (m *Metrics) StaleDiscarded(screen string) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(screen).Inc()
}

func (m *Metrics) CacheLookup(screen string, result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(screen, result).Inc()
}
