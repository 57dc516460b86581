package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("brands", OutcomeOK, 20*time.Millisecond)
	m.ObserveRequest("brands", OutcomeOK, 30*time.Millisecond)
	m.ObserveRequest("brands", OutcomeError, time.Millisecond)
	m.StaleDiscarded("staff")
	m.CacheLookup("brands", CacheHit)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("brands", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("brands", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stale.WithLabelValues("staff")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("brands", CacheHit)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("brands", OutcomeOK, time.Second)
		m.StaleDiscarded("brands")
		m.CacheLookup("brands", CacheMiss)
	})
}
