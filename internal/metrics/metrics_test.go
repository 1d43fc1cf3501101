package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	t.Parallel()

	m := New()

	m.QueriesTotal.WithLabelValues("success").Inc()
	m.QueriesTotal.WithLabelValues("success").Inc()
	m.QueriesTotal.WithLabelValues("error").Inc()
	m.CacheHits.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheMisses))
}

func TestObserveUpstream(t *testing.T) {
	t.Parallel()

	m := New()

	m.ObserveUpstream("summary", nil, 50*time.Millisecond)
	m.ObserveUpstream("summary", errors.New("boom"), 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("summary", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("summary", "error")))
}

func TestHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	m.QueriesTotal.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "telecom_queries_total")
}

func TestIsolatedRegistries(t *testing.T) {
	t.Parallel()

	a := New()
	b := New()
	a.CacheHits.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHits))
}
