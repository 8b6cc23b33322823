package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/rules"
)

func TestObserveRule(t *testing.T) {
	m := New()
	var observer rules.Observer = m.ObserveRule

	observer(rules.IS_MALE, domain.Evaluation{Result: domain.PASS})
	observer(rules.IS_MALE, domain.Evaluation{Result: domain.PASS})
	observer(rules.IS_MALE, domain.Evaluation{Result: domain.FAIL})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ruleEvaluations.WithLabelValues("IS_MALE", "PASS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ruleEvaluations.WithLabelValues("IS_MALE", "FAIL")))
}

func TestObserveMatchAndCache(t *testing.T) {
	m := New()

	m.ObserveMatch("TRIAL-001", true, 2*time.Millisecond)
	m.ObserveMatch("TRIAL-001", false, time.Millisecond)
	m.ObserveCache(CacheHit)
	m.ObserveCache(CacheMiss)
	m.ObserveCache(CacheMiss)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.trialMatches.WithLabelValues("TRIAL-001", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trialMatches.WithLabelValues("TRIAL-001", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.matchDuration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `trial_eligibility_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveCache(CacheHit)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.cacheLookups.WithLabelValues(CacheHit)))
}
