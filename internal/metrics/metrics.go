// Package metrics exposes Prometheus collectors for rule evaluation, trial
// matching, the match cache and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/rules"
)

const namespace = "trial_eligibility"

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics owns a private registry so that several instances (tests, servers)
// never collide on registration.
type Metrics struct {
	registry        *prometheus.Registry
	ruleEvaluations *prometheus.CounterVec
	trialMatches    *prometheus.CounterVec
	matchDuration   prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ruleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Eligibility rule evaluations by rule and result.",
		}, []string{"rule", "result"}),
		trialMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_matches_total",
			Help:      "Patient trial matches by trial and eligibility.",
		}, []string{"trial_id", "eligible"}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time to match one patient against one trial.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_cache_lookups_total",
			Help:      "Match cache lookups by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.ruleEvaluations,
		m.trialMatches,
		m.matchDuration,
		m.cacheLookups,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRule counts one rule evaluation. Its signature matches
// rules.Observer.
func (m *Metrics) ObserveRule(rule rules.EligibilityRule, e domain.Evaluation) {
	m.ruleEvaluations.WithLabelValues(string(rule), e.Result.String()).Inc()
}

// ObserveMatch records one trial match.
func (m *Metrics) ObserveMatch(trialID string, eligible bool, elapsed time.Duration) {
	m.trialMatches.WithLabelValues(trialID, strconv.FormatBool(eligible)).Inc()
	m.matchDuration.Observe(elapsed.Seconds())
}

// ObserveCache counts a cache lookup outcome.
func (m *Metrics) ObserveCache(outcome string) {
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
