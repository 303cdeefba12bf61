// Package metrics exposes the Prometheus collectors for the LMS backend and
// adapts them to the observer hooks accepted by the cache, session and
// gamification packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lms"

type Metrics struct {
	registry *prometheus.Registry

	courseCache  *prometheus.CounterVec
	tokenRefresh *prometheus.CounterVec
	authSignOuts *prometheus.CounterVec
	xpGrants     *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry so tests do not collide
// with the global default one.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		courseCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "course_cache_total",
			Help:      "Course listing cache lookups by result.",
		}, []string{"result"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Service session refresh checks by result.",
		}, []string{"result"}),
		authSignOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_error_signouts_total",
			Help:      "Forced sign-outs triggered by authentication failures.",
		}, []string{"scope"}),
		xpGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_grants_total",
			Help:      "XP grant attempts by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.courseCache,
		m.tokenRefresh,
		m.authSignOuts,
		m.xpGrants,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CacheHit()  { m.courseCache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.courseCache.WithLabelValues("miss").Inc() }

func (m *Metrics) TokenRefresh(result string) { m.tokenRefresh.WithLabelValues(result).Inc() }

func (m *Metrics) SignOut(scope string) { m.authSignOuts.WithLabelValues(scope).Inc() }

func (m *Metrics) XPGrant(result string) { m.xpGrants.WithLabelValues(result).Inc() }

// ObserveRequest records one finished HTTP request. route is the matched
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
