// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every recording method is then a
// no-op.
type Metrics struct {
	permissionChecks *prometheus.CounterVec
	tenantRejections *prometheus.CounterVec
	setupTokens      *prometheus.CounterVec
	httpInFlight     prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		permissionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusops",
			Name:      "permission_checks_total",
			Help:      "Permission decisions by permission key and result.",
		}, []string{"permission", "result"}),
		tenantRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusops",
			Name:      "tenant_rejections_total",
			Help:      "Requests rejected before reaching a handler, by reason.",
		}, []string{"reason"}),
		setupTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusops",
			Name:      "setup_tokens_total",
			Help:      "Setup token operations by outcome.",
		}, []string{"operation", "outcome"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "campusops",
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campusops",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campusops",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: gatherer,
	}
	reg.MustRegister(
		m.permissionChecks,
		m.tenantRejections,
		m.setupTokens,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) PermissionChecked(permission string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.permissionChecks.WithLabelValues(permission, result).Inc()
}

// TenantRejected counts requests refused for a missing identity or scope.
func (m *Metrics) TenantRejected(reason string) {
	if m == nil {
		return
	}
	m.tenantRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetupToken(operation, outcome string) {
	if m == nil {
		return
	}
	m.setupTokens.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registered collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument records request count, latency and in-flight requests, labelled
// by the matched chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := strconv.Itoa(sw.code)
		m.httpDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
