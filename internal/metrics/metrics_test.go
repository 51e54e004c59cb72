package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPermissionChecked(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	m.PermissionChecked("tickets:read", true)
	m.PermissionChecked("tickets:read", false)
	m.PermissionChecked("tickets:read", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.permissionChecks.WithLabelValues("tickets:read", "allow")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.permissionChecks.WithLabelValues("tickets:read", "deny")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PermissionChecked("x:y", true)
	m.TenantRejected("missing_org")
	m.SetupToken("redeem", "ok")

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.Instrument(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/buildings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buildings/123", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/buildings/{id}", "404")))
}
