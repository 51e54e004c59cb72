package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	h := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/auth/setup/redeem", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Other clients keep their own budget.
	other := httptest.NewRequest(http.MethodPost, "/auth/setup/redeem", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.getLimiter("10.0.0.1")

	now = now.Add(10 * time.Minute)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.limiters)
}

func TestRequestMeta(t *testing.T) {
	var meta audit.RequestMeta
	h := RequestMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta = audit.MetaFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("User-Agent", "campus-kiosk/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.9:5555", meta.ClientIP)
	assert.Equal(t, "campus-kiosk/1.0", meta.UserAgent)
}
