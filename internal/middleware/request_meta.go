package middleware

import (
	"net/http"

	"github.com/dangerclosesec/campusops/internal/audit"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestMeta copies the request id, client address and user agent into the
// context for audit records. Mount it after chi's RequestID and RealIP.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithRequestMeta(r.Context(), audit.RequestMeta{
			RequestID: chimw.GetReqID(r.Context()),
			ClientIP:  r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
