// internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/metrics"
	"github.com/dangerclosesec/campusops/internal/tenant"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// OrgHeader selects an organization for unauthenticated requests when the
// header fallback is enabled.
const OrgHeader = "X-Org-Id"

// UserVerifier verifies organization user tokens.
type UserVerifier interface {
	Verify(token string) (auth.UserIdentity, error)
}

// AdminVerifier verifies platform admin tokens.
type AdminVerifier interface {
	Verify(token string) (auth.AdminIdentity, error)
}

// PermissionChecker decides organization permissions. Implemented by
// permission.Resolver.
type PermissionChecker interface {
	Can(ctx context.Context, userID uuid.UUID, key string) (bool, error)
}

// OrganizationStatus reports whether an organization may use the API.
// Implemented by service.OrganizationService.
type OrganizationStatus interface {
	IsActive(ctx context.Context, orgID uuid.UUID) (bool, error)
}

type Options struct {
	// AllowOrgHeaderFallback scopes requests without a token to the
	// organization named by OrgHeader. The request carries no identity.
	AllowOrgHeaderFallback bool
	// Organizations, when set, is consulted on every request so a suspended
	// organization loses access before its tokens expire.
	Organizations OrganizationStatus
	Metrics       *metrics.Metrics
}

// organizationActive writes the rejection and returns false when orgID may
// not use the API.
func organizationActive(w http.ResponseWriter, r *http.Request, orgID uuid.UUID, opts Options) bool {
	if opts.Organizations == nil {
		return true
	}
	active, err := opts.Organizations.IsActive(r.Context(), orgID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to check organization status",
			"error", err,
			"organizationID", orgID,
			"requestID", chimw.GetReqID(r.Context()),
		)
		respondWithError(w, http.StatusInternalServerError, "Organization status check failed", "INTERNAL")
		return false
	}
	if !active {
		opts.Metrics.TenantRejected("org_inactive")
		respondWithError(w, http.StatusForbidden, "Organization is suspended", "ORGANIZATION_SUSPENDED")
		return false
	}
	return true
}

// bearerToken extracts the token from the Authorization header. ok is false
// when the header is absent; a present but malformed header returns an
// empty token.
func bearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}

// OrgUser establishes the caller identity and organization scope for
// organization routes. The organization always comes from the verified
// token when one is present; OrgHeader is then ignored.
func OrgUser(verifier UserVerifier, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := chimw.GetReqID(ctx)

			token, present := bearerToken(r)
			if present {
				identity, err := verifier.Verify(token)
				if err != nil {
					opts.Metrics.TenantRejected("invalid_token")
					slog.InfoContext(ctx, "Rejected organization token", "error", err, "requestID", reqID)
					respondWithError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
					return
				}

				if header := r.Header.Get(OrgHeader); header != "" && header != identity.OrganizationID.String() {
					slog.WarnContext(ctx, "Ignoring organization header that disagrees with token",
						"header", header,
						"organizationID", identity.OrganizationID,
						"userID", identity.UserID,
						"requestID", reqID,
					)
				}

				if !organizationActive(w, r, identity.OrganizationID, opts) {
					return
				}

				ctx = auth.ContextWithIdentity(ctx, identity)
				ctx = tenant.WithOrganization(ctx, identity.OrganizationID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if !opts.AllowOrgHeaderFallback {
				opts.Metrics.TenantRejected("missing_token")
				respondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
				return
			}

			orgID, err := uuid.Parse(r.Header.Get(OrgHeader))
			if err != nil || orgID == uuid.Nil {
				opts.Metrics.TenantRejected("missing_org")
				respondWithError(w, http.StatusUnauthorized, "Organization context required", "MISSING_ORG_CONTEXT")
				return
			}

			if !organizationActive(w, r, orgID, opts) {
				return
			}
			next.ServeHTTP(w, r.WithContext(tenant.WithOrganization(ctx, orgID)))
		})
	}
}

// PlatformAdmin authenticates platform admin routes. No organization scope
// is established.
func PlatformAdmin(verifier AdminVerifier, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := bearerToken(r)
			if !present {
				m.TenantRejected("missing_admin_token")
				respondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				m.TenantRejected("invalid_admin_token")
				slog.InfoContext(r.Context(), "Rejected admin token", "error", err, "requestID", chimw.GetReqID(r.Context()))
				respondWithError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequirePermission allows the request only when the organization user holds
// key. Requests without a user identity are rejected.
func RequirePermission(checker PermissionChecker, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
				return
			}

			allowed, err := checker.Can(r.Context(), user.UserID, key)
			if err != nil {
				slog.ErrorContext(r.Context(), "Permission check failed",
					"error", err,
					"permission", key,
					"userID", user.UserID,
					"requestID", chimw.GetReqID(r.Context()),
				)
				respondWithError(w, http.StatusInternalServerError, "Permission check failed", "INTERNAL")
				return
			}
			if !allowed {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions: "+key, "INSUFFICIENT_PERMISSIONS")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlatformPermission allows the request only when the platform admin's
// role holds key.
func RequirePlatformPermission(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := auth.AdminFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
				return
			}
			if !auth.AdminCan(admin.Role, key) {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions: "+key, "INSUFFICIENT_PERMISSIONS")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"error_code,omitempty"`
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, code int, message, errorCode string) {
	respondWithJSON(w, code, errorResponse{Error: message, Code: errorCode})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
