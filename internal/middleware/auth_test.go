package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	orgID    uuid.UUID
	hasOrg   bool
	identity auth.Identity
}

func capture(out *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.orgID, _ = tenant.OrganizationID(r.Context())
		out.hasOrg = tenant.HasOrganization(r.Context())
		out.identity, _ = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Ok)
	return body.Code
}

func TestOrgUserScopesFromToken(t *testing.T) {
	users := auth.NewUserTokenManager("org-secret", time.Hour)
	orgA, orgB := uuid.New(), uuid.New()
	userID := uuid.New()
	token, err := users.Generate(userID, orgA, "a@school.test", "staff")
	require.NoError(t, err)

	var got seen
	h := OrgUser(users, Options{AllowOrgHeaderFallback: true})(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/buildings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	// A disagreeing header never overrides the token.
	req.Header.Set(OrgHeader, orgB.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, orgA, got.orgID)
	user, ok := got.identity.(auth.UserIdentity)
	require.True(t, ok)
	assert.Equal(t, userID, user.UserID)
}

func TestOrgUserRejects(t *testing.T) {
	users := auth.NewUserTokenManager("org-secret", time.Hour)
	admins := auth.NewAdminTokenManager("admin-secret", time.Hour)
	adminToken, err := admins.Generate(uuid.New(), "ops@campusops.test", auth.PlatformRoleSuperAdmin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		orgID    string
		fallback bool
		code     string
	}{
		{"no token", "", "", false, "UNAUTHORIZED"},
		{"header without fallback", "", uuid.NewString(), false, "UNAUTHORIZED"},
		{"garbage token", "Bearer nope", "", true, "INVALID_TOKEN"},
		{"wrong scheme", "Basic abc", "", true, "INVALID_TOKEN"},
		{"admin token on org route", "Bearer " + adminToken, "", true, "INVALID_TOKEN"},
		{"fallback without header", "", "", true, "MISSING_ORG_CONTEXT"},
		{"fallback with bad header", "", "not-a-uuid", true, "MISSING_ORG_CONTEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got seen
			h := OrgUser(users, Options{AllowOrgHeaderFallback: tt.fallback})(capture(&got))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.orgID != "" {
				req.Header.Set(OrgHeader, tt.orgID)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
			assert.False(t, got.hasOrg)
		})
	}
}

func TestOrgUserHeaderFallback(t *testing.T) {
	users := auth.NewUserTokenManager("org-secret", time.Hour)
	orgID := uuid.New()

	var got seen
	h := OrgUser(users, Options{AllowOrgHeaderFallback: true})(capture(&got))

	req := httptest.NewRequest(http.MethodPost, "/tickets", nil)
	req.Header.Set(OrgHeader, orgID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, orgID, got.orgID)
	assert.Nil(t, got.identity)
}

func TestPlatformAdmin(t *testing.T) {
	users := auth.NewUserTokenManager("org-secret", time.Hour)
	admins := auth.NewAdminTokenManager("admin-secret", time.Hour)
	adminID := uuid.New()
	adminToken, err := admins.Generate(adminID, "ops@campusops.test", auth.PlatformRoleSupport)
	require.NoError(t, err)
	userToken, err := users.Generate(uuid.New(), uuid.New(), "a@school.test", "")
	require.NoError(t, err)

	var got seen
	h := PlatformAdmin(admins, nil)(RequirePlatformPermission(auth.PlatformPermOrganizationsRead)(capture(&got)))

	req := httptest.NewRequest(http.MethodGet, "/platform/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, got.hasOrg)
	admin, ok := got.identity.(auth.AdminIdentity)
	require.True(t, ok)
	assert.Equal(t, adminID, admin.AdminID)

	req = httptest.NewRequest(http.MethodGet, "/platform/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	manage := PlatformAdmin(admins, nil)(RequirePlatformPermission(auth.PlatformPermOrganizationsManage)(capture(&got)))
	req = httptest.NewRequest(http.MethodPost, "/platform/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	manage.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type checkerFunc func(ctx context.Context, userID uuid.UUID, key string) (bool, error)

func (f checkerFunc) Can(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	return f(ctx, userID, key)
}

func TestRequirePermission(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	withUser := func(r *http.Request) *http.Request {
		ctx := auth.ContextWithIdentity(r.Context(), auth.UserIdentity{UserID: userID, OrganizationID: orgID})
		return r.WithContext(tenant.WithOrganization(ctx, orgID))
	}

	allow := checkerFunc(func(ctx context.Context, id uuid.UUID, key string) (bool, error) {
		return id == userID && key == "buildings:manage", nil
	})
	broken := checkerFunc(func(context.Context, uuid.UUID, string) (bool, error) {
		return false, errors.New("db down")
	})

	var got seen
	rec := httptest.NewRecorder()
	RequirePermission(allow, "buildings:manage")(capture(&got)).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	RequirePermission(allow, "roles:manage")(capture(&got)).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", errorCode(t, rec))

	rec = httptest.NewRecorder()
	RequirePermission(broken, "roles:manage")(capture(&got)).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPost, "/", nil)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Header-scoped anonymous requests hold no permissions.
	anon := httptest.NewRequest(http.MethodPost, "/", nil)
	anon = anon.WithContext(tenant.WithOrganization(anon.Context(), orgID))
	rec = httptest.NewRecorder()
	RequirePermission(allow, "buildings:manage")(capture(&got)).ServeHTTP(rec, anon)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type orgStatuses struct {
	suspended map[uuid.UUID]bool
	err       error
}

func (o orgStatuses) IsActive(ctx context.Context, orgID uuid.UUID) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	return !o.suspended[orgID], nil
}

func TestOrgUserRefusesSuspendedOrganization(t *testing.T) {
	users := auth.NewUserTokenManager("org-secret", time.Hour)
	active, suspended := uuid.New(), uuid.New()
	statuses := orgStatuses{suspended: map[uuid.UUID]bool{suspended: true}}

	tokenFor := func(orgID uuid.UUID) string {
		token, err := users.Generate(uuid.New(), orgID, "a@school.test", "staff")
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name     string
		token    string
		orgID    string
		statuses orgStatuses
		status   int
		code     string
	}{
		{"active org token", tokenFor(active), "", statuses, http.StatusNoContent, ""},
		{"suspended org token", tokenFor(suspended), "", statuses, http.StatusForbidden, "ORGANIZATION_SUSPENDED"},
		{"suspended org header", "", suspended.String(), statuses, http.StatusForbidden, "ORGANIZATION_SUSPENDED"},
		{"status lookup fails", tokenFor(active), "", orgStatuses{err: errors.New("db down")}, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got seen
			h := OrgUser(users, Options{AllowOrgHeaderFallback: true, Organizations: tt.statuses})(capture(&got))

			req := httptest.NewRequest(http.MethodGet, "/buildings", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.orgID != "" {
				req.Header.Set(OrgHeader, tt.orgID)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
				assert.False(t, got.hasOrg)
			}
		})
	}
}
