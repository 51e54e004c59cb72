package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/middleware"
	"github.com/dangerclosesec/campusops/internal/mocks"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/permission"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/service"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&domain.InsufficientPermissionsError{Permission: "settings:manage"}, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{fmt.Errorf("scoped: %w", domain.ErrMissingOrgContext), http.StatusUnauthorized, "MISSING_ORG_CONTEXT"},
		{domain.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{domain.ErrTokenUsed, http.StatusGone, "TOKEN_USED"},
		{domain.ErrTokenExpired, http.StatusGone, "TOKEN_EXPIRED"},
		{domain.ErrSetupTokenInvalid, http.StatusBadRequest, "INVALID_TOKEN"},
		{domain.ErrBuildingNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
		{fmt.Errorf("%w: name", domain.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Ok)
			require.NotNil(t, body.Code)
			assert.Equal(t, tt.code, *body.Code)
		})
	}
}

// ticketMem is a per-organization in-memory ticket store.
type ticketMem struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.Ticket
}

func (m *ticketMem) List(ctx context.Context, opts repository.ListOptions) ([]model.Ticket, int64, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.items {
		if t.OrganizationID != orgID {
			continue
		}
		if v, ok := opts.Conditions["created_by_id"]; ok && (t.CreatedByID == nil || *t.CreatedByID != v.(uuid.UUID)) {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (m *ticketMem) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.OrganizationID != orgID {
		return nil, domain.ErrTicketNotFound
	}
	return &t, nil
}

func (m *ticketMem) Create(ctx context.Context, t *model.Ticket) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.OrganizationID = orgID
	m.items[t.ID] = *t
	return nil
}

func (m *ticketMem) Update(ctx context.Context, t *model.Ticket) error { return nil }

func (m *ticketMem) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	return nil
}

func (m *ticketMem) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type grantAll struct{}

func (grantAll) Grant(ctx context.Context, userID uuid.UUID, key string) (*model.PermissionGrant, error) {
	return &model.PermissionGrant{Scope: model.ScopeAll}, nil
}

func (grantAll) AssertCan(ctx context.Context, userID uuid.UUID, key string) error { return nil }

func (grantAll) Can(ctx context.Context, userID uuid.UUID, key string) (bool, error) { return true, nil }

func ticketRouter(store *ticketMem, tokens *auth.UserTokenManager, fallback bool) http.Handler {
	svc := service.NewTicketService(store, nil, nil, grantAll{}, nil, fallback)
	h := NewTicketHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.OrgUser(tokens, middleware.Options{AllowOrgHeaderFallback: fallback}))
	r.Post("/tickets", h.Submit)
	r.With(middleware.RequirePermission(grantAll{}, permission.TicketsRead)).Get("/tickets", h.List)
	r.With(middleware.RequirePermission(grantAll{}, permission.TicketsRead)).Get("/tickets/{ticketID}", h.Get)
	return r
}

func TestTicketRoutesAreTenantScoped(t *testing.T) {
	tokens := auth.NewUserTokenManager("org-secret", time.Hour)
	store := &ticketMem{items: map[uuid.UUID]model.Ticket{}}
	router := ticketRouter(store, tokens, false)

	orgA, orgB := uuid.New(), uuid.New()
	tokenA, err := tokens.Generate(uuid.New(), orgA, "a@a.test", "")
	require.NoError(t, err)
	tokenB, err := tokens.Generate(uuid.New(), orgB, "b@b.test", "")
	require.NoError(t, err)

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/tickets", tokenA, map[string]string{"title": "Boiler noise"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data model.Ticket `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, orgA, created.Data.OrganizationID)

	rec = do(http.MethodGet, "/tickets/"+created.Data.ID.String(), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodGet, "/tickets", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data service.Page[model.Ticket] `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Zero(t, page.Data.Total)

	rec = do(http.MethodGet, "/tickets/"+created.Data.ID.String(), tokenA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnonymousTicketRoute(t *testing.T) {
	tokens := auth.NewUserTokenManager("org-secret", time.Hour)
	store := &ticketMem{items: map[uuid.UUID]model.Ticket{}}
	router := ticketRouter(store, tokens, true)
	orgID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/tickets", bytes.NewBufferString(`{"title":"Flooded hallway"}`))
	req.Header.Set(middleware.OrgHeader, orgID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads still require a signed-in user.
	req = httptest.NewRequest(http.MethodGet, "/tickets", nil)
	req.Header.Set(middleware.OrgHeader, orgID.String())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateSetupToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSetupTokenRepositoryIface(ctrl)
	usedAt := time.Now().Add(-time.Minute)
	repo.EXPECT().FindByHash(gomock.Any(), gomock.Any()).Return(&model.SetupToken{
		ExpiresAt: time.Now().Add(time.Hour),
		UsedAt:    &usedAt,
	}, nil)

	setup := service.NewSetupTokenService(repo, nil, nil, auth.NewPasswordHasher(), nil, nil, nil, time.Hour, "")
	h := NewAuthHandler(nil, setup, nil)

	rec := httptest.NewRecorder()
	h.ValidateSetupToken(rec, httptest.NewRequest(http.MethodGet, "/auth/setup/validate?token=abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body SetupTokenStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Ok)
	assert.Equal(t, service.SetupTokenUsed, body.Status)
}
