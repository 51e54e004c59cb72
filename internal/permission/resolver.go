// Package permission answers whether a user may perform an action, from the
// grants of the user's role.
package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/metrics"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
)

// GrantStore loads roles and grants. Implementations must be scoped to the
// organization in ctx.
type GrantStore interface {
	RoleForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	GrantsForRole(ctx context.Context, roleID uuid.UUID) ([]model.PermissionGrant, error)
}

// Cache is the optional grant cache.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{})
	DeletePrefix(ctx context.Context, prefix string)
}

// Resolver re-reads grants on every call unless a cache is configured. With
// a cache, role changes become visible after Invalidate or once entries
// expire.
type Resolver struct {
	store   GrantStore
	cache   Cache
	metrics *metrics.Metrics
	audit   audit.Logger
}

type Option func(*Resolver)

// WithCache enables grant caching keyed by organization and user.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithAuditLogger(l audit.Logger) Option {
	return func(r *Resolver) { r.audit = l }
}

func NewResolver(store GrantStore, opts ...Option) *Resolver {
	r := &Resolver{store: store, audit: &audit.NoOpLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cachePrefix(orgID uuid.UUID) string {
	return "perm:" + orgID.String() + ":"
}

// grants returns the user's effective grants. Unknown users and users with
// no role have none.
func (r *Resolver) grants(ctx context.Context, userID uuid.UUID) ([]model.PermissionGrant, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	key := cachePrefix(orgID) + userID.String()
	if r.cache != nil {
		if v, ok := r.cache.Get(ctx, key); ok {
			if grants, ok := v.([]model.PermissionGrant); ok {
				return grants, nil
			}
		}
	}

	var grants []model.PermissionGrant
	roleID, err := r.store.RoleForUser(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
	case err != nil:
		return nil, fmt.Errorf("resolving role: %w", err)
	case roleID != nil:
		grants, err = r.store.GrantsForRole(ctx, *roleID)
		if err != nil {
			return nil, fmt.Errorf("resolving grants: %w", err)
		}
	}

	if r.cache != nil {
		r.cache.Set(ctx, key, grants)
	}
	return grants, nil
}

// Grant returns the grant that allows key, or nil. When both an "all" and an
// "own" grant match, the "all" grant wins.
func (r *Resolver) Grant(ctx context.Context, userID uuid.UUID, key string) (*model.PermissionGrant, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	grants, err := r.grants(ctx, userID)
	if err != nil {
		return nil, err
	}

	var match *model.PermissionGrant
	for i := range grants {
		g := &grants[i]
		if g.Resource != k.Resource || g.Action != k.Action {
			continue
		}
		if g.Scope != model.ScopeOwn {
			match = g
			break
		}
		if match == nil {
			match = g
		}
	}

	r.record(ctx, userID, key, match != nil)
	if match == nil {
		return nil, nil
	}
	out := *match
	return &out, nil
}

// Can reports whether the user holds a grant for key.
func (r *Resolver) Can(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	g, err := r.Grant(ctx, userID, key)
	if err != nil {
		return false, err
	}
	return g != nil, nil
}

// AssertCan fails with *domain.InsufficientPermissionsError when the user
// lacks key.
func (r *Resolver) AssertCan(ctx context.Context, userID uuid.UUID, key string) error {
	ok, err := r.Can(ctx, userID, key)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.InsufficientPermissionsError{Permission: key}
	}
	return nil
}

// Invalidate drops cached grants for every user of the organization in ctx.
func (r *Resolver) Invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return
	}
	r.cache.DeletePrefix(ctx, cachePrefix(orgID))
}

func (r *Resolver) record(ctx context.Context, userID uuid.UUID, key string, allowed bool) {
	r.metrics.PermissionChecked(key, allowed)
	if err := r.audit.LogPermissionCheck(ctx, userID, key, allowed); err != nil {
		slog.WarnContext(ctx, "Failed to record permission check", "error", err, "permission", key)
	}
}
