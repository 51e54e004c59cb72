// Package tenant carries the active organization of a request.
//
// The organization lives in the request's context.Context rather than in any
// package-level variable. A derived context holds the value; the parent is
// never mutated, so once a scoped call returns, every caller still observes
// whatever organization (or none) it had before.
package tenant

import (
	"context"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/google/uuid"
)

type orgContextKey struct{}

// WithOrganization returns a copy of ctx scoped to orgID. A nil orgID is
// ignored and ctx is returned unchanged.
func WithOrganization(ctx context.Context, orgID uuid.UUID) context.Context {
	if orgID == uuid.Nil {
		return ctx
	}
	return context.WithValue(ctx, orgContextKey{}, orgID)
}

// Run executes fn with orgID established as the ambient organization. The
// scope ends when fn returns, errors or panics.
func Run(ctx context.Context, orgID uuid.UUID, fn func(ctx context.Context) error) error {
	if orgID == uuid.Nil {
		return domain.ErrMissingOrgContext
	}
	return fn(WithOrganization(ctx, orgID))
}

// OrganizationID returns the ambient organization or ErrMissingOrgContext.
func OrganizationID(ctx context.Context) (uuid.UUID, error) {
	if ctx == nil {
		return uuid.Nil, domain.ErrMissingOrgContext
	}
	orgID, ok := ctx.Value(orgContextKey{}).(uuid.UUID)
	if !ok || orgID == uuid.Nil {
		return uuid.Nil, domain.ErrMissingOrgContext
	}
	return orgID, nil
}

// HasOrganization reports whether ctx carries an organization.
func HasOrganization(ctx context.Context) bool {
	_, err := OrganizationID(ctx)
	return err == nil
}
