package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller. It is either a UserIdentity or an
// AdminIdentity; no other implementations exist outside this package.
type Identity interface {
	Kind() TokenType
	Subject() uuid.UUID
	sealed()
}

// UserIdentity is an organization user.
type UserIdentity struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	Role           string
}

func (UserIdentity) Kind() TokenType { return TokenTypeOrgUser }
func (u UserIdentity) Subject() uuid.UUID { return u.UserID }
func (UserIdentity) sealed() {}

// AdminIdentity is a platform admin. It has no organization.
type AdminIdentity struct {
	AdminID uuid.UUID
	Email   string
	Role    string
}

func (AdminIdentity) Kind() TokenType { return TokenTypePlatformAdmin }
func (a AdminIdentity) Subject() uuid.UUID { return a.AdminID }
func (AdminIdentity) sealed() {}

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated caller to ctx.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns whichever identity ctx carries.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id != nil
}

// UserFromContext returns the organization user, and false for admins or
// anonymous callers.
func UserFromContext(ctx context.Context) (UserIdentity, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return UserIdentity{}, false
	}
	user, ok := id.(UserIdentity)
	return user, ok
}

// AdminFromContext returns the platform admin, and false for organization
// users or anonymous callers.
func AdminFromContext(ctx context.Context) (AdminIdentity, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return AdminIdentity{}, false
	}
	admin, ok := id.(AdminIdentity)
	return admin, ok
}
