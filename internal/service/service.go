// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TenantStore is the CRUD surface of repository.TenantRepository.
type TenantStore[T any] interface {
	List(ctx context.Context, opts repository.ListOptions) ([]T, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Authorizer resolves the grant behind a permission key. Implemented by
// permission.Resolver.
type Authorizer interface {
	Grant(ctx context.Context, userID uuid.UUID, key string) (*model.PermissionGrant, error)
	AssertCan(ctx context.Context, userID uuid.UUID, key string) error
}

// Transactor runs fn in one database transaction; repositories called with
// the ctx passed to fn join it. Implemented by repository.TxManager.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page is a slice of results plus the total count.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// normalizePage clamps offset and limit to sane values.
func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

// validateInput runs struct validation and reports failures as
// domain.ErrInvalidInput.
func validateInput(v *validator.Validate, input interface{}) error {
	if err := v.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %s", domain.ErrInvalidInput, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// currentUser returns the org-user identity in ctx or domain.ErrUnauthorized.
func currentUser(ctx context.Context) (auth.UserIdentity, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return auth.UserIdentity{}, domain.ErrUnauthorized
	}
	return user, nil
}

// actorID returns the caller's id for record attribution, nil for anonymous
// callers.
func actorID(ctx context.Context) *uuid.UUID {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil
	}
	subject := id.Subject()
	return &subject
}

// recordMutation writes an audit record. Audit failures are logged and never
// fail the operation.
func recordMutation(ctx context.Context, logger audit.Logger, action, resource string, id uuid.UUID, details map[string]interface{}) {
	if logger == nil {
		return
	}
	if err := logger.LogMutation(ctx, action, resource, id.String(), details); err != nil {
		slog.WarnContext(ctx, "Failed to write audit log", "error", err, "action", action, "resource", resource)
	}
}

var errRoomNotInBuilding = fmt.Errorf("%w: room is not in this building", domain.ErrRoomNotFound)
