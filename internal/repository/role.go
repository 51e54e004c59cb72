// internal/repository/role.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/google/uuid"
)

type RoleRepositoryIface interface {
	RoleForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	GrantsForRole(ctx context.Context, roleID uuid.UUID) ([]model.PermissionGrant, error)
	List(ctx context.Context) ([]*model.Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, role *model.Role) error
	SetGrants(ctx context.Context, roleID uuid.UUID, grants []model.PermissionGrant) error
}

// RoleRepository stores roles and their grants. Every lookup is scoped, so a
// user of another organization resolves to no role at all.
type RoleRepository struct {
	db *ScopedDB
}

func NewRoleRepository(db *ScopedDB) *RoleRepository {
	return &RoleRepository{db: db}
}

// RoleForUser returns the user's role id, nil when the user has no role, or
// domain.ErrUserNotFound.
func (r *RoleRepository) RoleForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var user model.User
	tx, err := r.db.Query(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.Select("id", "role_id").First(&user, "id = ?", userID).Error; err != nil {
		if err = translateError(err, domain.ErrUserNotFound); err == domain.ErrUserNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve role: %w", err)
	}
	return user.RoleID, nil
}

func (r *RoleRepository) GrantsForRole(ctx context.Context, roleID uuid.UUID) ([]model.PermissionGrant, error) {
	var grants []model.PermissionGrant
	if err := r.db.Find(ctx, &grants, "role_id = ?", roleID); err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	return grants, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*model.Role, error) {
	var roles []*model.Role
	tx, err := r.db.Query(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.Preload("Grants").Order("name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.findOne(ctx, "name = ?", name)
}

func (r *RoleRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Role, error) {
	var role model.Role
	if err := r.db.First(ctx, &role, query, arg); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	if err := r.db.Find(ctx, &role.Grants, "role_id = ?", role.ID); err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	return &role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *model.Role) error {
	grants := role.Grants
	role.Grants = nil
	err := r.db.Transaction(ctx, func(tx *ScopedDB) error {
		if err := tx.Create(ctx, role); err != nil {
			return err
		}
		return createGrants(ctx, tx, role.ID, grants)
	})
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	role.Grants = grants
	return nil
}

// SetGrants replaces the role's grant set atomically.
func (r *RoleRepository) SetGrants(ctx context.Context, roleID uuid.UUID, grants []model.PermissionGrant) error {
	return r.db.Transaction(ctx, func(tx *ScopedDB) error {
		var role model.Role
		if err := tx.First(ctx, &role, "id = ?", roleID); err != nil {
			if domain.IsNotFound(err) {
				return domain.ErrRoleNotFound
			}
			return err
		}
		q, err := tx.Query(ctx)
		if err != nil {
			return err
		}
		if err := q.Where("role_id = ?", roleID).Delete(&model.PermissionGrant{}).Error; err != nil {
			return translateError(err, nil)
		}
		return createGrants(ctx, tx, roleID, grants)
	})
}

func createGrants(ctx context.Context, tx *ScopedDB, roleID uuid.UUID, grants []model.PermissionGrant) error {
	for i := range grants {
		grants[i].ID = uuid.Nil
		grants[i].RoleID = roleID
		if grants[i].Scope == "" {
			grants[i].Scope = model.ScopeAll
		}
		if err := tx.Create(ctx, &grants[i]); err != nil {
			return err
		}
	}
	return nil
}
