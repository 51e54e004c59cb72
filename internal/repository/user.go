// internal/repository/user.go
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/google/uuid"
)

type UserRepositoryIface interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindAllPaginated(ctx context.Context, offset, limit int) ([]*model.User, int64, error)
	AssignRole(ctx context.Context, userID uuid.UUID, roleID *uuid.UUID) error
	RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error

	// FindByEmail runs before any organization is known and is unscoped.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type UserRepository struct {
	scoped   *ScopedDB
	unscoped *UnscopedDB
}

func NewUserRepository(scoped *ScopedDB, unscoped *UnscopedDB) *UserRepository {
	return &UserRepository{scoped: scoped, unscoped: unscoped}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.scoped.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.scoped.First(ctx, &user, "id = ?", id); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindAllPaginated(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	var users []*model.User
	var count int64

	if err := r.scoped.Count(ctx, &model.User{}, &count); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	tx, err := r.scoped.Query(ctx)
	if err != nil {
		return nil, 0, err
	}
	opts := ListOptions{Offset: offset, Limit: limit, Order: "email"}
	if err := opts.apply(tx).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find paginated users: %w", err)
	}
	return users, count, nil
}

// AssignRole sets or clears the user's role. The role, when given, must
// belong to the same organization.
func (r *UserRepository) AssignRole(ctx context.Context, userID uuid.UUID, roleID *uuid.UUID) error {
	return r.scoped.Transaction(ctx, func(tx *ScopedDB) error {
		if roleID != nil {
			var role model.Role
			if err := tx.First(ctx, &role, "id = ?", *roleID); err != nil {
				if domain.IsNotFound(err) {
					return domain.ErrRoleNotFound
				}
				return err
			}
		}
		err := tx.UpdateColumns(ctx, &model.User{}, userID, map[string]interface{}{"role_id": roleID})
		if domain.IsNotFound(err) {
			return domain.ErrUserNotFound
		}
		return err
	})
}

func (r *UserRepository) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.scoped.UpdateColumns(ctx, &model.User{}, userID, map[string]interface{}{"last_login_at": at})
}

// FindByEmail looks a user up across all organizations. Only login uses it.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.unscoped.DB(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if err = translateError(err, domain.ErrUserNotFound); err == domain.ErrUserNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
