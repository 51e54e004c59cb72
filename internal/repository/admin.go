// internal/repository/admin.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/google/uuid"
)

type AdminRepositoryIface interface {
	Create(ctx context.Context, admin *model.PlatformAdmin) error
	FindByEmail(ctx context.Context, email string) (*model.PlatformAdmin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.PlatformAdmin, error)
}

// AdminRepository stores platform admins. Admins belong to no organization.
type AdminRepository struct {
	db *UnscopedDB
}

func NewAdminRepository(db *UnscopedDB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, admin *model.PlatformAdmin) error {
	admin.Email = normalizeEmail(admin.Email)
	if err := r.db.DB(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", translateError(err, nil))
	}
	return nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*model.PlatformAdmin, error) {
	return r.findOne(ctx, "email = ?", normalizeEmail(email))
}

func (r *AdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PlatformAdmin, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *AdminRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.PlatformAdmin, error) {
	var admin model.PlatformAdmin
	if err := r.db.DB(ctx).First(&admin, query, arg).Error; err != nil {
		if err = translateError(err, domain.ErrAdminNotFound); err == domain.ErrAdminNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return &admin, nil
}
