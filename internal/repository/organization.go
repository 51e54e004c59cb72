// internal/repository/organization.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/google/uuid"
)

type OrganizationRepositoryIface interface {
	FindAllPaginated(ctx context.Context, offset, limit int) ([]*model.Organization, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
	Create(ctx context.Context, org *model.Organization) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrganizationStatus) error
}

// OrganizationRepository works across tenants and is only reachable from
// platform-admin routes and the operator CLI.
type OrganizationRepository struct {
	db *UnscopedDB
}

func NewOrganizationRepository(db *UnscopedDB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FindAllPaginated returns a paginated list of organizations
func (r *OrganizationRepository) FindAllPaginated(ctx context.Context, offset, limit int) ([]*model.Organization, int64, error) {
	var orgs []*model.Organization
	var count int64

	if err := r.db.DB(ctx).Model(&model.Organization{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	opts := ListOptions{Offset: offset, Limit: limit, Order: "name"}
	if err := opts.apply(r.db.DB(ctx)).Find(&orgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find paginated organizations: %w", err)
	}

	return orgs, count, nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *OrganizationRepository) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *OrganizationRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.DB(ctx).First(&org, query, arg).Error; err != nil {
		if err = translateError(err, domain.ErrOrganizationNotFound); err == domain.ErrOrganizationNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("finding organization: %w", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	if org.Status == "" {
		org.Status = model.OrgStatusActive
	}
	if err := r.db.DB(ctx).Create(org).Error; err != nil {
		return fmt.Errorf("creating organization: %w", translateError(err, nil))
	}
	return nil
}

func (r *OrganizationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrganizationStatus) error {
	result := r.db.DB(ctx).Model(&model.Organization{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("updating organization: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}
