// internal/service/organization.go
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// OrganizationService is used by platform admins. Organization rows are read
// and written unscoped; onboarding steps inside the new organization run
// scoped to it.
type OrganizationService struct {
	repo     repository.OrganizationRepositoryIface
	tx       Transactor
	roles    *RoleService
	users    *UserService
	setup    *SetupTokenService
	validate *validator.Validate
}

func NewOrganizationService(
	repo repository.OrganizationRepositoryIface,
	tx Transactor,
	roles *RoleService,
	users *UserService,
	setup *SetupTokenService,
) *OrganizationService {
	return &OrganizationService{
		repo:     repo,
		tx:       tx,
		roles:    roles,
		users:    users,
		setup:    setup,
		validate: validator.New(),
	}
}

type CreateOrganizationInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Slug     string `json:"slug" validate:"omitempty,max=64"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`

	// Optional first administrator, invited with a setup link.
	AdminEmail     string `json:"admin_email" validate:"omitempty,email"`
	AdminFirstName string `json:"admin_first_name" validate:"required_with=AdminEmail"`
	AdminLastName  string `json:"admin_last_name"`
}

type CreateOrganizationOutput struct {
	Organization *model.Organization `json:"organization"`
	Roles        []*model.Role       `json:"roles"`
	Admin        *model.User         `json:"admin,omitempty"`
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Create provisions an organization, seeds its default roles and, when an
// admin email is given, invites the first administrator. All of it commits
// together or not at all.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*CreateOrganizationOutput, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}

	org := &model.Organization{
		Name:     input.Name,
		Slug:     input.Slug,
		Status:   model.OrgStatusActive,
		Timezone: input.Timezone,
	}
	if org.Slug == "" {
		org.Slug = slugify(input.Name)
	}
	if org.Timezone == "" {
		org.Timezone = "UTC"
	}
	out := &CreateOrganizationOutput{Organization: org}
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, org); err != nil {
			return err
		}
		return tenant.Run(ctx, org.ID, func(ctx context.Context) error {
			return s.onboard(ctx, input, out)
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// onboard seeds roles and invites the first administrator inside the new
// organization.
func (s *OrganizationService) onboard(ctx context.Context, input CreateOrganizationInput, out *CreateOrganizationOutput) error {
	roles, err := s.roles.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seeding roles: %w", err)
	}
	out.Roles = roles

	if input.AdminEmail == "" {
		return nil
	}
	var adminRole *uuid.UUID
	for _, r := range roles {
		if r.Name == "admin" {
			id := r.ID
			adminRole = &id
		}
	}
	admin, err := s.users.Create(ctx, CreateUserInput{
		Email:     input.AdminEmail,
		FirstName: input.AdminFirstName,
		LastName:  input.AdminLastName,
		RoleID:    adminRole,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	out.Admin = admin

	if s.setup != nil {
		if _, err := s.setup.Issue(ctx, admin.ID, model.PurposePasswordSetup); err != nil {
			return fmt.Errorf("issuing setup link: %w", err)
		}
	}
	return nil
}

func (s *OrganizationService) List(ctx context.Context, offset, limit int) (*Page[*model.Organization], error) {
	offset, limit = normalizePage(offset, limit)
	orgs, total, err := s.repo.FindAllPaginated(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &Page[*model.Organization]{Items: orgs, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return s.repo.FindByID(ctx, id)
}

// IsActive reports whether the organization exists and is not suspended.
func (s *OrganizationService) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	org, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrOrganizationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return org.Status == model.OrgStatusActive, nil
}

// SetStatus suspends or reactivates an organization. Users of a suspended
// organization cannot sign in, and their existing tokens are refused by the
// organization middleware.
func (s *OrganizationService) SetStatus(ctx context.Context, id uuid.UUID, status model.OrganizationStatus) error {
	if status != model.OrgStatusActive && status != model.OrgStatusSuspended {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
