// internal/service/role.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/permission"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type RoleService struct {
	repo        repository.RoleRepositoryIface
	invalidator GrantInvalidator
	audit       audit.Logger
	validate    *validator.Validate
}

func NewRoleService(repo repository.RoleRepositoryIface, invalidator GrantInvalidator, auditLogger audit.Logger) *RoleService {
	return &RoleService{
		repo:        repo,
		invalidator: invalidator,
		audit:       auditLogger,
		validate:    validator.New(),
	}
}

type GrantInput struct {
	Permission string           `json:"permission" validate:"required"`
	Scope      model.GrantScope `json:"scope" validate:"omitempty,oneof=all own"`
}

type CreateRoleInput struct {
	Name        string       `json:"name" validate:"required,max=64"`
	Description string       `json:"description" validate:"max=255"`
	Grants      []GrantInput `json:"grants" validate:"dive"`
}

func toGrants(inputs []GrantInput) ([]model.PermissionGrant, error) {
	grants := make([]model.PermissionGrant, 0, len(inputs))
	for _, in := range inputs {
		if !permission.Known(in.Permission) {
			return nil, fmt.Errorf("%w: unknown permission %q", domain.ErrInvalidInput, in.Permission)
		}
		key := permission.MustParseKey(in.Permission)
		scope := in.Scope
		if scope == "" {
			scope = model.ScopeAll
		}
		grants = append(grants, model.PermissionGrant{Resource: key.Resource, Action: key.Action, Scope: scope})
	}
	return grants, nil
}

func (s *RoleService) List(ctx context.Context) ([]*model.Role, error) {
	return s.repo.List(ctx)
}

func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*model.Role, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	grants, err := toGrants(input.Grants)
	if err != nil {
		return nil, err
	}

	role := &model.Role{Name: input.Name, Description: input.Description, Grants: grants}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "roles", role.ID, map[string]interface{}{"name": role.Name})
	return role, nil
}

// SetGrants replaces a role's grants. Members of the role see the new set on
// their next request.
func (s *RoleService) SetGrants(ctx context.Context, roleID uuid.UUID, inputs []GrantInput) (*model.Role, error) {
	for _, in := range inputs {
		if err := validateInput(s.validate, in); err != nil {
			return nil, err
		}
	}
	grants, err := toGrants(inputs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetGrants(ctx, roleID, grants); err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	keys := make([]string, 0, len(grants))
	for _, g := range grants {
		keys = append(keys, g.Key()+"/"+string(g.Scope))
	}
	recordMutation(ctx, s.audit, model.ActionRecordUpdate, "roles", roleID, map[string]interface{}{"grants": keys})
	return s.repo.FindByID(ctx, roleID)
}

// SeedDefaults creates the default roles that do not exist yet in the active
// organization.
func (s *RoleService) SeedDefaults(ctx context.Context) ([]*model.Role, error) {
	var created []*model.Role
	for _, def := range permission.DefaultRoles() {
		_, err := s.repo.FindByName(ctx, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return created, err
		}
		role := def
		if err := s.repo.Create(ctx, &role); err != nil {
			return created, err
		}
		created = append(created, &role)
	}
	return created, nil
}
