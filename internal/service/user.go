// internal/service/user.go
package service

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GrantInvalidator drops cached grants after role changes. Implemented by
// permission.Resolver.
type GrantInvalidator interface {
	Invalidate(ctx context.Context)
}

// UserService manages the members of the active organization.
type UserService struct {
	repo        repository.UserRepositoryIface
	tx          Transactor
	invalidator GrantInvalidator
	audit       audit.Logger
	validate    *validator.Validate
}

func NewUserService(repo repository.UserRepositoryIface, tx Transactor, invalidator GrantInvalidator, auditLogger audit.Logger) *UserService {
	return &UserService{
		repo:        repo,
		tx:          tx,
		invalidator: invalidator,
		audit:       auditLogger,
		validate:    validator.New(),
	}
}

type CreateUserInput struct {
	Email     string     `json:"email" validate:"required,email"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"max=100"`
	RoleID    *uuid.UUID `json:"role_id"`
}

// Create adds a pending member. The member sets a password through a setup
// link. The user row and its role assignment are written in one transaction.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Status:    model.StatusPending,
	}
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, user); err != nil {
			return err
		}
		if input.RoleID == nil {
			return nil
		}
		if err := s.repo.AssignRole(ctx, user.ID, input.RoleID); err != nil {
			return fmt.Errorf("assigning role: %w", err)
		}
		user.RoleID = input.RoleID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if user.RoleID != nil {
		s.roleChanged(ctx, user.ID, user.RoleID)
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "users", user.ID, map[string]interface{}{"email": user.Email})
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, offset, limit int) (*Page[*model.User], error) {
	offset, limit = normalizePage(offset, limit)
	users, total, err := s.repo.FindAllPaginated(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return &Page[*model.User]{Items: users, Total: total, Offset: offset, Limit: limit}, nil
}

// AssignRole sets or clears a member's role. The change applies to the next
// permission check.
func (s *UserService) AssignRole(ctx context.Context, userID uuid.UUID, roleID *uuid.UUID) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.roleChanged(ctx, userID, roleID)
	return nil
}

func (s *UserService) roleChanged(ctx context.Context, userID uuid.UUID, roleID *uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	details := map[string]interface{}{"role_id": nil}
	if roleID != nil {
		details["role_id"] = roleID.String()
	}
	recordMutation(ctx, s.audit, model.ActionRoleAssign, "users", userID, details)
}
