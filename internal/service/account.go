// internal/service/account.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/go-playground/validator/v10"
)

// AccountService signs org users and platform admins in.
type AccountService struct {
	users       repository.UserRepositoryIface
	roles       repository.RoleRepositoryIface
	orgs        repository.OrganizationRepositoryIface
	admins      repository.AdminRepositoryIface
	hasher      *auth.PasswordHasher
	userTokens  *auth.UserTokenManager
	adminTokens *auth.AdminTokenManager
	validate    *validator.Validate
	now         func() time.Time
}

func NewAccountService(
	users repository.UserRepositoryIface,
	roles repository.RoleRepositoryIface,
	orgs repository.OrganizationRepositoryIface,
	admins repository.AdminRepositoryIface,
	hasher *auth.PasswordHasher,
	userTokens *auth.UserTokenManager,
	adminTokens *auth.AdminTokenManager,
) *AccountService {
	return &AccountService{
		users:       users,
		roles:       roles,
		orgs:        orgs,
		admins:      admins,
		hasher:      hasher,
		userTokens:  userTokens,
		adminTokens: adminTokens,
		validate:    validator.New(),
		now:         time.Now,
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	User  *model.User `json:"user"`
	Role  string      `json:"role"`
	Token string      `json:"token"`
}

// Login authenticates an organization user. The email lookup is the only
// unscoped step; the rest runs scoped to the user's organization.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	verified, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !verified || user.Status != model.StatusActive {
		return nil, domain.ErrInvalidCredentials
	}

	org, err := s.orgs.FindByID(ctx, user.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("finding organization: %w", err)
	}
	if org.Status != model.OrgStatusActive {
		return nil, domain.ErrUnauthorized
	}

	out := &LoginOutput{User: user}
	err = tenant.Run(ctx, user.OrganizationID, func(ctx context.Context) error {
		if user.RoleID != nil {
			role, err := s.roles.FindByID(ctx, *user.RoleID)
			if err != nil && !errors.Is(err, domain.ErrRoleNotFound) {
				return err
			}
			if role != nil {
				out.Role = role.Name
			}
		}
		if err := s.users.RecordLogin(ctx, user.ID, s.now().UTC()); err != nil {
			slog.WarnContext(ctx, "Failed to record login", "error", err, "userID", user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The role claim is informational; permissions are re-resolved per request.
	out.Token, err = s.userTokens.Generate(user.ID, user.OrganizationID, user.Email, out.Role)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	return out, nil
}

type AdminLoginOutput struct {
	Admin *model.PlatformAdmin `json:"admin"`
	Token string               `json:"token"`
}

// AdminLogin authenticates a platform admin. Admin tokens carry no
// organization.
func (s *AccountService) AdminLogin(ctx context.Context, input LoginInput) (*AdminLoginOutput, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}

	admin, err := s.admins.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	verified, err := s.hasher.Verify(input.Password, admin.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !verified || !admin.Active {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.adminTokens.Generate(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	return &AdminLoginOutput{Admin: admin, Token: token}, nil
}

type CreateAdminInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateAdmin creates a platform admin. Used by the operator CLI.
func (s *AccountService) CreateAdmin(ctx context.Context, input CreateAdminInput) (*model.PlatformAdmin, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	if !auth.IsPlatformRole(input.Role) {
		return nil, fmt.Errorf("%w: unknown platform role %q", domain.ErrInvalidInput, input.Role)
	}
	if err := auth.CheckPasswordStrength(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	admin := &model.PlatformAdmin{
		Email:        input.Email,
		Name:         input.Name,
		Role:         input.Role,
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
