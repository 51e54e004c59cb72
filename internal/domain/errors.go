// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// General errors
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")

	// Authentication errors
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Tenant scoping errors
	ErrMissingOrgContext = errors.New("missing organization context")

	// Authorization errors
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrInvalidPermissionKey    = errors.New("invalid permission key")

	// Setup token errors
	ErrSetupTokenInvalid = errors.New("invalid setup token")
	ErrTokenUsed         = errors.New("setup token already used")
	ErrTokenExpired      = errors.New("setup token expired")

	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrPasswordTooWeak    = errors.New("password too weak")
	ErrAdminNotFound      = errors.New("platform admin not found")

	// Organization-related errors
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrRoleNotFound         = errors.New("role not found")

	// Resource errors
	ErrBuildingNotFound = errors.New("building not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidStatus    = errors.New("invalid status transition")
)

// InsufficientPermissionsError reports a denied permission check.
type InsufficientPermissionsError struct {
	Permission string
}

func (e *InsufficientPermissionsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInsufficientPermissions, e.Permission)
}

// Is lets errors.Is match ErrInsufficientPermissions.
func (e *InsufficientPermissionsError) Is(target error) bool {
	return target == ErrInsufficientPermissions
}

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrUserNotFound,
		ErrAdminNotFound,
		ErrOrganizationNotFound,
		ErrRoleNotFound,
		ErrBuildingNotFound,
		ErrRoomNotFound,
		ErrTicketNotFound,
		ErrEventNotFound,
		ErrScheduleNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
