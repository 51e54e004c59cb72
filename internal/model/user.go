// internal/model/user.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	StatusPending   UserStatus = "pending"
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
)

// User is an organization member. Email is unique across the platform so
// login can resolve the organization from it.
type User struct {
	Base
	TenantScoped
	Email        string     `gorm:"type:citext;uniqueIndex;not null" json:"email"`
	FirstName    string     `gorm:"type:text;not null" json:"first_name"`
	LastName     string     `gorm:"type:text" json:"last_name"`
	Status       UserStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	RoleID       *uuid.UUID `gorm:"type:uuid;index" json:"role_id,omitempty"`
	PasswordHash string     `gorm:"type:text" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// PlatformAdmin operates the platform across organizations.
type PlatformAdmin struct {
	Base
	Email        string `gorm:"type:citext;uniqueIndex;not null" json:"email"`
	Name         string `gorm:"type:text" json:"name"`
	Role         string `gorm:"type:text;not null" json:"role"`
	Active       bool   `gorm:"not null" json:"active"`
	PasswordHash string `gorm:"type:text;not null" json:"-"`
}

type SetupPurpose string

const (
	PurposePasswordSetup SetupPurpose = "password_setup"
	PurposePasswordReset SetupPurpose = "password_reset"
)

// SetupTokenState is derived at validation time, never stored.
type SetupTokenState string

const (
	SetupTokenPending SetupTokenState = "pending"
	SetupTokenUsed    SetupTokenState = "used"
	SetupTokenExpired SetupTokenState = "expired"
)

// SetupToken is a single-use, time-bounded credential. Only the SHA-256 hash
// of the token is stored.
type SetupToken struct {
	Base
	TenantScoped
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string       `gorm:"type:text;uniqueIndex;not null" json:"-"`
	Purpose   SetupPurpose `gorm:"type:text;not null" json:"purpose"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time   `json:"used_at,omitempty"`
}

// State reports the token's state at now. Used wins over expired: both are
// terminal and rejecting.
func (t *SetupToken) State(now time.Time) SetupTokenState {
	switch {
	case t.UsedAt != nil:
		return SetupTokenUsed
	case !now.Before(t.ExpiresAt):
		return SetupTokenExpired
	default:
		return SetupTokenPending
	}
}
