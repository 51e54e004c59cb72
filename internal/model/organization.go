// internal/model/organization.go
package model

import (
	"github.com/google/uuid"
)

type OrganizationStatus string

const (
	OrgStatusActive    OrganizationStatus = "active"
	OrgStatusSuspended OrganizationStatus = "suspended"
)

// Organization is a tenant: one school. It is not itself tenant-owned and is
// only read or written through the unscoped handle by platform admins.
type Organization struct {
	Base
	Name     string             `gorm:"type:text;not null" json:"name"`
	Slug     string             `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	Status   OrganizationStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	Timezone string             `gorm:"type:text;not null;default:'UTC'" json:"timezone"`
}

// Role groups permission grants inside one organization. A user holds zero
// or one role.
type Role struct {
	Base
	TenantScoped
	Name        string            `gorm:"type:text;not null" json:"name"`
	Description string            `gorm:"type:text" json:"description"`
	Grants      []PermissionGrant `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"grants,omitempty"`
}

// GrantScope narrows a grant.
type GrantScope string

const (
	// ScopeAll applies to every record of the resource in the organization.
	ScopeAll GrantScope = "all"
	// ScopeOwn applies only to records created by the caller.
	ScopeOwn GrantScope = "own"
)

// PermissionGrant allows one action on one resource type.
type PermissionGrant struct {
	Base
	TenantScoped
	RoleID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"role_id"`
	Resource string     `gorm:"type:text;not null" json:"resource"`
	Action   string     `gorm:"type:text;not null" json:"action"`
	Scope    GrantScope `gorm:"type:text;not null;default:'all'" json:"scope"`
}

// Key returns the "resource:action" form of the grant.
func (g PermissionGrant) Key() string {
	return g.Resource + ":" + g.Action
}
