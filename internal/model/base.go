package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the primary key and timestamps shared by every table.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key client side.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Base) PrimaryKey() uuid.UUID {
	return b.ID
}

// TenantRecord is implemented by every table owned by an organization.
type TenantRecord interface {
	PrimaryKey() uuid.UUID
	GetOrganizationID() uuid.UUID
	SetOrganizationID(uuid.UUID)
}

// TenantScoped is embedded by tenant-owned models.
type TenantScoped struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
}

func (t *TenantScoped) GetOrganizationID() uuid.UUID {
	return t.OrganizationID
}

func (t *TenantScoped) SetOrganizationID(id uuid.UUID) {
	t.OrganizationID = id
}
