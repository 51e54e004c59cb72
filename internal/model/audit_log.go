package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuditLog records a permission decision or a mutation within an
// organization.
type AuditLog struct {
	Base
	TenantScoped
	Timestamp  time.Time  `json:"timestamp" gorm:"not null"`
	ActionType string     `json:"action_type" gorm:"type:text;not null;index"`
	Result     *bool      `json:"result,omitempty"`
	ActorType  string     `json:"actor_type" gorm:"type:text"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty" gorm:"type:uuid;index"`
	Resource   string     `json:"resource" gorm:"type:text"`
	ResourceID string     `json:"resource_id" gorm:"type:text"`
	Permission string     `json:"permission" gorm:"type:text"`
	Context    JSONMap    `json:"context" gorm:"type:jsonb"`
	RequestID  string     `json:"request_id" gorm:"type:text"`
	ClientIP   string     `json:"client_ip" gorm:"type:text"`
	UserAgent  string     `json:"user_agent" gorm:"type:text"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSONMap represents a generic map stored as JSONB in the database
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(JSONMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion failed: failed to decode JSONB")
	}

	return json.Unmarshal(bytes, m)
}

// Audit action types
const (
	ActionPermissionCheck = "permission_check"
	ActionRecordCreate    = "record_create"
	ActionRecordUpdate    = "record_update"
	ActionRecordDelete    = "record_delete"
	ActionRoleAssign      = "role_assign"
	ActionSetupIssued     = "setup_token_issued"
	ActionSetupRedeemed   = "setup_token_redeemed"
)
