// internal/repository/audit_log.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/model"
)

type AuditLogRepositoryIface interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]*model.AuditLog, int64, error)
}

// AuditLogFilter narrows an audit log query.
type AuditLogFilter struct {
	ActionType string
	Resource   string
	ActorID    string
	Offset     int
	Limit      int
}

type AuditLogRepository struct {
	db *ScopedDB
}

func NewAuditLogRepository(db *ScopedDB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, log *model.AuditLog) error {
	if err := r.db.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]*model.AuditLog, int64, error) {
	conditions := map[string]interface{}{}
	if filter.ActionType != "" {
		conditions["action_type"] = filter.ActionType
	}
	if filter.Resource != "" {
		conditions["resource"] = filter.Resource
	}
	if filter.ActorID != "" {
		conditions["actor_id"] = filter.ActorID
	}

	var count int64
	tx, err := r.db.Query(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(conditions) > 0 {
		tx = tx.Where(conditions)
	}
	if err := tx.Model(&model.AuditLog{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []*model.AuditLog
	tx, err = r.db.Query(ctx)
	if err != nil {
		return nil, 0, err
	}
	opts := ListOptions{
		Offset:     filter.Offset,
		Limit:      filter.Limit,
		Order:      "timestamp DESC",
		Conditions: conditions,
	}
	if err := opts.apply(tx).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, count, nil
}
