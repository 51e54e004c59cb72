package service

import (
	"context"
	"time"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
)

// Ensure AuditLogService implements the audit.Logger interface
var _ audit.Logger = (*AuditLogService)(nil)

// AuditLogService writes audit records into the tenant-owned audit_logs table.
type AuditLogService struct {
	repo repository.AuditLogRepositoryIface
	now  func() time.Time
}

// NewAuditLogService creates a new AuditLogService
func NewAuditLogService(repo repository.AuditLogRepositoryIface) *AuditLogService {
	return &AuditLogService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *AuditLogService) newLog(ctx context.Context, action string) *model.AuditLog {
	meta := audit.MetaFromContext(ctx)
	log := &model.AuditLog{
		Timestamp:  s.now().UTC(),
		ActionType: action,
		RequestID:  meta.RequestID,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
	}
	if id, ok := auth.IdentityFromContext(ctx); ok {
		subject := id.Subject()
		log.ActorType = string(id.Kind())
		log.ActorID = &subject
	} else {
		log.ActorType = "anonymous"
	}
	return log
}

// LogPermissionCheck records denied checks only; allowed checks are counted
// in metrics.
func (s *AuditLogService) LogPermissionCheck(
	ctx context.Context,
	userID uuid.UUID,
	permission string,
	allowed bool,
) error {
	if allowed || !tenant.HasOrganization(ctx) {
		return nil
	}
	log := s.newLog(ctx, model.ActionPermissionCheck)
	log.Result = &allowed
	log.Permission = permission
	log.Context = model.JSONMap{"user_id": userID.String()}
	return s.repo.Create(ctx, log)
}

// LogMutation logs a create, update or delete of a tenant record
func (s *AuditLogService) LogMutation(
	ctx context.Context,
	action string,
	resource string,
	resourceID string,
	details map[string]interface{},
) error {
	if !tenant.HasOrganization(ctx) {
		return nil
	}
	log := s.newLog(ctx, action)
	log.Resource = resource
	log.ResourceID = resourceID
	log.Context = model.JSONMap(details)
	return s.repo.Create(ctx, log)
}

// List returns audit logs of the active organization, newest first.
func (s *AuditLogService) List(ctx context.Context, filter repository.AuditLogFilter) (*Page[*model.AuditLog], error) {
	filter.Offset, filter.Limit = normalizePage(filter.Offset, filter.Limit)
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[*model.AuditLog]{Items: logs, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}
