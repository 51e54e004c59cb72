package handler

import (
	"net/http"

	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/service"
)

// AuditLogHandler handles API requests related to audit logs
type AuditLogHandler struct {
	auditLogService *service.AuditLogService
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(auditLogService *service.AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogService: auditLogService,
	}
}

// List returns the organization's audit logs, newest first
func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	q := r.URL.Query()

	page, err := h.auditLogService.List(r.Context(), repository.AuditLogFilter{
		ActionType: q.Get("action_type"),
		Resource:   q.Get("resource"),
		ActorID:    q.Get("actor_id"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, page)
}
