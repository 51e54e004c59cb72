package handler

import (
	"net/http"
	"time"

	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/service"
	"github.com/google/uuid"
)

// UserHandler manages organization members and roles.
type UserHandler struct {
	users *service.UserService
	roles *service.RoleService
	setup *service.SetupTokenService
}

func NewUserHandler(users *service.UserService, roles *service.RoleService, setup *service.SetupTokenService) *UserHandler {
	return &UserHandler{users: users, roles: roles, setup: setup}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	page, err := h.users.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, page)
}

type CreateUserResponse struct {
	BaseResponse
	User      *model.User `json:"user"`
	ExpiresAt string      `json:"setup_link_expires_at"`
}

// Create adds a member and emails them a setup link.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}
	user, err := h.users.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	issued, err := h.setup.Issue(r.Context(), user.ID, model.PurposePasswordSetup)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, CreateUserResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         user,
		ExpiresAt:    issued.ExpiresAt.Format(time.RFC3339),
	})
}

type AssignRoleRequest struct {
	RoleID *uuid.UUID `json:"role_id"`
}

// AssignRole sets or clears a member's role. A null role_id clears it.
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	var req AssignRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.users.AssignRole(r.Context(), userID, req.RoleID); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BaseResponse{Ok: true})
}

// SendSetupLink issues a fresh setup or reset link. ?purpose=password_reset
// sends a reset email.
func (h *UserHandler) SendSetupLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	purpose := model.SetupPurpose(r.URL.Query().Get("purpose"))
	if purpose == "" {
		purpose = model.PurposePasswordSetup
	}
	issued, err := h.setup.Issue(r.Context(), userID, purpose)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, issued)
}

func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, roles)
}

func (h *UserHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var input service.CreateRoleInput
	if !decodeJSON(w, r, &input) {
		return
	}
	role, err := h.roles.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, role)
}

type SetGrantsRequest struct {
	Grants []service.GrantInput `json:"grants"`
}

// SetGrants replaces a role's grant set.
func (h *UserHandler) SetGrants(w http.ResponseWriter, r *http.Request) {
	roleID, ok := uuidParam(w, r, "roleID")
	if !ok {
		return
	}
	var req SetGrantsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := h.roles.SetGrants(r.Context(), roleID, req.Grants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, role)
}
