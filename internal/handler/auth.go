// internal/handler/auth.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/service"
	chmw "github.com/go-chi/chi/v5/middleware"
)

type AuthHandler struct {
	accounts *service.AccountService
	setup    *service.SetupTokenService
	users    *service.UserService
}

func NewAuthHandler(accounts *service.AccountService, setup *service.SetupTokenService, users *service.UserService) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		setup:    setup,
		users:    users,
	}
}

type LoginResponse struct {
	BaseResponse
	User  *model.User `json:"user"`
	Role  string      `json:"role,omitempty"`
	Token string      `json:"token"`
}

// Login signs an organization user in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	output, err := h.accounts.Login(r.Context(), input)
	if err != nil {
		slog.InfoContext(r.Context(), "User login failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         output.User,
		Role:         output.Role,
		Token:        output.Token,
	})
}

type AdminLoginResponse struct {
	BaseResponse
	Admin *model.PlatformAdmin `json:"admin"`
	Token string               `json:"token"`
}

// AdminLogin signs a platform admin in.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	output, err := h.accounts.AdminLogin(r.Context(), input)
	if err != nil {
		slog.WarnContext(r.Context(), "Admin login failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AdminLoginResponse{
		BaseResponse: BaseResponse{Ok: true},
		Admin:        output.Admin,
		Token:        output.Token,
	})
}

type SetupTokenStatusResponse struct {
	BaseResponse
	Status service.SetupTokenStatus `json:"status"`
}

// ValidateSetupToken reports only the coarse token status.
func (h *AuthHandler) ValidateSetupToken(w http.ResponseWriter, r *http.Request) {
	status, err := h.setup.Validate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SetupTokenStatusResponse{
		BaseResponse: BaseResponse{Ok: status == service.SetupTokenValid},
		Status:       status,
	})
}

type RedeemSetupTokenRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// RedeemSetupToken sets the password of the token's owner.
func (h *AuthHandler) RedeemSetupToken(w http.ResponseWriter, r *http.Request) {
	var req RedeemSetupTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.setup.Redeem(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BaseResponse{Ok: true})
}

type MeResponse struct {
	BaseResponse
	User         *model.User `json:"user"`
	Organization string      `json:"organization_id"`
}

// Me returns the signed-in organization user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}
	user, err := h.users.Get(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MeResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         user,
		Organization: identity.OrganizationID.String(),
	})
}
