package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/go-chi/chi/v5"
	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ErrorResponse struct { // TypeGen: ErrorResponse
	BaseResponse
	Error   string    `json:"error"`
	Details *[]string `json:"details,omitempty"`
	Code    *string   `json:"error_code,omitempty"`
}

type BaseResponse struct { // TypeGen: DefaultResponse
	Ok bool `json:"ok"`
}

// DataResponse wraps a successful payload.
type DataResponse struct {
	BaseResponse
	Data interface{} `json:"data"`
}

// respondWithError sends an error response with a message and machine
// readable code
func respondWithError(w http.ResponseWriter, code int, message, errorCode string) {
	resp := ErrorResponse{Error: message}
	if errorCode != "" {
		resp.Code = &errorCode
	}
	respondWithJSON(w, code, resp)
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	// Sets content type header
	w.Header().Set("Content-Type", "application/json")

	// Sets the HTTP status code
	w.WriteHeader(code)

	// Encodes the response
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func respondWithData(w http.ResponseWriter, code int, data interface{}) {
	respondWithJSON(w, code, DataResponse{BaseResponse: BaseResponse{Ok: true}, Data: data})
}

// writeError translates a service error into the error envelope. Unknown
// errors are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var permErr *domain.InsufficientPermissionsError
	switch {
	case errors.As(err, &permErr):
		respondWithError(w, http.StatusForbidden, "Insufficient permissions: "+permErr.Permission, "INSUFFICIENT_PERMISSIONS")
	case errors.Is(err, domain.ErrInsufficientPermissions):
		respondWithError(w, http.StatusForbidden, "Insufficient permissions", "INSUFFICIENT_PERMISSIONS")
	case errors.Is(err, domain.ErrMissingOrgContext):
		respondWithError(w, http.StatusUnauthorized, "Organization context required", "MISSING_ORG_CONTEXT")
	case errors.Is(err, domain.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED")
	case errors.Is(err, domain.ErrSetupTokenInvalid):
		respondWithError(w, http.StatusBadRequest, "Invalid setup link", "INVALID_TOKEN")
	case errors.Is(err, domain.ErrTokenUsed):
		respondWithError(w, http.StatusGone, "This link has already been used. Request a new link.", "TOKEN_USED")
	case errors.Is(err, domain.ErrTokenExpired):
		respondWithError(w, http.StatusGone, "This link has expired. Request a new link.", "TOKEN_EXPIRED")
	case errors.Is(err, domain.ErrPasswordTooWeak):
		respondWithError(w, http.StatusBadRequest, "Password does not meet requirements", "PASSWORD_TOO_WEAK")
	case domain.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrEmailAlreadyExists):
		respondWithError(w, http.StatusConflict, err.Error(), "ALREADY_EXISTS")
	case errors.Is(err, domain.ErrInvalidStatus):
		respondWithError(w, http.StatusConflict, err.Error(), "INVALID_STATUS")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidPermissionKey):
		respondWithError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path, "requestID", chmw.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL")
	}
}

// decodeJSON reads the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", "INVALID_INPUT")
		return false
	}
	return true
}

// uuidParam parses a chi URL parameter.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name, "INVALID_INPUT")
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads offset and limit from the query string. Bad values are
// ignored.
func pageParams(r *http.Request) (offset, limit int) {
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return offset, limit
}
