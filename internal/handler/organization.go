package handler

import (
	"net/http"

	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/service"
)

// OrganizationHandler serves platform admin routes. They run without an
// organization scope.
type OrganizationHandler struct {
	service *service.OrganizationService
}

func NewOrganizationHandler(service *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	page, err := h.service.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, page)
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "orgID")
	if !ok {
		return
	}
	org, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, org)
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateOrganizationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	out, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, out)
}

type SetStatusRequest struct {
	Status model.OrganizationStatus `json:"status"`
}

func (h *OrganizationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "orgID")
	if !ok {
		return
	}
	var req SetStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.SetStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BaseResponse{Ok: true})
}
