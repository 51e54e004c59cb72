package handler

import (
	"net/http"

	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/service"
)

// TicketHandler serves maintenance tickets. Read scope and the anonymous
// submission policy are enforced by the service.
type TicketHandler struct {
	service *service.TicketService
}

func NewTicketHandler(service *service.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	page, err := h.service.List(r.Context(), service.TicketFilter{
		Status: model.TicketStatus(r.URL.Query().Get("status")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, page)
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "ticketID")
	if !ok {
		return
	}
	ticket, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, ticket)
}

func (h *TicketHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input service.SubmitTicketInput
	if !decodeJSON(w, r, &input) {
		return
	}
	ticket, err := h.service.Submit(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, ticket)
}

func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "ticketID")
	if !ok {
		return
	}
	var input service.UpdateTicketInput
	if !decodeJSON(w, r, &input) {
		return
	}
	ticket, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, ticket)
}
