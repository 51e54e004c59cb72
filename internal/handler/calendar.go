package handler

import (
	"net/http"

	"github.com/dangerclosesec/campusops/internal/service"
	"github.com/google/uuid"
)

type CalendarHandler struct {
	service *service.CalendarService
}

func NewCalendarHandler(service *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	page, err := h.service.ListEvents(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, page)
}

func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input service.EventInput
	if !decodeJSON(w, r, &input) {
		return
	}
	event, err := h.service.CreateEvent(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, event)
}

func (h *CalendarHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "eventID")
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSchedules accepts an optional room_id filter.
func (h *CalendarHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	var roomID *uuid.UUID
	if raw := r.URL.Query().Get("room_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid room_id", "INVALID_INPUT")
			return
		}
		roomID = &id
	}
	schedules, err := h.service.ListSchedules(r.Context(), roomID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, schedules)
}

func (h *CalendarHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var input service.ScheduleInput
	if !decodeJSON(w, r, &input) {
		return
	}
	schedule, err := h.service.CreateSchedule(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, schedule)
}

func (h *CalendarHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "scheduleID")
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
