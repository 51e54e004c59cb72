package handler

import (
	"net/http"

	"github.com/dangerclosesec/campusops/internal/service"
)

// FacilityHandler serves buildings and the rooms nested under them.
type FacilityHandler struct {
	service *service.FacilityService
}

func NewFacilityHandler(service *service.FacilityService) *FacilityHandler {
	return &FacilityHandler{service: service}
}

func (h *FacilityHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	page, err := h.service.ListBuildings(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, page)
}

func (h *FacilityHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	building, err := h.service.GetBuilding(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, building)
}

func (h *FacilityHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var input service.BuildingInput
	if !decodeJSON(w, r, &input) {
		return
	}
	building, err := h.service.CreateBuilding(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, building)
}

func (h *FacilityHandler) UpdateBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	var input service.BuildingInput
	if !decodeJSON(w, r, &input) {
		return
	}
	building, err := h.service.UpdateBuilding(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, building)
}

func (h *FacilityHandler) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	if err := h.service.DeleteBuilding(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FacilityHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	rooms, err := h.service.ListRooms(r.Context(), buildingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, rooms)
}

func (h *FacilityHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, "roomID")
	if !ok {
		return
	}
	room, err := h.service.GetRoom(r.Context(), buildingID, roomID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, room)
}

func (h *FacilityHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	var input service.RoomInput
	if !decodeJSON(w, r, &input) {
		return
	}
	room, err := h.service.CreateRoom(r.Context(), buildingID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, room)
}

func (h *FacilityHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, "roomID")
	if !ok {
		return
	}
	var input service.RoomInput
	if !decodeJSON(w, r, &input) {
		return
	}
	room, err := h.service.UpdateRoom(r.Context(), buildingID, roomID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, room)
}

func (h *FacilityHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := uuidParam(w, r, "buildingID")
	if !ok {
		return
	}
	roomID, ok := uuidParam(w, r, "roomID")
	if !ok {
		return
	}
	if err := h.service.DeleteRoom(r.Context(), buildingID, roomID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
