// internal/service/facility.go
package service

import (
	"context"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FacilityService manages buildings and their rooms.
type FacilityService struct {
	buildings TenantStore[model.Building]
	rooms     TenantStore[model.Room]
	audit     audit.Logger
	validate  *validator.Validate
}

func NewFacilityService(buildings TenantStore[model.Building], rooms TenantStore[model.Room], auditLogger audit.Logger) *FacilityService {
	return &FacilityService{
		buildings: buildings,
		rooms:     rooms,
		audit:     auditLogger,
		validate:  validator.New(),
	}
}

type BuildingInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Floors  int    `json:"floors" validate:"gte=0,lte=200"`
}

func (s *FacilityService) ListBuildings(ctx context.Context, offset, limit int) (*Page[model.Building], error) {
	offset, limit = normalizePage(offset, limit)
	items, total, err := s.buildings.List(ctx, repository.ListOptions{Offset: offset, Limit: limit, Order: "name"})
	if err != nil {
		return nil, err
	}
	return &Page[model.Building]{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *FacilityService) GetBuilding(ctx context.Context, id uuid.UUID) (*model.Building, error) {
	return s.buildings.Get(ctx, id)
}

func (s *FacilityService) CreateBuilding(ctx context.Context, input BuildingInput) (*model.Building, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	b := &model.Building{Name: input.Name, Address: input.Address, Floors: input.Floors}
	if b.Floors == 0 {
		b.Floors = 1
	}
	if err := s.buildings.Create(ctx, b); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "buildings", b.ID, map[string]interface{}{"name": b.Name})
	return b, nil
}

func (s *FacilityService) UpdateBuilding(ctx context.Context, id uuid.UUID, input BuildingInput) (*model.Building, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	b, err := s.buildings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Name, b.Address, b.Floors = input.Name, input.Address, input.Floors
	if err := s.buildings.Update(ctx, b); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordUpdate, "buildings", b.ID, nil)
	return b, nil
}

func (s *FacilityService) DeleteBuilding(ctx context.Context, id uuid.UUID) error {
	if err := s.buildings.Delete(ctx, id); err != nil {
		return err
	}
	recordMutation(ctx, s.audit, model.ActionRecordDelete, "buildings", id, nil)
	return nil
}

type RoomInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Floor    int    `json:"floor" validate:"gte=-10,lte=200"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

// ListRooms lists the rooms of a building. A building of another
// organization is reported as not found.
func (s *FacilityService) ListRooms(ctx context.Context, buildingID uuid.UUID) ([]model.Room, error) {
	if _, err := s.buildings.Get(ctx, buildingID); err != nil {
		return nil, err
	}
	rooms, _, err := s.rooms.List(ctx, repository.ListOptions{
		Order:      "floor, name",
		Conditions: map[string]interface{}{"building_id": buildingID},
	})
	return rooms, err
}

func (s *FacilityService) GetRoom(ctx context.Context, buildingID, roomID uuid.UUID) (*model.Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.BuildingID != buildingID {
		return nil, errRoomNotInBuilding
	}
	return room, nil
}

func (s *FacilityService) CreateRoom(ctx context.Context, buildingID uuid.UUID, input RoomInput) (*model.Room, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	if _, err := s.buildings.Get(ctx, buildingID); err != nil {
		return nil, err
	}
	room := &model.Room{BuildingID: buildingID, Name: input.Name, Floor: input.Floor, Capacity: input.Capacity}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "rooms", room.ID, map[string]interface{}{
		"building_id": buildingID.String(),
		"name":        room.Name,
	})
	return room, nil
}

func (s *FacilityService) UpdateRoom(ctx context.Context, buildingID, roomID uuid.UUID, input RoomInput) (*model.Room, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	room, err := s.GetRoom(ctx, buildingID, roomID)
	if err != nil {
		return nil, err
	}
	room.Name, room.Floor, room.Capacity = input.Name, input.Floor, input.Capacity
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordUpdate, "rooms", room.ID, nil)
	return room, nil
}

func (s *FacilityService) DeleteRoom(ctx context.Context, buildingID, roomID uuid.UUID) error {
	if _, err := s.GetRoom(ctx, buildingID, roomID); err != nil {
		return err
	}
	if err := s.rooms.Delete(ctx, roomID); err != nil {
		return err
	}
	recordMutation(ctx, s.audit, model.ActionRecordDelete, "rooms", roomID, nil)
	return nil
}
