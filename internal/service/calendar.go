// internal/service/calendar.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CalendarService manages one-off events and weekly room schedules.
type CalendarService struct {
	events    TenantStore[model.Event]
	schedules TenantStore[model.Schedule]
	rooms     TenantStore[model.Room]
	audit     audit.Logger
	validate  *validator.Validate
}

func NewCalendarService(
	events TenantStore[model.Event],
	schedules TenantStore[model.Schedule],
	rooms TenantStore[model.Room],
	auditLogger audit.Logger,
) *CalendarService {
	return &CalendarService{
		events:    events,
		schedules: schedules,
		rooms:     rooms,
		audit:     auditLogger,
		validate:  validator.New(),
	}
}

type EventInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	RoomID      *uuid.UUID `json:"room_id"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      time.Time  `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

func (s *CalendarService) ListEvents(ctx context.Context, offset, limit int) (*Page[model.Event], error) {
	offset, limit = normalizePage(offset, limit)
	items, total, err := s.events.List(ctx, repository.ListOptions{Offset: offset, Limit: limit, Order: "starts_at"})
	if err != nil {
		return nil, err
	}
	return &Page[model.Event]{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *CalendarService) CreateEvent(ctx context.Context, input EventInput) (*model.Event, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	if input.RoomID != nil {
		if _, err := s.rooms.Get(ctx, *input.RoomID); err != nil {
			return nil, err
		}
	}
	event := &model.Event{
		Title:       input.Title,
		Description: input.Description,
		RoomID:      input.RoomID,
		StartsAt:    input.StartsAt.UTC(),
		EndsAt:      input.EndsAt.UTC(),
		CreatedByID: actorID(ctx),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "events", event.ID, map[string]interface{}{"title": event.Title})
	return event, nil
}

func (s *CalendarService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	recordMutation(ctx, s.audit, model.ActionRecordDelete, "events", id, nil)
	return nil
}

type ScheduleInput struct {
	RoomID    uuid.UUID `json:"room_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	DayOfWeek int       `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string    `json:"end_time" validate:"required,datetime=15:04"`
}

// ListSchedules lists weekly bookings, optionally for one room.
func (s *CalendarService) ListSchedules(ctx context.Context, roomID *uuid.UUID) ([]model.Schedule, error) {
	opts := repository.ListOptions{Order: "day_of_week, start_time"}
	if roomID != nil {
		opts.Conditions = map[string]interface{}{"room_id": *roomID}
	}
	items, _, err := s.schedules.List(ctx, opts)
	return items, err
}

// CreateSchedule books a room weekly. Bookings of the same room on the same
// day must not overlap.
func (s *CalendarService) CreateSchedule(ctx context.Context, input ScheduleInput) (*model.Schedule, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	// HH:MM compares correctly as a string.
	if input.EndTime <= input.StartTime {
		return nil, fmt.Errorf("%w: end_time must be after start_time", domain.ErrInvalidInput)
	}
	if _, err := s.rooms.Get(ctx, input.RoomID); err != nil {
		return nil, err
	}

	existing, _, err := s.schedules.List(ctx, repository.ListOptions{
		Conditions: map[string]interface{}{"room_id": input.RoomID, "day_of_week": input.DayOfWeek},
	})
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if input.StartTime < e.EndTime && e.StartTime < input.EndTime {
			return nil, fmt.Errorf("%w: overlaps %q", domain.ErrAlreadyExists, e.Title)
		}
	}

	sched := &model.Schedule{
		RoomID:    input.RoomID,
		Title:     input.Title,
		DayOfWeek: input.DayOfWeek,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
	}
	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "schedules", sched.ID, map[string]interface{}{"title": sched.Title})
	return sched, nil
}

func (s *CalendarService) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		return err
	}
	recordMutation(ctx, s.audit, model.ActionRecordDelete, "schedules", id, nil)
	return nil
}
