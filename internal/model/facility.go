package model

import (
	"time"

	"github.com/google/uuid"
)

type Building struct {
	Base
	TenantScoped
	Name    string `gorm:"type:text;not null" json:"name"`
	Address string `gorm:"type:text" json:"address"`
	Floors  int    `gorm:"not null;default:1" json:"floors"`
}

type Room struct {
	Base
	TenantScoped
	BuildingID uuid.UUID `gorm:"type:uuid;not null;index" json:"building_id"`
	Name       string    `gorm:"type:text;not null" json:"name"`
	Floor      int       `gorm:"not null;default:0" json:"floor"`
	Capacity   int       `gorm:"not null;default:0" json:"capacity"`
}

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Ticket is a maintenance request. CreatedByID is nil for anonymous
// submissions.
type Ticket struct {
	Base
	TenantScoped
	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      TicketStatus   `gorm:"type:text;not null;default:'open'" json:"status"`
	Priority    TicketPriority `gorm:"type:text;not null;default:'normal'" json:"priority"`
	BuildingID  *uuid.UUID     `gorm:"type:uuid;index" json:"building_id,omitempty"`
	RoomID      *uuid.UUID     `gorm:"type:uuid;index" json:"room_id,omitempty"`
	CreatedByID *uuid.UUID     `gorm:"type:uuid;index" json:"created_by_id,omitempty"`
	AssigneeID  *uuid.UUID     `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

type Event struct {
	Base
	TenantScoped
	Title       string     `gorm:"type:text;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	RoomID      *uuid.UUID `gorm:"type:uuid;index" json:"room_id,omitempty"`
	StartsAt    time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time  `gorm:"not null" json:"ends_at"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`
}

// Schedule is a recurring weekly booking of a room. Times are "HH:MM" in the
// organization's timezone.
type Schedule struct {
	Base
	TenantScoped
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index" json:"room_id"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	DayOfWeek int       `gorm:"not null" json:"day_of_week"`
	StartTime string    `gorm:"type:text;not null" json:"start_time"`
	EndTime   string    `gorm:"type:text;not null" json:"end_time"`
}
