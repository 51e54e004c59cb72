// internal/service/ticket.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/permission"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TicketService applies grant scope: a caller holding tickets:read with scope
// "own" only sees tickets they created.
type TicketService struct {
	tickets        TenantStore[model.Ticket]
	rooms          TenantStore[model.Room]
	members        MemberLookup
	authz          Authorizer
	audit          audit.Logger
	validate       *validator.Validate
	allowAnonymous bool
	now            func() time.Time
}

// NewTicketService creates the service. allowAnonymous permits ticket
// submission with no identity, for requests scoped by the organization
// header alone.
func NewTicketService(
	tickets TenantStore[model.Ticket],
	rooms TenantStore[model.Room],
	members MemberLookup,
	authz Authorizer,
	auditLogger audit.Logger,
	allowAnonymous bool,
) *TicketService {
	return &TicketService{
		tickets:        tickets,
		rooms:          rooms,
		members:        members,
		authz:          authz,
		audit:          auditLogger,
		validate:       validator.New(),
		allowAnonymous: allowAnonymous,
		now:            time.Now,
	}
}

// MemberLookup finds a user of the active organization. Implemented by
// repository.UserRepository.
type MemberLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// readScope returns the caller's read grant scope or a permission error.
func (s *TicketService) readScope(ctx context.Context) (auth.UserIdentity, model.GrantScope, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return user, "", err
	}
	grant, err := s.authz.Grant(ctx, user.UserID, permission.TicketsRead)
	if err != nil {
		return user, "", err
	}
	if grant == nil {
		return user, "", &domain.InsufficientPermissionsError{Permission: permission.TicketsRead}
	}
	return user, grant.Scope, nil
}

type TicketFilter struct {
	Status model.TicketStatus
	Offset int
	Limit  int
}

func (s *TicketService) List(ctx context.Context, filter TicketFilter) (*Page[model.Ticket], error) {
	user, scope, err := s.readScope(ctx)
	if err != nil {
		return nil, err
	}

	conditions := map[string]interface{}{}
	if scope == model.ScopeOwn {
		conditions["created_by_id"] = user.UserID
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, filter.Status)
		}
		conditions["status"] = filter.Status
	}

	offset, limit := normalizePage(filter.Offset, filter.Limit)
	items, total, err := s.tickets.List(ctx, repository.ListOptions{
		Offset:     offset,
		Limit:      limit,
		Conditions: conditions,
	})
	if err != nil {
		return nil, err
	}
	return &Page[model.Ticket]{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

// Get returns a ticket. Tickets outside the caller's scope are reported as
// not found.
func (s *TicketService) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	user, scope, err := s.readScope(ctx)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope == model.ScopeOwn && (ticket.CreatedByID == nil || *ticket.CreatedByID != user.UserID) {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, nil
}

type SubmitTicketInput struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"max=5000"`
	Priority    model.TicketPriority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	RoomID      *uuid.UUID           `json:"room_id"`
}

// Submit files a ticket. Signed-in callers need tickets:submit; anonymous
// callers are accepted only when the service was built with allowAnonymous.
func (s *TicketService) Submit(ctx context.Context, input SubmitTicketInput) (*model.Ticket, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Status:      model.TicketOpen,
		Priority:    input.Priority,
	}
	if ticket.Priority == "" {
		ticket.Priority = model.PriorityNormal
	}

	if user, ok := auth.UserFromContext(ctx); ok {
		if err := s.authz.AssertCan(ctx, user.UserID, permission.TicketsSubmit); err != nil {
			return nil, err
		}
		ticket.CreatedByID = &user.UserID
	} else if !s.allowAnonymous {
		return nil, domain.ErrUnauthorized
	}

	if input.RoomID != nil {
		room, err := s.rooms.Get(ctx, *input.RoomID)
		if err != nil {
			return nil, err
		}
		ticket.RoomID = &room.ID
		ticket.BuildingID = &room.BuildingID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordCreate, "tickets", ticket.ID, map[string]interface{}{"title": ticket.Title})
	return ticket, nil
}

type UpdateTicketInput struct {
	Status     model.TicketStatus `json:"status" validate:"required"`
	AssigneeID *uuid.UUID         `json:"assignee_id"`
}

var ticketTransitions = map[model.TicketStatus][]model.TicketStatus{
	model.TicketOpen:       {model.TicketInProgress, model.TicketResolved, model.TicketClosed},
	model.TicketInProgress: {model.TicketOpen, model.TicketResolved, model.TicketClosed},
	model.TicketResolved:   {model.TicketOpen, model.TicketClosed},
	model.TicketClosed:     {},
}

func canTransition(from, to model.TicketStatus) bool {
	if from == to {
		return true
	}
	for _, s := range ticketTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Update changes status and assignee. Closed tickets are final.
func (s *TicketService) Update(ctx context.Context, id uuid.UUID, input UpdateTicketInput) (*model.Ticket, error) {
	if err := validateInput(s.validate, input); err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, input.Status)
	}

	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(ticket.Status, input.Status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatus, ticket.Status, input.Status)
	}

	if input.AssigneeID != nil {
		// Scoped lookup: a user of another organization is not found.
		if _, err := s.members.FindByID(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	from := ticket.Status
	ticket.Status = input.Status
	ticket.AssigneeID = input.AssigneeID
	switch input.Status {
	case model.TicketResolved, model.TicketClosed:
		if ticket.ResolvedAt == nil {
			now := s.now().UTC()
			ticket.ResolvedAt = &now
		}
	default:
		ticket.ResolvedAt = nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	recordMutation(ctx, s.audit, model.ActionRecordUpdate, "tickets", ticket.ID, map[string]interface{}{
		"from": from,
		"to":   ticket.Status,
	})
	return ticket, nil
}
