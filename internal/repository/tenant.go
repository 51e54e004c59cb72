// internal/repository/tenant.go
package repository

import (
	"context"
	"errors"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/google/uuid"
)

// tenantModel constrains PT to a pointer to T that is a tenant record.
type tenantModel[T any] interface {
	*T
	model.TenantRecord
}

// TenantRepository is the CRUD repository shared by every tenant-owned
// resource. All access goes through ScopedDB.
type TenantRepository[T any, PT tenantModel[T]] struct {
	db       *ScopedDB
	notFound error
}

// NewTenantRepository returns a repository that reports missing rows as
// notFound.
func NewTenantRepository[T any, PT tenantModel[T]](db *ScopedDB, notFound error) *TenantRepository[T, PT] {
	if notFound == nil {
		notFound = domain.ErrNotFound
	}
	return &TenantRepository[T, PT]{db: db, notFound: notFound}
}

func (r *TenantRepository[T, PT]) mapNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return r.notFound
	}
	return err
}

func (r *TenantRepository[T, PT]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	var count int64
	var items []T

	tx, err := r.db.Query(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(opts.Conditions) > 0 {
		tx = tx.Where(opts.Conditions)
	}
	if err := tx.Model(PT(new(T))).Count(&count).Error; err != nil {
		return nil, 0, translateError(err, nil)
	}

	tx, err = r.db.Query(ctx)
	if err != nil {
		return nil, 0, err
	}
	if opts.Order == "" {
		opts.Order = "created_at DESC"
	}
	if err := opts.apply(tx).Find(&items).Error; err != nil {
		return nil, 0, translateError(err, nil)
	}
	return items, count, nil
}

func (r *TenantRepository[T, PT]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	item := new(T)
	if err := r.db.First(ctx, item, "id = ?", id); err != nil {
		return nil, r.mapNotFound(err)
	}
	return item, nil
}

func (r *TenantRepository[T, PT]) Create(ctx context.Context, item *T) error {
	return r.db.Create(ctx, PT(item))
}

func (r *TenantRepository[T, PT]) Update(ctx context.Context, item *T) error {
	return r.mapNotFound(r.db.Update(ctx, PT(item)))
}

func (r *TenantRepository[T, PT]) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	return r.mapNotFound(r.db.UpdateColumns(ctx, PT(new(T)), id, columns))
}

func (r *TenantRepository[T, PT]) Delete(ctx context.Context, id uuid.UUID) error {
	return r.mapNotFound(r.db.Delete(ctx, PT(new(T)), id))
}

type (
	BuildingRepository = TenantRepository[model.Building, *model.Building]
	RoomRepository     = TenantRepository[model.Room, *model.Room]
	TicketRepository   = TenantRepository[model.Ticket, *model.Ticket]
	EventRepository    = TenantRepository[model.Event, *model.Event]
	ScheduleRepository = TenantRepository[model.Schedule, *model.Schedule]
)

func NewBuildingRepository(db *ScopedDB) *BuildingRepository {
	return NewTenantRepository[model.Building](db, domain.ErrBuildingNotFound)
}

func NewRoomRepository(db *ScopedDB) *RoomRepository {
	return NewTenantRepository[model.Room](db, domain.ErrRoomNotFound)
}

func NewTicketRepository(db *ScopedDB) *TicketRepository {
	return NewTenantRepository[model.Ticket](db, domain.ErrTicketNotFound)
}

func NewEventRepository(db *ScopedDB) *EventRepository {
	return NewTenantRepository[model.Event](db, domain.ErrEventNotFound)
}

func NewScheduleRepository(db *ScopedDB) *ScheduleRepository {
	return NewTenantRepository[model.Schedule](db, domain.ErrScheduleNotFound)
}
