package service_test

import (
	"context"
	"sync"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/google/uuid"
)

// memStore is an in-memory TenantStore for one organization.
type memStore[T any] struct {
	mu    sync.Mutex
	items map[uuid.UUID]*T
	base  func(*T) *model.Base
	match func(*T, map[string]interface{}) bool
	lists []repository.ListOptions
}

func newMemStore[T any](base func(*T) *model.Base, match func(*T, map[string]interface{}) bool) *memStore[T] {
	return &memStore[T]{items: map[uuid.UUID]*T{}, base: base, match: match}
}

func (s *memStore[T]) List(ctx context.Context, opts repository.ListOptions) ([]T, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, opts)
	var out []T
	for _, item := range s.items {
		if s.match == nil || s.match(item, opts.Conditions) {
			out = append(out, *item)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *memStore[T]) Create(ctx context.Context, item *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.base(item)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *item
	s.items[b.ID] = &cp
	return nil
}

func (s *memStore[T]) Update(ctx context.Context, item *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.base(item).ID
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	cp := *item
	s.items[id] = &cp
	return nil
}

func (s *memStore[T]) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *memStore[T]) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func ticketStore() *memStore[model.Ticket] {
	return newMemStore(func(t *model.Ticket) *model.Base { return &t.Base }, func(t *model.Ticket, c map[string]interface{}) bool {
		if v, ok := c["created_by_id"]; ok && (t.CreatedByID == nil || *t.CreatedByID != v.(uuid.UUID)) {
			return false
		}
		if v, ok := c["status"]; ok && t.Status != v.(model.TicketStatus) {
			return false
		}
		return true
	})
}

func roomStore() *memStore[model.Room] {
	return newMemStore(func(r *model.Room) *model.Base { return &r.Base }, func(r *model.Room, c map[string]interface{}) bool {
		if v, ok := c["building_id"]; ok && r.BuildingID != v.(uuid.UUID) {
			return false
		}
		return true
	})
}

func buildingStore() *memStore[model.Building] {
	return newMemStore(func(b *model.Building) *model.Base { return &b.Base }, nil)
}

func eventStore() *memStore[model.Event] {
	return newMemStore(func(e *model.Event) *model.Base { return &e.Base }, nil)
}

func scheduleStore() *memStore[model.Schedule] {
	return newMemStore(func(s *model.Schedule) *model.Base { return &s.Base }, func(s *model.Schedule, c map[string]interface{}) bool {
		if v, ok := c["room_id"]; ok && s.RoomID != v.(uuid.UUID) {
			return false
		}
		if v, ok := c["day_of_week"]; ok && s.DayOfWeek != v.(int) {
			return false
		}
		return true
	})
}

// fakeAuthorizer grants exactly the keys it holds.
type fakeAuthorizer struct {
	grants map[string]model.GrantScope
}

func (a *fakeAuthorizer) Grant(ctx context.Context, userID uuid.UUID, key string) (*model.PermissionGrant, error) {
	scope, ok := a.grants[key]
	if !ok {
		return nil, nil
	}
	return &model.PermissionGrant{Scope: scope}, nil
}

func (a *fakeAuthorizer) AssertCan(ctx context.Context, userID uuid.UUID, key string) error {
	if _, ok := a.grants[key]; !ok {
		return &domain.InsufficientPermissionsError{Permission: key}
	}
	return nil
}

// recordingLogger captures audit calls.
type recordingLogger struct {
	mu        sync.Mutex
	mutations []string
	failWith  error
}

func (l *recordingLogger) LogPermissionCheck(ctx context.Context, userID uuid.UUID, permission string, allowed bool) error {
	return nil
}

func (l *recordingLogger) LogMutation(ctx context.Context, action, resource, resourceID string, details map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mutations = append(l.mutations, action+":"+resource)
	return l.failWith
}

// memberSet is a MemberLookup over the users of one organization.
type memberSet map[uuid.UUID]*model.User

func newMembers(users ...*model.User) memberSet {
	m := memberSet{}
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

func (m memberSet) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

// fakeTx runs fn inline and counts outcomes.
type fakeTx struct {
	commits   int
	rollbacks int
}

func (f *fakeTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}
