// internal/repository/scoped.go
package repository

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const orgColumn = "organization_id"

// ScopedDB is the tenant-filtered data handle. Every operation reads the
// organization from the context at call time and fails with
// domain.ErrMissingOrgContext, without touching the database, when there is
// none.
//
// ScopedDB holds no per-request state and is safe for concurrent use.
type ScopedDB struct {
	db *gorm.DB
}

func NewScopedDB(db *gorm.DB) *ScopedDB {
	return &ScopedDB{db: db}
}

func orgFilter(orgID uuid.UUID) clause.Expression {
	return clause.Eq{
		Column: clause.Column{Table: clause.CurrentTable, Name: orgColumn},
		Value:  orgID,
	}
}

type txContextKey struct{}

// conn returns the transaction opened by TxManager.InTransaction for ctx, or
// db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func (s *ScopedDB) session(ctx context.Context) (*gorm.DB, uuid.UUID, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return conn(ctx, s.db).Where(orgFilter(orgID)), orgID, nil
}

// Find loads every matching record of the active organization into dest.
func (s *ScopedDB) Find(ctx context.Context, dest interface{}, conds ...interface{}) error {
	tx, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	return translateError(tx.Find(dest, conds...).Error, nil)
}

// First loads the first matching record or returns domain.ErrNotFound.
func (s *ScopedDB) First(ctx context.Context, dest interface{}, conds ...interface{}) error {
	tx, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	return translateError(tx.First(dest, conds...).Error, nil)
}

func (s *ScopedDB) Count(ctx context.Context, value interface{}, count *int64, conds ...interface{}) error {
	tx, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	tx = tx.Model(value)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	return translateError(tx.Count(count).Error, nil)
}

// Create stamps rec with the active organization and inserts it. Any
// organization already set on rec is overwritten.
func (s *ScopedDB) Create(ctx context.Context, rec model.TenantRecord) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return err
	}
	rec.SetOrganizationID(orgID)
	return translateError(conn(ctx, s.db).Create(rec).Error, nil)
}

// Update writes every column of rec except the key, the owning organization
// and the creation time. Only a row of the active organization can match; zero
// affected rows yields domain.ErrNotFound. A record without a key is rejected
// with domain.ErrInvalidInput before any query.
func (s *ScopedDB) Update(ctx context.Context, rec model.TenantRecord) error {
	tx, orgID, err := s.session(ctx)
	if err != nil {
		return err
	}
	id := rec.PrimaryKey()
	if id == uuid.Nil {
		return fmt.Errorf("%w: update without a record id", domain.ErrInvalidInput)
	}
	result := tx.Model(rec).
		Where("id = ?", id).
		Select("*").
		Omit("id", orgColumn, "created_at", clause.Associations).
		Updates(rec)
	if result.Error != nil {
		return translateError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	rec.SetOrganizationID(orgID)
	return nil
}

// UpdateColumns applies a partial update to the record with the given id.
func (s *ScopedDB) UpdateColumns(ctx context.Context, value interface{}, id uuid.UUID, columns map[string]interface{}) error {
	tx, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	delete(columns, orgColumn)
	result := tx.Model(value).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return translateError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the record with the given id from the active organization.
func (s *ScopedDB) Delete(ctx context.Context, value interface{}, id uuid.UUID) error {
	tx, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	result := tx.Delete(value, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Query returns a session already filtered to the active organization for
// queries the helpers above do not cover. The filter applies to the
// statement's primary table only; joined tenant tables need their own filter.
func (s *ScopedDB) Query(ctx context.Context) (*gorm.DB, error) {
	tx, _, err := s.session(ctx)
	return tx, err
}

// Transaction runs fn inside a database transaction. The ScopedDB passed to
// fn is bound to the transaction and keeps the same fail-closed behaviour.
func (s *ScopedDB) Transaction(ctx context.Context, fn func(tx *ScopedDB) error) error {
	if _, err := tenant.OrganizationID(ctx); err != nil {
		return err
	}
	err := conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		return fn(&ScopedDB{db: tx})
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// UnscopedDB applies no organization filter. It exists for platform-admin
// paths and for the few lookups that run before any organization is known
// (login by email, setup-token lookup by hash). Callers must already be
// gated accordingly.
type UnscopedDB struct {
	db *gorm.DB
}

func NewUnscopedDB(db *gorm.DB) *UnscopedDB {
	return &UnscopedDB{db: db}
}

// DB returns a session bound to ctx with no tenant filter.
func (u *UnscopedDB) DB(ctx context.Context) *gorm.DB {
	return conn(ctx, u.db)
}

// TxManager runs multi-step writes in one database transaction. Scoped and
// unscoped handles called with the context passed to fn join it, so
// repositories need no transaction-specific variants.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// InTransaction commits when fn returns nil and rolls back otherwise. Nested
// calls run inside the outer transaction.
func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}
