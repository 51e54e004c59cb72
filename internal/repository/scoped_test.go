package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestScopedDBFailsClosedWithoutOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	ctx := context.Background()

	var buildings []model.Building
	var count int64
	_, queryErr := scoped.Query(ctx)

	errs := []error{
		scoped.Find(ctx, &buildings),
		scoped.First(ctx, &model.Building{}, "id = ?", uuid.New()),
		scoped.Count(ctx, &model.Building{}, &count),
		scoped.Create(ctx, &model.Building{Name: "Main"}),
		scoped.Update(ctx, &model.Building{Base: model.Base{ID: uuid.New()}}),
		scoped.UpdateColumns(ctx, &model.Building{}, uuid.New(), map[string]interface{}{"name": "x"}),
		scoped.Delete(ctx, &model.Building{}, uuid.New()),
		queryErr,
		scoped.Transaction(ctx, func(tx *ScopedDB) error { return nil }),
	}
	for i, err := range errs {
		assert.ErrorIs(t, err, domain.ErrMissingOrgContext, "operation %d", i)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBFindFiltersByOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	orgID := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "buildings" WHERE "buildings"."organization_id" = $1`)).
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name"}).
			AddRow(uuid.New(), orgID, "Main"))

	var buildings []model.Building
	require.NoError(t, scoped.Find(ctx, &buildings))
	require.Len(t, buildings, 1)
	assert.Equal(t, "Main", buildings[0].Name)
	assert.Equal(t, orgID, buildings[0].OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBCreateStampsOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	orgID := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)

	mock.ExpectExec(`INSERT INTO "buildings" .*"organization_id"`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), orgID, "Main", "1 School Rd", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// A caller-supplied organization must not survive.
	b := &model.Building{Name: "Main", Address: "1 School Rd", Floors: 3}
	b.OrganizationID = uuid.New()
	require.NoError(t, scoped.Create(ctx, b))
	assert.Equal(t, orgID, b.OrganizationID)
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBRecordInvisibleToOtherOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	orgX, orgY := uuid.New(), uuid.New()
	id := uuid.New()

	ctxY := tenant.WithOrganization(context.Background(), orgY)
	mock.ExpectQuery(`SELECT \* FROM "buildings" WHERE "buildings"\."organization_id" = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name"}))

	err := scoped.First(ctxY, &model.Building{}, "id = ?", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectExec(`UPDATE "buildings" SET .* WHERE .*"organization_id" = .*"id" = `).
		WillReturnResult(sqlmock.NewResult(0, 0))
	b := &model.Building{Base: model.Base{ID: id}, Name: "Hijack"}
	b.OrganizationID = orgX
	assert.ErrorIs(t, scoped.Update(ctxY, b), domain.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "buildings" WHERE "buildings"."organization_id" = $1 AND id = $2`)).
		WithArgs(orgY, id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, scoped.Delete(ctxY, &model.Building{}, id), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBUpdateNeverWritesOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	orgID := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)

	mock.ExpectExec(`UPDATE "buildings" SET "updated_at"=\$1,"name"=\$2,"address"=\$3,"floors"=\$4 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b := &model.Building{Base: model.Base{ID: uuid.New()}, Name: "Annex", Floors: 2}
	require.NoError(t, scoped.Update(ctx, b))
	assert.Equal(t, orgID, b.OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBTranslatesUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	ctx := tenant.WithOrganization(context.Background(), uuid.New())

	mock.ExpectExec(`INSERT INTO "roles"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_roles_org_name"})

	err := scoped.Create(ctx, &model.Role{Name: "admin"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnscopedDBAppliesNoFilter(t *testing.T) {
	db, mock := newMockDB(t)
	unscoped := NewUnscopedDB(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "organizations"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(uuid.New(), "North High").
			AddRow(uuid.New(), "South High"))

	var orgs []model.Organization
	require.NoError(t, unscoped.DB(context.Background()).Find(&orgs).Error)
	assert.Len(t, orgs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBUpdateRequiresRecordID(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	ctx := tenant.WithOrganization(context.Background(), uuid.New())

	err := scoped.Update(ctx, &model.Building{Name: "Clobber"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopedDBUpdateFiltersByRecordID(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	orgID := uuid.New()
	id := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)

	mock.ExpectExec(`UPDATE "buildings" SET .* WHERE "buildings"\."organization_id" = \$\d+ AND id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, scoped.Update(ctx, &model.Building{Base: model.Base{ID: id}, Name: "Annex"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollsBackEveryHandle(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	unscoped := NewUnscopedDB(db)
	txm := NewTxManager(db)
	orgID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "organizations"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "roles"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := txm.InTransaction(context.Background(), func(ctx context.Context) error {
		org := &model.Organization{Base: model.Base{ID: orgID}, Name: "North High", Slug: "north-high"}
		if err := unscoped.DB(ctx).Create(org).Error; err != nil {
			return err
		}
		return tenant.Run(ctx, orgID, func(ctx context.Context) error {
			return scoped.Create(ctx, &model.Role{Name: "admin"})
		})
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerNestedCallsShareTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	scoped := NewScopedDB(db)
	txm := NewTxManager(db)
	ctx := tenant.WithOrganization(context.Background(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "buildings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "buildings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := txm.InTransaction(ctx, func(ctx context.Context) error {
		if err := scoped.Create(ctx, &model.Building{Name: "North"}); err != nil {
			return err
		}
		return txm.InTransaction(ctx, func(ctx context.Context) error {
			return scoped.Create(ctx, &model.Building{Name: "South"})
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
