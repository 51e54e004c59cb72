package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantRepositoryGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBuildingRepository(NewScopedDB(db))
	ctx := tenant.WithOrganization(context.Background(), uuid.New())

	mock.ExpectQuery(`SELECT \* FROM "buildings" WHERE "buildings"\."organization_id" = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBuildingNotFound)
	assert.True(t, domain.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepositoryListAddsConditions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoomRepository(NewScopedDB(db))
	orgID, buildingID := uuid.New(), uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "rooms" WHERE "rooms"\."organization_id" = \$1 AND "building_id" = \$2`).
		WithArgs(orgID, buildingID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "rooms" WHERE "rooms"\."organization_id" = \$1 AND "building_id" = \$2 ORDER BY created_at DESC`).
		WithArgs(orgID, buildingID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "building_id", "name"}).
			AddRow(uuid.New(), orgID, buildingID, "101"))

	rooms, count, err := repo.List(ctx, ListOptions{Conditions: map[string]interface{}{"building_id": buildingID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, rooms, 1)
	assert.Equal(t, "101", rooms[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleForUserUnknownInOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRoleRepository(NewScopedDB(db))
	orgID := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)

	mock.ExpectQuery(`SELECT "id","role_id" FROM "users" WHERE "users"\."organization_id" = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id"}))

	_, err := repo.RoleForUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupTokenRedeemLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSetupTokenRepository(NewScopedDB(db), NewUnscopedDB(db))
	orgID := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)
	token := &model.SetupToken{Base: model.Base{ID: uuid.New()}, UserID: uuid.New()}

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "setup_tokens" SET .*WHERE "setup_tokens"\."organization_id" = .*used_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "setup_tokens" WHERE "setup_tokens"\."organization_id" = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "used_at", "expires_at"}).
			AddRow(token.ID, orgID, now.Add(-time.Second), now.Add(time.Hour)))
	mock.ExpectRollback()

	err := repo.Redeem(ctx, token, "hash", now)
	assert.ErrorIs(t, err, domain.ErrTokenUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupTokenRedeemExpiredBeforeUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSetupTokenRepository(NewScopedDB(db), NewUnscopedDB(db))
	orgID := uuid.New()
	ctx := tenant.WithOrganization(context.Background(), orgID)
	token := &model.SetupToken{Base: model.Base{ID: uuid.New()}, UserID: uuid.New()}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "setup_tokens" SET "used_at"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "setup_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "used_at", "expires_at"}).
			AddRow(token.ID, orgID, nil, now.Add(-time.Millisecond)))
	mock.ExpectRollback()

	err := repo.Redeem(ctx, token, "hash", now)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupTokenRedeemSetsPassword(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSetupTokenRepository(NewScopedDB(db), NewUnscopedDB(db))
	ctx := tenant.WithOrganization(context.Background(), uuid.New())
	token := &model.SetupToken{Base: model.Base{ID: uuid.New()}, UserID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "setup_tokens" SET "used_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET .*"password_hash"=.*WHERE "users"\."organization_id" = .*id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Redeem(ctx, token, "hash", time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupTokenFindByHashIsUnscoped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSetupTokenRepository(NewScopedDB(db), NewUnscopedDB(db))

	mock.ExpectQuery(`SELECT \* FROM "setup_tokens" WHERE token_hash = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByHash(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrSetupTokenInvalid)
}
