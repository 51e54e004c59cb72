package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdentityVariantsDoNotCross(t *testing.T) {
	user := UserIdentity{UserID: uuid.New(), OrganizationID: uuid.New()}
	admin := AdminIdentity{AdminID: uuid.New(), Role: PlatformRoleSupport}

	userCtx := ContextWithIdentity(context.Background(), user)
	adminCtx := ContextWithIdentity(context.Background(), admin)

	got, ok := UserFromContext(userCtx)
	assert.True(t, ok)
	assert.Equal(t, user, got)
	_, ok = AdminFromContext(userCtx)
	assert.False(t, ok)

	gotAdmin, ok := AdminFromContext(adminCtx)
	assert.True(t, ok)
	assert.Equal(t, admin, gotAdmin)
	_, ok = UserFromContext(adminCtx)
	assert.False(t, ok)

	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestAdminCan(t *testing.T) {
	assert.True(t, AdminCan(PlatformRoleSuperAdmin, PlatformPermOrganizationsManage))
	assert.True(t, AdminCan(PlatformRoleSupport, PlatformPermOrganizationsRead))
	assert.False(t, AdminCan(PlatformRoleSupport, PlatformPermOrganizationsManage))
	assert.False(t, AdminCan("unknown", PlatformPermOrganizationsRead))
	assert.True(t, IsPlatformRole(PlatformRoleBilling))
	assert.False(t, IsPlatformRole("member"))
}
