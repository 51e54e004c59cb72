package auth

import (
	"testing"
	"time"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTokenRoundTrip(t *testing.T) {
	tm := NewUserTokenManager("org-secret", 30*24*time.Hour)
	userID, orgID := uuid.New(), uuid.New()

	token, err := tm.Generate(userID, orgID, "staff@school.test", "staff")
	require.NoError(t, err)

	id, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, UserIdentity{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          "staff@school.test",
		Role:           "staff",
	}, id)
	assert.Equal(t, TokenTypeOrgUser, id.Kind())
}

func TestUserTokenRejections(t *testing.T) {
	tm := NewUserTokenManager("org-secret", time.Hour)
	userID, orgID := uuid.New(), uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		other := NewUserTokenManager("another-secret", time.Hour)
		token, err := other.Generate(userID, orgID, "a@b.test", "")
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewUserTokenManager("org-secret", time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Generate(userID, orgID, "a@b.test", "")
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "not.a.jwt", "abc"} {
			_, err := tm.Verify(raw)
			assert.ErrorIs(t, err, domain.ErrInvalidToken, raw)
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := UserClaims{
			Type:             TokenTypeOrgUser,
			UserID:           userID.String(),
			OrganizationID:   orgID.String(),
			RegisteredClaims: tm.registered(userID.String()),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("missing discriminator", func(t *testing.T) {
		claims := UserClaims{
			UserID:           userID.String(),
			OrganizationID:   orgID.String(),
			RegisteredClaims: tm.registered(userID.String()),
		}
		token, err := tm.sign(claims)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("missing organization", func(t *testing.T) {
		claims := UserClaims{
			Type:             TokenTypeOrgUser,
			UserID:           userID.String(),
			RegisteredClaims: tm.registered(userID.String()),
		}
		token, err := tm.sign(claims)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

func TestGenerateRequiresIDs(t *testing.T) {
	_, err := NewUserTokenManager("s", time.Hour).Generate(uuid.Nil, uuid.New(), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewUserTokenManager("s", time.Hour).Generate(uuid.New(), uuid.Nil, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewAdminTokenManager("s", time.Hour).Generate(uuid.Nil, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	tm := NewAdminTokenManager("admin-secret", 24*time.Hour)
	adminID := uuid.New()

	token, err := tm.Generate(adminID, "ops@platform.test", PlatformRoleSupport)
	require.NoError(t, err)

	id, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, adminID, id.AdminID)
	assert.Equal(t, PlatformRoleSupport, id.Role)
	assert.Equal(t, TokenTypePlatformAdmin, id.Kind())
}

func TestCrossDomainTokensRejected(t *testing.T) {
	users := NewUserTokenManager("org-secret", time.Hour)
	admins := NewAdminTokenManager("admin-secret", time.Hour)

	adminToken, err := admins.Generate(uuid.New(), "ops@platform.test", PlatformRoleSuperAdmin)
	require.NoError(t, err)
	userToken, err := users.Generate(uuid.New(), uuid.New(), "t@school.test", "admin")
	require.NoError(t, err)

	_, err = users.Verify(adminToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "admin token accepted by org verifier")

	_, err = admins.Verify(userToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "user token accepted by admin verifier")
}

func TestCrossDomainRejectedEvenWithSharedSecret(t *testing.T) {
	users := NewUserTokenManager("shared", time.Hour)
	admins := NewAdminTokenManager("shared", time.Hour)

	adminToken, err := admins.Generate(uuid.New(), "ops@platform.test", PlatformRoleSuperAdmin)
	require.NoError(t, err)
	_, err = users.Verify(adminToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	// Forge an admin-audience token that claims the user discriminator.
	forged := UserClaims{
		Type:             TokenTypeOrgUser,
		UserID:           uuid.NewString(),
		OrganizationID:   uuid.NewString(),
		RegisteredClaims: admins.registered(uuid.NewString()),
	}
	token, err := admins.sign(forged)
	require.NoError(t, err)
	_, err = users.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = admins.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
