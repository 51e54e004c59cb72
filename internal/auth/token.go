// internal/auth/token.go
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates the two signing domains. It is embedded in every
// token and checked on verification.
type TokenType string

const (
	TokenTypeOrgUser       TokenType = "org_user"
	TokenTypePlatformAdmin TokenType = "platform_admin"
)

const (
	issuer           = "campusops"
	orgAudience      = "campusops:org"
	platformAudience = "campusops:platform"
)

// UserClaims are the claims of an organization user token.
type UserClaims struct {
	Type           TokenType `json:"token_type"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AdminClaims are the claims of a platform admin token. They carry no
// organization.
type AdminClaims struct {
	Type    TokenType `json:"token_type"`
	AdminID string    `json:"admin_id"`
	Email   string    `json:"email"`
	Role    string    `json:"role"`
	jwt.RegisteredClaims
}

// signer holds one signing domain: its secret, lifetime and audience.
type signer struct {
	secret       []byte
	expiryPeriod time.Duration
	audience     string
	now          func() time.Time
}

func (s *signer) registered(subject string) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiryPeriod)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
}

func (s *signer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *signer) parse(tokenString string, claims jwt.Claims) error {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return domain.ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid {
		return domain.ErrInvalidToken
	}
	return nil
}

// UserTokenManager issues and verifies organization user tokens.
type UserTokenManager struct {
	signer
}

func NewUserTokenManager(secret string, expiryPeriod time.Duration) *UserTokenManager {
	return &UserTokenManager{signer{
		secret:       []byte(secret),
		expiryPeriod: expiryPeriod,
		audience:     orgAudience,
		now:          time.Now,
	}}
}

func (tm *UserTokenManager) Generate(userID, organizationID uuid.UUID, email, role string) (string, error) {
	if userID == uuid.Nil || organizationID == uuid.Nil {
		return "", fmt.Errorf("%w: user and organization are required", domain.ErrInvalidInput)
	}
	claims := UserClaims{
		Type:             TokenTypeOrgUser,
		UserID:           userID.String(),
		OrganizationID:   organizationID.String(),
		Email:            email,
		Role:             role,
		RegisteredClaims: tm.registered(userID.String()),
	}
	return tm.sign(claims)
}

// Verify checks the signature, lifetime and discriminator and returns the
// caller identity carried by the token.
func (tm *UserTokenManager) Verify(tokenString string) (UserIdentity, error) {
	var claims UserClaims
	if err := tm.parse(tokenString, &claims); err != nil {
		return UserIdentity{}, err
	}
	if claims.Type != TokenTypeOrgUser {
		return UserIdentity{}, fmt.Errorf("%w: unexpected token type %q", domain.ErrInvalidToken, claims.Type)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return UserIdentity{}, fmt.Errorf("%w: bad user id", domain.ErrInvalidToken)
	}
	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil || orgID == uuid.Nil {
		return UserIdentity{}, fmt.Errorf("%w: bad organization id", domain.ErrInvalidToken)
	}

	return UserIdentity{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          claims.Email,
		Role:           claims.Role,
	}, nil
}

// AdminTokenManager issues and verifies platform admin tokens.
type AdminTokenManager struct {
	signer
}

func NewAdminTokenManager(secret string, expiryPeriod time.Duration) *AdminTokenManager {
	return &AdminTokenManager{signer{
		secret:       []byte(secret),
		expiryPeriod: expiryPeriod,
		audience:     platformAudience,
		now:          time.Now,
	}}
}

func (tm *AdminTokenManager) Generate(adminID uuid.UUID, email, role string) (string, error) {
	if adminID == uuid.Nil {
		return "", fmt.Errorf("%w: admin id is required", domain.ErrInvalidInput)
	}
	claims := AdminClaims{
		Type:             TokenTypePlatformAdmin,
		AdminID:          adminID.String(),
		Email:            email,
		Role:             role,
		RegisteredClaims: tm.registered(adminID.String()),
	}
	return tm.sign(claims)
}

func (tm *AdminTokenManager) Verify(tokenString string) (AdminIdentity, error) {
	var claims AdminClaims
	if err := tm.parse(tokenString, &claims); err != nil {
		return AdminIdentity{}, err
	}
	if claims.Type != TokenTypePlatformAdmin {
		return AdminIdentity{}, fmt.Errorf("%w: unexpected token type %q", domain.ErrInvalidToken, claims.Type)
	}

	adminID, err := uuid.Parse(claims.AdminID)
	if err != nil || adminID == uuid.Nil {
		return AdminIdentity{}, fmt.Errorf("%w: bad admin id", domain.ErrInvalidToken)
	}

	return AdminIdentity{
		AdminID: adminID,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}
