// internal/service/setup_token.go
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dangerclosesec/campusops/internal/audit"
	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/email"
	"github.com/dangerclosesec/campusops/internal/email/mailer"
	"github.com/dangerclosesec/campusops/internal/metrics"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/tenant"
	"github.com/google/uuid"
)

// SetupTokenStatus is the only information a validation reveals.
type SetupTokenStatus string

const (
	SetupTokenValid   SetupTokenStatus = "valid"
	SetupTokenInvalid SetupTokenStatus = "INVALID_TOKEN"
	SetupTokenUsed    SetupTokenStatus = "TOKEN_USED"
	SetupTokenExpired SetupTokenStatus = "TOKEN_EXPIRED"
)

const setupTokenBytes = 32

// IssuedSetupToken is returned once; only the hash is stored.
type IssuedSetupToken struct {
	Token     string    `json:"-"`
	Link      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SetupTokenService struct {
	repo    repository.SetupTokenRepositoryIface
	users   repository.UserRepositoryIface
	orgs    repository.OrganizationRepositoryIface
	hasher  *auth.PasswordHasher
	mailer  email.Sender
	metrics *metrics.Metrics
	audit   audit.Logger
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewSetupTokenService(
	repo repository.SetupTokenRepositoryIface,
	users repository.UserRepositoryIface,
	orgs repository.OrganizationRepositoryIface,
	hasher *auth.PasswordHasher,
	mailer email.Sender,
	metrics *metrics.Metrics,
	auditLogger audit.Logger,
	ttl time.Duration,
	baseURL string,
) *SetupTokenService {
	return &SetupTokenService{
		repo:    repo,
		users:   users,
		orgs:    orgs,
		hasher:  hasher,
		mailer:  mailer,
		metrics: metrics,
		audit:   auditLogger,
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func hashSetupToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue creates a token for a user of the active organization and emails the
// link when a mailer is configured.
func (s *SetupTokenService) Issue(ctx context.Context, userID uuid.UUID, purpose model.SetupPurpose) (*IssuedSetupToken, error) {
	if purpose != model.PurposePasswordSetup && purpose != model.PurposePasswordReset {
		return nil, fmt.Errorf("%w: unknown purpose %q", domain.ErrInvalidInput, purpose)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, setupTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating setup token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)

	token := &model.SetupToken{
		UserID:    user.ID,
		TokenHash: hashSetupToken(raw),
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, err
	}

	issued := &IssuedSetupToken{
		Token:     raw,
		Link:      s.baseURL + "/setup-password?token=" + url.QueryEscape(raw),
		ExpiresAt: token.ExpiresAt,
	}

	if s.mailer != nil {
		if err := s.send(ctx, user, purpose, issued); err != nil {
			return nil, err
		}
	}

	s.metrics.SetupToken("issue", string(purpose))
	recordMutation(ctx, s.audit, model.ActionSetupIssued, "users", user.ID, map[string]interface{}{
		"purpose":    purpose,
		"expires_at": token.ExpiresAt,
	})
	return issued, nil
}

func (s *SetupTokenService) send(ctx context.Context, user *model.User, purpose model.SetupPurpose, issued *IssuedSetupToken) error {
	data := mailer.SetupLinkTemplateData{
		FirstName: user.FirstName,
		Link:      issued.Link,
		ExpiresAt: issued.ExpiresAt,
	}
	if org, err := s.orgs.FindByID(ctx, user.OrganizationID); err == nil {
		data.OrganizationName = org.Name
	}

	var err error
	if purpose == model.PurposePasswordReset {
		err = mailer.SendPasswordResetEmail(s.mailer, user.Email, data)
	} else {
		err = mailer.SendSetupLinkEmail(s.mailer, user.Email, data)
	}
	if err != nil {
		return fmt.Errorf("sending setup link: %w", err)
	}
	return nil
}

// lookup resolves a raw token to its record and current status. Store
// failures are returned as errors, never as a status.
func (s *SetupTokenService) lookup(ctx context.Context, raw string) (*model.SetupToken, SetupTokenStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, SetupTokenInvalid, nil
	}
	token, err := s.repo.FindByHash(ctx, hashSetupToken(raw))
	if err != nil {
		if errors.Is(err, domain.ErrSetupTokenInvalid) {
			return nil, SetupTokenInvalid, nil
		}
		return nil, "", err
	}
	switch token.State(s.now()) {
	case model.SetupTokenUsed:
		return token, SetupTokenUsed, nil
	case model.SetupTokenExpired:
		return token, SetupTokenExpired, nil
	default:
		return token, SetupTokenValid, nil
	}
}

// Validate reports the token's status without consuming it.
func (s *SetupTokenService) Validate(ctx context.Context, raw string) (SetupTokenStatus, error) {
	_, status, err := s.lookup(ctx, raw)
	if err != nil {
		return "", err
	}
	s.metrics.SetupToken("validate", string(status))
	return status, nil
}

// Redeem consumes a valid token and sets the owner's password. A token that
// is used or expired is rejected on every attempt.
func (s *SetupTokenService) Redeem(ctx context.Context, raw, password string) error {
	token, status, err := s.lookup(ctx, raw)
	if err != nil {
		return err
	}
	s.metrics.SetupToken("redeem", string(status))

	switch status {
	case SetupTokenInvalid:
		return domain.ErrSetupTokenInvalid
	case SetupTokenUsed:
		return domain.ErrTokenUsed
	case SetupTokenExpired:
		return domain.ErrTokenExpired
	}

	if err := auth.CheckPasswordStrength(password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// The token names its organization; everything from here on is scoped.
	return tenant.Run(ctx, token.OrganizationID, func(ctx context.Context) error {
		if err := s.repo.Redeem(ctx, token, hash, s.now()); err != nil {
			if errors.Is(err, domain.ErrTokenUsed) {
				slog.WarnContext(ctx, "Setup token redeemed concurrently", "tokenID", token.ID)
			}
			return err
		}
		recordMutation(ctx, s.audit, model.ActionSetupRedeemed, "users", token.UserID, map[string]interface{}{
			"purpose": token.Purpose,
		})
		return nil
	})
}
