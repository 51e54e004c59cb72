// internal/repository/setup_token.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/dangerclosesec/campusops/internal/model"
	"github.com/google/uuid"
)

type SetupTokenRepositoryIface interface {
	Create(ctx context.Context, token *model.SetupToken) error
	FindByHash(ctx context.Context, hash string) (*model.SetupToken, error)
	Redeem(ctx context.Context, token *model.SetupToken, passwordHash string, now time.Time) error
}

type SetupTokenRepository struct {
	scoped   *ScopedDB
	unscoped *UnscopedDB
}

func NewSetupTokenRepository(scoped *ScopedDB, unscoped *UnscopedDB) *SetupTokenRepository {
	return &SetupTokenRepository{scoped: scoped, unscoped: unscoped}
}

// Create stores a token for a user of the active organization.
func (r *SetupTokenRepository) Create(ctx context.Context, token *model.SetupToken) error {
	if err := r.scoped.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to create setup token: %w", err)
	}
	return nil
}

// FindByHash is unscoped: the token itself is what identifies the
// organization.
func (r *SetupTokenRepository) FindByHash(ctx context.Context, hash string) (*model.SetupToken, error) {
	var token model.SetupToken
	if err := r.unscoped.DB(ctx).First(&token, "token_hash = ?", hash).Error; err != nil {
		if err = translateError(err, domain.ErrSetupTokenInvalid); err == domain.ErrSetupTokenInvalid {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find setup token: %w", err)
	}
	return &token, nil
}

// Redeem marks the token used and sets the owner's password in one
// transaction. The used_at guard makes concurrent redemptions race on the
// UPDATE: only one affects a row, the rest get domain.ErrTokenUsed, or
// domain.ErrTokenExpired when the token ran out first. Must run scoped to the
// token's organization.
func (r *SetupTokenRepository) Redeem(ctx context.Context, token *model.SetupToken, passwordHash string, now time.Time) error {
	return r.scoped.Transaction(ctx, func(tx *ScopedDB) error {
		q, err := tx.Query(ctx)
		if err != nil {
			return err
		}
		result := q.Model(&model.SetupToken{}).
			Where("id = ? AND used_at IS NULL AND expires_at > ?", token.ID, now).
			Update("used_at", now)
		if result.Error != nil {
			return translateError(result.Error, nil)
		}
		if result.RowsAffected == 0 {
			return terminalState(ctx, tx, token.ID, now)
		}

		err = tx.UpdateColumns(ctx, &model.User{}, token.UserID, map[string]interface{}{
			"password_hash": passwordHash,
			"status":        model.StatusActive,
		})
		if domain.IsNotFound(err) {
			return domain.ErrUserNotFound
		}
		return err
	})
}

// terminalState re-reads a token the conditional UPDATE did not match and
// reports why.
func terminalState(ctx context.Context, tx *ScopedDB, id uuid.UUID, now time.Time) error {
	var current model.SetupToken
	if err := tx.First(ctx, &current, "id = ?", id); err != nil {
		if domain.IsNotFound(err) {
			return domain.ErrSetupTokenInvalid
		}
		return err
	}
	if current.State(now) == model.SetupTokenExpired {
		return domain.ErrTokenExpired
	}
	return domain.ErrTokenUsed
}

// Purge removes tokens that expired before cutoff. Used by the operator CLI.
func (r *SetupTokenRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.unscoped.DB(ctx).Where("expires_at < ?", cutoff).Delete(&model.SetupToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge setup tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

