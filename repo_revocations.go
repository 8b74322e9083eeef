package authapi

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenRevocations is the persistent denylist behind token invalidation.
// Rows become garbage once the token's own exp claim passes; PurgeExpired
// reclaims them.
type TokenRevocations interface {
	RevocationStore
	PurgeExpired(ctx context.Context) (int64, error)
}

type tokenRevocations struct {
	db *bun.DB
}

var _ TokenRevocations = (*tokenRevocations)(nil)

func NewTokenRevocationsRepository(db *bun.DB) TokenRevocations {
	return &tokenRevocations{db: db}
}

// Revoke is idempotent, re-revoking a token id keeps the original row.
func (r *tokenRevocations) Revoke(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error {
	now := time.Now()
	record := &TokenRevocation{
		TokenID:   tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		RevokedAt: &now,
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (token_id) DO NOTHING").
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record token revocation")
	}

	return nil
}

func (r *tokenRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*TokenRevocation)(nil)).
		Where("?TableAlias.token_id = ?", tokenID).
		Count(ctx)

	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation")
	}

	return count > 0, nil
}

func (r *tokenRevocations) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*TokenRevocation)(nil)).
		Where("?TableAlias.expires_at < ?", time.Now()).
		Exec(ctx)

	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to purge expired revocations")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return affected, nil
}
