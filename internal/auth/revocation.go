package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevocationStore records refresh-token ids that may no longer be exchanged.
// Revoke reports false when the id was already present, so concurrent uses of the
// same refresh token have a single winner.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

type RevocationRepository struct {
	db *sql.DB
}

func NewRevocationRepository(db *sql.DB) *RevocationRepository {
	return &RevocationRepository{db: db}
}

func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_revoked_refresh_tokens (token_id, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO NOTHING
	`, tokenID, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token rows affected: %w", err)
	}

	return affected == 1, nil
}

// DeleteExpired removes up to batchSize revocation rows whose token has expired on its
// own; such tokens fail signature-time checks and no longer need an entry.
func (r *RevocationRepository) DeleteExpired(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT token_id
			FROM auth_revoked_refresh_tokens
			WHERE expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
		)
		DELETE FROM auth_revoked_refresh_tokens t
		USING stale
		WHERE t.token_id = stale.token_id
	`, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired revocations: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired revocations rows affected: %w", err)
	}

	return affected, nil
}
