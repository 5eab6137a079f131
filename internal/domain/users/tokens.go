package users

import (
	"context"
	"errors"
	"time"

	"carrent/internal/database"

	"github.com/jackc/pgx/v5"
)

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.q.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	t := &RefreshToken{}
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, revoked_reason, replaced_by_hash
		FROM refresh_tokens WHERE token_hash = $1
	`, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
		&t.RevokedAt, &t.RevokedReason, &t.ReplacedByHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// RotateRefreshToken revokes oldHash and stores newHash for the same user.
// It fails with ErrInvalidRefreshToken when oldHash is unknown, revoked or
// expired.
func (r *Repository) RotateRefreshToken(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (*RefreshToken, error) {
	var rotated *RefreshToken
	err := database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		var userID int64
		err := tx.QueryRow(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW(), revoked_reason = 'Replaced by new token', replaced_by_hash = $2
			WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
			RETURNING user_id
		`, oldHash, newHash).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		rotated = &RefreshToken{UserID: userID, TokenHash: newHash, ExpiresAt: expiresAt}
		return tx.QueryRow(ctx, `
			INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, userID, newHash, expiresAt).Scan(&rotated.ID, &rotated.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return rotated, nil
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), revoked_reason = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

func (r *Repository) RevokeAllRefreshTokens(ctx context.Context, userID int64, reason string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), revoked_reason = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
