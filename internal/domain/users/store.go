package users

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrent/internal/database"
	"carrent/internal/infra/dbx"
	"carrent/internal/reputation"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	GetByID(context.Context, int64) (*User, error)
	GetByLogin(context.Context, string) (*User, error)
	Create(ctx context.Context, tx pgx.Tx, user *User) error
	CreateAndInvite(ctx context.Context, user *User, token string, exp time.Duration) error
	Activate(context.Context, string) error
	Delete(context.Context, int64) error
	SetAvatar(ctx context.Context, userID int64, url string) error
	UpdateUsername(ctx context.Context, userID int64, username string) error
	SetVerified(ctx context.Context, userID int64, verified bool) error
	Search(ctx context.Context, query string, excludeID int64, limit int) ([]Summary, error)
	SummariesByIDs(ctx context.Context, ids []int64) (map[int64]Summary, error)

	LockForReputation(ctx context.Context, userID int64) (verified, exists bool, err error)
	SaveReputation(ctx context.Context, userID int64, stats reputation.Stats, rank reputation.Rank) error

	SaveRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldHash, newHash string, expiresAt time.Time) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash, reason string) error
	RevokeAllRefreshTokens(ctx context.Context, userID int64, reason string) (int64, error)
}

type Repository struct {
	db *pgxpool.Pool
	q  dbx.Querier
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, q: db}
}

// WithQuerier returns a repository whose queries run on q, usually a pgx.Tx.
func (r *Repository) WithQuerier(q dbx.Querier) *Repository {
	return &Repository{db: r.db, q: q}
}

const userColumns = `
	id, username, email, name, surname, password, is_confirmed, is_verified,
	rank, review_count, negative_review_count, image_profile_url,
	last_avatar_upload_at, balance_cents, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Name,
		&u.Surname,
		&u.Password.hash,
		&u.IsConfirmed,
		&u.IsVerified,
		&u.Rank,
		&u.ReviewCount,
		&u.NegativeReviewCount,
		&u.ImageProfileURL,
		&u.LastAvatarUploadAt,
		&u.BalanceCents,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// GetByLogin accepts either an email or a username.
func (r *Repository) GetByLogin(ctx context.Context, login string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanUser(r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE (email = $1 OR username = $1) AND is_confirmed = TRUE
		 LIMIT 1`, login))
}

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, user *User) error {
	query := `
	  INSERT INTO users (username, email, name, surname, password)
	  VALUES ($1, $2, $3, $4, $5)
	  RETURNING id, rank, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := tx.QueryRow(
		ctx, query, user.Username, user.Email, user.Name, user.Surname, user.Password.hash,
	).Scan(&user.ID, &user.Rank, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		case database.IsUniqueViolation(err, "users_username_key"):
			return ErrDuplicateUsername
		default:
			return err
		}
	}
	return nil
}

// CreateAndInvite creates the user, grants the default role and stores the
// hashed invitation token in one transaction.
func (r *Repository) CreateAndInvite(ctx context.Context, user *User, token string, invitationExp time.Duration) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		if err := r.Create(ctx, tx, user); err != nil {
			return err
		}

		if err := r.assignDefaultRole(ctx, tx, user.ID); err != nil {
			return err
		}

		return r.createUserInvitation(ctx, tx, token, invitationExp, user.ID)
	})
}

func (r *Repository) assignDefaultRole(ctx context.Context, tx pgx.Tx, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT DO NOTHING
	`, userID, DefaultRole)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("default role %q is missing", DefaultRole)
	}
	return nil
}

func (r *Repository) createUserInvitation(ctx context.Context, tx pgx.Tx, token string, exp time.Duration, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := tx.Exec(ctx, `INSERT INTO user_invitations (token, user_id, expiry) VALUES ($1, $2, $3)`,
		token, userID, time.Now().Add(exp))
	return err
}

// Activate confirms the email of the user owning the plain invitation token.
// Activating twice is not an error.
func (r *Repository) Activate(ctx context.Context, token string) error {
	hash := sha256.Sum256([]byte(token))
	hashToken := hex.EncodeToString(hash[:])

	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		var userID int64
		err := tx.QueryRow(ctx, `
			SELECT u.id FROM users u
			JOIN user_invitations ui ON u.id = ui.user_id
			WHERE ui.token = $1 AND ui.expiry > $2
		`, hashToken, time.Now()).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE users SET is_confirmed = TRUE, updated_at = NOW() WHERE id = $1`, userID)
		return err
	})
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	// invitations, roles and tokens cascade
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetAvatar(ctx context.Context, userID int64, url string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET image_profile_url = $1, last_avatar_upload_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, url, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateUsername(ctx context.Context, userID int64, username string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `UPDATE users SET username = $1, updated_at = NOW() WHERE id = $2`, username, userID)
	if err != nil {
		if database.IsUniqueViolation(err, "users_username_key") {
			return ErrDuplicateUsername
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetVerified(ctx context.Context, userID int64, verified bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `UPDATE users SET is_verified = $1, updated_at = NOW() WHERE id = $2`, verified, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search matches the username, name or surname, case-insensitively.
func (r *Repository) Search(ctx context.Context, query string, excludeID int64, limit int) ([]Summary, error) {
	if limit <= 0 || limit > defaultSearchResultSize {
		limit = defaultSearchResultSize
	}
	pattern := "%" + strings.TrimSpace(query) + "%"

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT id, username, name, surname, image_profile_url, rank, is_verified
		FROM users
		WHERE is_confirmed = TRUE AND id <> $2
		  AND (username ILIKE $1 OR name ILIKE $1 OR surname ILIKE $1)
		ORDER BY username
		LIMIT $3
	`, pattern, excludeID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanSummary)
}

func (r *Repository) SummariesByIDs(ctx context.Context, ids []int64) (map[int64]Summary, error) {
	out := make(map[int64]Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT id, username, name, surname, image_profile_url, rank, is_verified
		FROM users WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	list, err := pgx.CollectRows(rows, scanSummary)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.ID] = s
	}
	return out, nil
}

func scanSummary(row pgx.CollectableRow) (Summary, error) {
	var s Summary
	err := row.Scan(&s.ID, &s.Username, &s.Name, &s.Surname, &s.ImageProfileURL, &s.Rank, &s.IsVerified)
	return s, err
}

// LockForReputation takes a row lock on the user so concurrent ratings of
// the same subject recompute one after another.
func (r *Repository) LockForReputation(ctx context.Context, userID int64) (bool, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var verified bool
	err := r.q.QueryRow(ctx, `SELECT is_verified FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return verified, true, nil
}

func (r *Repository) SaveReputation(ctx context.Context, userID int64, stats reputation.Stats, rank reputation.Rank) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET review_count = $1, negative_review_count = $2, rank = $3, updated_at = NOW()
		WHERE id = $4
	`, stats.Count, stats.Negative, string(rank), userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
