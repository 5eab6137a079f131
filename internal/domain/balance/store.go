package balance

import (
	"context"
	"errors"
	"fmt"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Get(ctx context.Context, userID int64) (int64, error)
	Lock(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID, cents int64) error
	InsertTransaction(ctx context.Context, t *Transaction) error
	History(ctx context.Context, userID int64, limit, offset int) ([]Transaction, int, error)
}

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func (r *Repository) Get(ctx context.Context, userID int64) (int64, error) {
	return r.balance(ctx, `SELECT balance_cents FROM users WHERE id = $1`, userID)
}

// Lock reads the balance with a row lock held until the transaction ends.
func (r *Repository) Lock(ctx context.Context, userID int64) (int64, error) {
	return r.balance(ctx, `SELECT balance_cents FROM users WHERE id = $1 FOR UPDATE`, userID)
}

func (r *Repository) balance(ctx context.Context, query string, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var cents int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&cents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return cents, nil
}

func (r *Repository) Set(ctx context.Context, userID, cents int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `UPDATE users SET balance_cents = $1, updated_at = NOW() WHERE id = $2`, cents, userID)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.q.QueryRow(ctx, `
		INSERT INTO balance_transactions (id, user_id, amount_cents, type, description, payment_method, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.UserID, t.AmountCents, int16(t.Type), t.Description, t.PaymentMethod, t.Reference).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.TypeName = t.Type.String()
	return nil
}

func (r *Repository) History(ctx context.Context, userID int64, limit, offset int) ([]Transaction, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM balance_transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, amount_cents, type, description, payment_method, reference, created_at
		FROM balance_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var t Transaction
		err := row.Scan(&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Description, &t.PaymentMethod, &t.Reference, &t.CreatedAt)
		t.TypeName = t.Type.String()
		return t, err
	})
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
