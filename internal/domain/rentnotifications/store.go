package rentnotifications

import (
	"context"
	"errors"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id, userID int64) error
	PendingRequests(ctx context.Context, bookingID, ownerID int64) ([]Notification, error)
	Resolve(ctx context.Context, id int64) error
	Undelivered(ctx context.Context, limit int) ([]Notification, error)
	MarkDelivered(ctx context.Context, id int64) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const columns = `id, booking_id, car_id, renter_id, owner_id, recipient_id, type, message,
	is_read, resolved, created_at, read_at, delivered_at`

func scanNotification(row pgx.CollectableRow) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.BookingID, &n.CarID, &n.RenterID, &n.OwnerID, &n.RecipientID, &n.Type,
		&n.Message, &n.IsRead, &n.Resolved, &n.CreatedAt, &n.ReadAt, &n.DeliveredAt)
	return n, err
}

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return r.db.QueryRow(ctx, `
		INSERT INTO rent_notifications (booking_id, car_id, renter_id, owner_id, recipient_id, type, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_read, resolved, created_at
	`, n.BookingID, n.CarID, n.RenterID, n.OwnerID, n.RecipientID, string(n.Type), n.Message,
	).Scan(&n.ID, &n.IsRead, &n.Resolved, &n.CreatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM rent_notifications WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+columns+` FROM rent_notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNotification)
}

func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rent_notifications WHERE recipient_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

func (r *Repository) MarkRead(ctx context.Context, id, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE rent_notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND recipient_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE rent_notifications SET is_read = TRUE, read_at = NOW()
		WHERE recipient_id = $1 AND NOT is_read
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Delete(ctx context.Context, id, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM rent_notifications WHERE id = $1 AND recipient_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingRequests returns the unresolved request notifications of a booking
// addressed to ownerID. Rows are locked until the transaction ends.
func (r *Repository) PendingRequests(ctx context.Context, bookingID, ownerID int64) ([]Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+columns+` FROM rent_notifications
		WHERE booking_id = $1 AND owner_id = $2 AND type = $3 AND NOT resolved
		FOR UPDATE
	`, bookingID, ownerID, string(TypeRentRequest))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNotification)
}

// Resolve marks a request as answered and read.
func (r *Repository) Resolve(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE rent_notifications
		SET resolved = TRUE, is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Undelivered(ctx context.Context, limit int) ([]Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+columns+` FROM rent_notifications
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNotification)
}

func (r *Repository) MarkDelivered(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE rent_notifications SET delivered_at = NOW() WHERE id = $1`, id)
	return err
}
