package bookings

import (
	"context"
	"errors"
	"time"

	"carrent/internal/availability"
	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	ActiveRanges(ctx context.Context, carID int64, excludeBookingID *int64) ([]availability.Range, error)
	ListByRenter(ctx context.Context, renterID int64) ([]Booking, error)
	ListByCar(ctx context.Context, carID int64) ([]Booking, error)
	ListInRange(ctx context.Context, userID int64, start, end time.Time) ([]Booking, error)
	PendingForOwner(ctx context.Context, ownerID int64) ([]PendingRequest, error)
	SetDecision(ctx context.Context, id int64, approve bool) error
	Delete(ctx context.Context, id int64) error
	HasRentedFrom(ctx context.Context, renterID, ownerID int64) (bool, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const bookingColumns = `b.id, b.car_id, c.name, c.brand, c.owner_id, b.renter_id,
	b.start_date, b.end_date, b.total_price_cents, b.active, b.agreed, b.locations,
	b.created_at, b.updated_at`

const bookingFrom = ` FROM bookings b JOIN cars c ON c.id = b.car_id `

func scanBooking(row pgx.CollectableRow) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.CarID, &b.CarName, &b.CarBrand, &b.OwnerID, &b.RenterID,
		&b.StartDate, &b.EndDate, &b.TotalPriceCents, &b.Active, &b.Agreed, &b.Locations,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *Repository) Create(ctx context.Context, b *Booking) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if b.Locations == nil {
		b.Locations = []string{}
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO bookings (car_id, renter_id, start_date, end_date, total_price_cents, active, agreed, locations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, b.CarID, b.RenterID, b.StartDate, b.EndDate, b.TotalPriceCents, b.Active, b.Agreed, b.Locations,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+bookingFrom+`WHERE b.id = $1`, id)
	if err != nil {
		return nil, err
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBooking)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ActiveRanges returns the date ranges of every active booking of carID.
func (r *Repository) ActiveRanges(ctx context.Context, carID int64, excludeBookingID *int64) ([]availability.Range, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT start_date, end_date FROM bookings
		WHERE car_id = $1 AND active AND ($2::bigint IS NULL OR id <> $2)
	`, carID, excludeBookingID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (availability.Range, error) {
		var rg availability.Range
		err := row.Scan(&rg.Start, &rg.End)
		return rg, err
	})
}

func (r *Repository) list(ctx context.Context, where string, args ...any) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+bookingFrom+where, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanBooking)
}

func (r *Repository) ListByRenter(ctx context.Context, renterID int64) ([]Booking, error) {
	return r.list(ctx, `WHERE b.renter_id = $1 ORDER BY b.start_date DESC`, renterID)
}

func (r *Repository) ListByCar(ctx context.Context, carID int64) ([]Booking, error) {
	return r.list(ctx, `WHERE b.car_id = $1 ORDER BY b.start_date`, carID)
}

// ListInRange returns bookings fully inside [start, end] in which userID is
// the renter or the owner.
func (r *Repository) ListInRange(ctx context.Context, userID int64, start, end time.Time) ([]Booking, error) {
	return r.list(ctx, `
		WHERE b.start_date >= $1 AND b.end_date <= $2
		  AND (b.renter_id = $3 OR c.owner_id = $3)
		ORDER BY b.start_date`, start, end, userID)
}

func (r *Repository) PendingForOwner(ctx context.Context, ownerID int64) ([]PendingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`, u.username, u.image_profile_url, u.rank`+bookingFrom+`
		JOIN users u ON u.id = b.renter_id
		WHERE c.owner_id = $1 AND b.active AND NOT b.agreed
		ORDER BY b.start_date DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PendingRequest, error) {
		var p PendingRequest
		b := &p.Booking
		err := row.Scan(
			&b.ID, &b.CarID, &b.CarName, &b.CarBrand, &b.OwnerID, &b.RenterID,
			&b.StartDate, &b.EndDate, &b.TotalPriceCents, &b.Active, &b.Agreed, &b.Locations,
			&b.CreatedAt, &b.UpdatedAt,
			&p.RenterUsername, &p.RenterImageURL, &p.RenterRank,
		)
		return p, err
	})
}

// SetDecision sets both agreed and active to approve.
func (r *Repository) SetDecision(ctx context.Context, id int64, approve bool) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE bookings SET agreed = $2, active = $2, updated_at = NOW() WHERE id = $1
	`, id, approve)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasRentedFrom reports whether renterID has any booking on a car owned by
// ownerID.
func (r *Repository) HasRentedFrom(ctx context.Context, renterID, ownerID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings b JOIN cars c ON c.id = b.car_id
			WHERE b.renter_id = $1 AND c.owner_id = $2
		)
	`, renterID, ownerID).Scan(&ok)
	return ok, err
}
