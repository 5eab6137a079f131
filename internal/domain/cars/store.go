package cars

import (
	"context"
	"errors"
	"fmt"

	"carrent/internal/infra/dbx"
	"carrent/internal/params"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, car *Car) error
	GetByID(ctx context.Context, id int64) (*Car, error)
	Update(ctx context.Context, car *Car) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter, p params.Pagination) ([]Car, int, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Car, error)
	Top(ctx context.Context, limit int) ([]Car, error)
	IncrementRentCount(ctx context.Context, id int64) error
	AddImages(ctx context.Context, id int64, urls []string) error
	RemoveImage(ctx context.Context, id int64, url string) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const carColumns = `c.id, c.owner_id, c.name, c.brand, c.model, c.category, c.year,
	c.price_cents, c.description, c.location, c.image_url, c.image_urls,
	c.rent_count, c.created_at, c.updated_at`

func scanCar(row pgx.CollectableRow) (Car, error) {
	var c Car
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Brand, &c.Model, &c.Category, &c.Year,
		&c.PriceCents, &c.Description, &c.Location, &c.ImageURL, &c.ImageURLs,
		&c.RentCount, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *Repository) Create(ctx context.Context, car *Car) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if car.ImageURLs == nil {
		car.ImageURLs = []string{}
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO cars (owner_id, name, brand, model, category, year, price_cents,
		                  description, location, image_url, image_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, rent_count, created_at, updated_at
	`, car.OwnerID, car.Name, car.Brand, car.Model, car.Category, car.Year, car.PriceCents,
		car.Description, car.Location, car.ImageURL, car.ImageURLs,
	).Scan(&car.ID, &car.RentCount, &car.CreatedAt, &car.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Car, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+carColumns+` FROM cars c WHERE c.id = $1`, id)
	if err != nil {
		return nil, err
	}
	car, err := pgx.CollectExactlyOneRow(rows, scanCar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &car, nil
}

func (r *Repository) Update(ctx context.Context, car *Car) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		UPDATE cars
		SET name = $1, brand = $2, model = $3, category = $4, year = $5, price_cents = $6,
		    description = $7, location = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`, car.Name, car.Brand, car.Model, car.Category, car.Year, car.PriceCents,
		car.Description, car.Location, car.ID,
	).Scan(&car.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete refuses to remove a car that still has an active booking which has
// not ended yet.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var blocked bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE car_id = $1 AND active AND end_date >= CURRENT_DATE
		)
	`, id).Scan(&blocked)
	if err != nil {
		return err
	}
	if blocked {
		return ErrHasActiveBookings
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f Filter, p params.Pagination) ([]Car, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	where, args := f.where()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cars c WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cars: %w", err)
	}

	args = append(args, p.Limit, p.Offset)
	query := fmt.Sprintf(`SELECT %s FROM cars c WHERE %s ORDER BY c.created_at DESC, c.id DESC LIMIT $%d OFFSET $%d`,
		carColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cars: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanCar)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]Car, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+carColumns+` FROM cars c WHERE c.owner_id = $1 ORDER BY c.created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCar)
}

func (r *Repository) Top(ctx context.Context, limit int) ([]Car, error) {
	if limit <= 0 {
		limit = TopLimit
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+carColumns+` FROM cars c ORDER BY c.rent_count DESC, c.id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCar)
}

func (r *Repository) IncrementRentCount(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE cars SET rent_count = rent_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddImages appends urls to the gallery and sets the cover image when the
// car has none.
func (r *Repository) AddImages(ctx context.Context, id int64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cars
		SET image_urls = image_urls || $2::text[],
		    image_url = CASE WHEN image_url = '' THEN ($2::text[])[1] ELSE image_url END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, urls)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) RemoveImage(ctx context.Context, id int64, url string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cars
		SET image_urls = array_remove(image_urls, $2),
		    image_url = CASE
		        WHEN image_url = $2 THEN COALESCE((array_remove(image_urls, $2))[1], '')
		        ELSE image_url END,
		    updated_at = NOW()
		WHERE id = $1 AND ($2 = ANY(image_urls) OR image_url = $2)
	`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cars WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
