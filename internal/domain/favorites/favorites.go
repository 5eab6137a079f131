package favorites

import (
	"context"
	"errors"
	"time"

	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var (
	ErrCarNotFound       = errors.New("car not found")
	ErrNotFavorite       = errors.New("car is not in favorites")
	QueryTimeoutDuration = time.Second * 5
)

// Favorite is a saved car as shown in the user's list.
type Favorite struct {
	CarID      int64     `json:"car_id"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand"`
	Model      string    `json:"model"`
	Year       int       `json:"year"`
	PriceCents int64     `json:"price_cents"`
	Location   string    `json:"location"`
	ImageURL   string    `json:"image_url"`
	AddedAt    time.Time `json:"added_at"`
}

type Store interface {
	Add(ctx context.Context, userID, carID int64) error
	Remove(ctx context.Context, userID, carID int64) error
	List(ctx context.Context, userID int64) ([]Favorite, error)
	IsFavorite(ctx context.Context, userID, carID int64) (bool, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

// Add is idempotent: adding a car twice leaves one entry.
func (r *Repository) Add(ctx context.Context, userID, carID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cars WHERE id = $1)`, carID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrCarNotFound
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO favorites (user_id, car_id) VALUES ($1, $2)
		ON CONFLICT (user_id, car_id) DO NOTHING
	`, userID, carID)
	return err
}

func (r *Repository) Remove(ctx context.Context, userID, carID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND car_id = $2`, userID, carID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFavorite
	}
	return nil
}

func (r *Repository) List(ctx context.Context, userID int64) ([]Favorite, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.id,
		       CASE WHEN c.name = '' THEN c.brand || ' ' || c.model ELSE c.name END,
		       c.brand, c.model, c.year, c.price_cents, c.location,
		       COALESCE(c.image_urls[1], c.image_url),
		       f.created_at
		FROM favorites f
		JOIN cars c ON c.id = f.car_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Favorite, error) {
		var f Favorite
		err := row.Scan(&f.CarID, &f.Name, &f.Brand, &f.Model, &f.Year, &f.PriceCents, &f.Location, &f.ImageURL, &f.AddedAt)
		return f, err
	})
}

func (r *Repository) IsFavorite(ctx context.Context, userID, carID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND car_id = $2)`,
		userID, carID).Scan(&ok)
	return ok, err
}
