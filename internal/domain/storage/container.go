package storage

import (
	"context"
	"errors"

	"carrent/internal/database"
	"carrent/internal/domain/accesscontrol"
	"carrent/internal/domain/balance"
	"carrent/internal/domain/bookings"
	"carrent/internal/domain/cars"
	"carrent/internal/domain/chat"
	"carrent/internal/domain/favorites"
	"carrent/internal/domain/pushtokens"
	"carrent/internal/domain/rentnotifications"
	"carrent/internal/domain/reviews"
	"carrent/internal/domain/users"
	"carrent/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errNoPool = errors.New("storage container has no pool")

// Container groups the repositories. All of them run on the pool except
// inside WithTx, where a fresh set is bound to the transaction.
type Container struct {
	pool              *pgxpool.Pool
	Users             *users.Repository
	AccessControl     *accesscontrol.Repository
	Cars              *cars.Repository
	Bookings          *bookings.Repository
	Reviews           *reviews.Repository
	Favorites         *favorites.Repository
	RentNotifications *rentnotifications.Repository
	Balance           *balance.Repository
	Chat              *chat.Repository
	PushTokens        *pushtokens.Repository
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:              db,
		Users:             users.NewRepository(db),
		AccessControl:     accesscontrol.NewRepository(db),
		Cars:              cars.NewRepository(db),
		Bookings:          bookings.NewRepository(db),
		Reviews:           reviews.NewRepository(db),
		Favorites:         favorites.NewRepository(db),
		RentNotifications: rentnotifications.NewRepository(db),
		Balance:           balance.NewRepository(db),
		Chat:              chat.NewRepository(db),
		PushTokens:        pushtokens.NewRepository(db),
	}
}

// Tx is a transaction-scoped set of repositories.
type Tx struct {
	Users             *users.Repository
	AccessControl     *accesscontrol.Repository
	Cars              *cars.Repository
	Bookings          *bookings.Repository
	Reviews           *reviews.Repository
	RentNotifications *rentnotifications.Repository
	Balance           *balance.Repository
}

func (c *Container) bind(q dbx.Querier) *Tx {
	return &Tx{
		Users:             c.Users.WithQuerier(q),
		AccessControl:     accesscontrol.NewRepository(q),
		Cars:              cars.NewRepository(q),
		Bookings:          bookings.NewRepository(q),
		Reviews:           reviews.NewRepository(q),
		RentNotifications: rentnotifications.NewRepository(q),
		Balance:           balance.NewRepository(q),
	}
}

// WithTx runs fn atomically at the default isolation level.
func (c *Container) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return c.WithTxOptions(ctx, pgx.TxOptions{}, fn)
}

func (c *Container) WithTxOptions(ctx context.Context, opts pgx.TxOptions, fn func(tx *Tx) error) error {
	if c.pool == nil {
		return errNoPool
	}
	return database.WithTxOptions(c.pool, ctx, opts, func(tx pgx.Tx) error {
		return fn(c.bind(tx))
	})
}

// VerifyUser sets the verified flag and grants the verified role together.
func (c *Container) VerifyUser(ctx context.Context, userID int64) error {
	return c.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Users.SetVerified(ctx, userID, true); err != nil {
			return err
		}
		return tx.AccessControl.AssignRoleByName(ctx, userID, accesscontrol.RoleUserVerified)
	})
}
