package storage

import (
	"context"

	"carrent/internal/availability"
	"carrent/internal/domain/balance"
	"carrent/internal/domain/bookings"
	"carrent/internal/domain/cars"
	"carrent/internal/domain/rentnotifications"
	"carrent/internal/rental"
	"carrent/internal/reputation"
	"carrent/internal/wallet"

	"github.com/jackc/pgx/v5"
)

// rentalStore maps rental.Store onto the repositories.
type rentalStore struct {
	cars          *cars.Repository
	bookings      *bookings.Repository
	notifications *rentnotifications.Repository
}

func (s rentalStore) GetCar(ctx context.Context, carID int64) (*cars.Car, error) {
	return s.cars.GetByID(ctx, carID)
}

func (s rentalStore) IncrementRentCount(ctx context.Context, carID int64) error {
	return s.cars.IncrementRentCount(ctx, carID)
}

func (s rentalStore) ActiveRanges(ctx context.Context, carID int64, excludeBookingID *int64) ([]availability.Range, error) {
	return s.bookings.ActiveRanges(ctx, carID, excludeBookingID)
}

func (s rentalStore) CreateBooking(ctx context.Context, b *bookings.Booking) error {
	return s.bookings.Create(ctx, b)
}

func (s rentalStore) GetBooking(ctx context.Context, bookingID int64) (*bookings.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s rentalStore) SetDecision(ctx context.Context, bookingID int64, approve bool) error {
	return s.bookings.SetDecision(ctx, bookingID, approve)
}

func (s rentalStore) DeleteBooking(ctx context.Context, bookingID int64) error {
	return s.bookings.Delete(ctx, bookingID)
}

func (s rentalStore) CreateNotification(ctx context.Context, n *rentnotifications.Notification) error {
	return s.notifications.Create(ctx, n)
}

func (s rentalStore) PendingRequests(ctx context.Context, bookingID, ownerID int64) ([]rentnotifications.Notification, error) {
	return s.notifications.PendingRequests(ctx, bookingID, ownerID)
}

func (s rentalStore) ResolveNotification(ctx context.Context, notificationID int64) error {
	return s.notifications.Resolve(ctx, notificationID)
}

type rentalRepository struct {
	rentalStore
	c *Container
}

func (r rentalRepository) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(rental.Store) error) error {
	return r.c.WithTxOptions(ctx, opts, func(tx *Tx) error {
		return fn(rentalStore{cars: tx.Cars, bookings: tx.Bookings, notifications: tx.RentNotifications})
	})
}

// Rental returns the rental service's view of the container.
func (c *Container) Rental() rental.Repository {
	return rentalRepository{
		rentalStore: rentalStore{cars: c.Cars, bookings: c.Bookings, notifications: c.RentNotifications},
		c:           c,
	}
}

// reputationStore maps reputation.Store onto users, bookings and reviews.
type reputationStore struct {
	tx *Tx
}

func (s reputationStore) LockSubject(ctx context.Context, userID int64) (bool, bool, error) {
	return s.tx.Users.LockForReputation(ctx, userID)
}

func (s reputationStore) HasRentedFrom(ctx context.Context, renterID, ownerID int64) (bool, error) {
	return s.tx.Bookings.HasRentedFrom(ctx, renterID, ownerID)
}

func (s reputationStore) UpsertRating(ctx context.Context, subjectID, reviewerID int64, rating float64, comment *string) (bool, error) {
	return s.tx.Reviews.Upsert(ctx, subjectID, reviewerID, rating, comment)
}

func (s reputationStore) Ratings(ctx context.Context, subjectID int64) ([]float64, error) {
	return s.tx.Reviews.Ratings(ctx, subjectID)
}

func (s reputationStore) SaveReputation(ctx context.Context, userID int64, stats reputation.Stats, rank reputation.Rank) error {
	return s.tx.Users.SaveReputation(ctx, userID, stats, rank)
}

type reputationRepository struct {
	reputationStore
	c *Container
}

func (r reputationRepository) WithTx(ctx context.Context, fn func(reputation.Store) error) error {
	return r.c.WithTx(ctx, func(tx *Tx) error {
		return fn(reputationStore{tx: tx})
	})
}

// Reputation returns the reputation engine's view of the container. Outside
// WithTx the row lock taken by LockSubject is released immediately.
func (c *Container) Reputation() reputation.Repository {
	return reputationRepository{
		reputationStore: reputationStore{tx: &Tx{Users: c.Users, Bookings: c.Bookings, Reviews: c.Reviews}},
		c:               c,
	}
}

type walletRepository struct {
	*balance.Repository
	c *Container
}

func (r walletRepository) WithTx(ctx context.Context, fn func(balance.Store) error) error {
	return r.c.WithTx(ctx, func(tx *Tx) error {
		return fn(tx.Balance)
	})
}

// Wallet returns the ledger view used by the wallet service.
func (c *Container) Wallet() wallet.Repository {
	return walletRepository{Repository: c.Balance, c: c}
}
