// Package rental creates bookings and carries out the owner's decision on
// them. Notification rows are written in the same transaction as the state
// change and delivered after commit.
package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carrent/internal/availability"
	"carrent/internal/database"
	"carrent/internal/domain/bookings"
	"carrent/internal/domain/cars"
	"carrent/internal/domain/rentnotifications"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	ErrInvalidRange     = errors.New("end date is before start date")
	ErrCarNotFound      = errors.New("car not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrNoPendingRequest = errors.New("booking has no pending request")
	ErrCarUnavailable   = errors.New("car is not available for the selected dates")
	ErrOwnBooking       = errors.New("cannot book your own car")
	ErrForbidden        = errors.New("booking belongs to another user")
)

// Store is everything the service reads and writes. Inside WithTx every call
// runs on the same transaction.
type Store interface {
	GetCar(ctx context.Context, carID int64) (*cars.Car, error)
	IncrementRentCount(ctx context.Context, carID int64) error

	ActiveRanges(ctx context.Context, carID int64, excludeBookingID *int64) ([]availability.Range, error)
	CreateBooking(ctx context.Context, b *bookings.Booking) error
	GetBooking(ctx context.Context, bookingID int64) (*bookings.Booking, error)
	SetDecision(ctx context.Context, bookingID int64, approve bool) error
	DeleteBooking(ctx context.Context, bookingID int64) error

	CreateNotification(ctx context.Context, n *rentnotifications.Notification) error
	PendingRequests(ctx context.Context, bookingID, ownerID int64) ([]rentnotifications.Notification, error)
	ResolveNotification(ctx context.Context, notificationID int64) error
}

type Repository interface {
	Store
	WithTx(ctx context.Context, opts pgx.TxOptions, fn func(Store) error) error
}

// Notifier delivers committed notifications.
type Notifier interface {
	Deliver(ctx context.Context, n *rentnotifications.Notification) error
	PushUnreadCount(ctx context.Context, userID int64) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	refs     *References
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, refs *References, logger *zap.SugaredLogger) *Service {
	return &Service{repo: repo, notifier: notifier, refs: refs, logger: logger, now: time.Now}
}

// IsCarAvailable reports whether no active booking of carID shares a day
// with [start, end].
func (s *Service) IsCarAvailable(ctx context.Context, carID int64, start, end time.Time, excludeBookingID *int64) (bool, error) {
	return availability.NewChecker(s.repo).IsAvailable(ctx, carID, start, end, excludeBookingID)
}

type BookingRequest struct {
	RenterID  int64
	CarID     int64
	StartDate time.Time
	EndDate   time.Time
	Locations []string
}

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

// CreateBooking reserves a car for the renter. The availability check and
// the insert share a serializable transaction; a serialization failure is
// retried once before the car is reported unavailable.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (*bookings.Booking, error) {
	rng := availability.NewRange(req.StartDate, req.EndDate)
	if !rng.Valid() {
		return nil, ErrInvalidRange
	}

	var (
		booking *bookings.Booking
		note    *rentnotifications.Notification
		err     error
	)
	for attempt := 0; attempt < 2; attempt++ {
		booking, note, err = s.createBookingTx(ctx, req, rng)
		if err == nil || !database.IsSerializationFailure(err) {
			break
		}
		s.logger.Infow("booking serialization conflict", "car_id", req.CarID, "attempt", attempt+1)
	}
	if err != nil {
		switch {
		case database.IsSerializationFailure(err), database.IsExclusionViolation(err):
			return nil, ErrCarUnavailable
		default:
			return nil, err
		}
	}

	booking.Reference = s.reference(booking.ID)
	s.deliver(ctx, note)
	return booking, nil
}

func (s *Service) createBookingTx(ctx context.Context, req BookingRequest, rng availability.Range) (*bookings.Booking, *rentnotifications.Notification, error) {
	var (
		booking *bookings.Booking
		note    *rentnotifications.Notification
	)
	err := s.repo.WithTx(ctx, serializable, func(st Store) error {
		car, err := st.GetCar(ctx, req.CarID)
		if err != nil {
			if errors.Is(err, cars.ErrNotFound) {
				return ErrCarNotFound
			}
			return err
		}
		if car.OwnerID == req.RenterID {
			return ErrOwnBooking
		}

		existing, err := st.ActiveRanges(ctx, car.ID, nil)
		if err != nil {
			return err
		}
		if !availability.Available(rng, existing) {
			return ErrCarUnavailable
		}

		locations := req.Locations
		if locations == nil {
			locations = []string{}
		}
		booking = &bookings.Booking{
			CarID:           car.ID,
			CarName:         car.DisplayName(),
			CarBrand:        car.Brand,
			OwnerID:         car.OwnerID,
			RenterID:        req.RenterID,
			StartDate:       rng.Start,
			EndDate:         rng.End,
			TotalPriceCents: car.PriceCents * int64(availability.RentalDays(rng.Start, rng.End)),
			Active:          true,
			Agreed:          false,
			Locations:       locations,
		}
		if err := st.CreateBooking(ctx, booking); err != nil {
			return err
		}
		if err := st.IncrementRentCount(ctx, car.ID); err != nil {
			return err
		}

		bookingID := booking.ID
		note = &rentnotifications.Notification{
			BookingID:   &bookingID,
			CarID:       car.ID,
			RenterID:    req.RenterID,
			OwnerID:     car.OwnerID,
			RecipientID: car.OwnerID,
			Type:        rentnotifications.TypeRentRequest,
			Message: fmt.Sprintf("New rent request for %s from %s to %s.",
				car.DisplayName(), rng.Start.Format(time.DateOnly), rng.End.Format(time.DateOnly)),
		}
		return st.CreateNotification(ctx, note)
	})
	return booking, note, err
}

// RespondToBooking applies the owner's decision. Approval sets the booking
// agreed and active, rejection clears both. Exactly one unresolved request
// must exist for the booking.
func (s *Service) RespondToBooking(ctx context.Context, bookingID, ownerID int64, approve bool, message string) (*rentnotifications.Notification, error) {
	var response *rentnotifications.Notification

	err := s.repo.WithTx(ctx, pgx.TxOptions{}, func(st Store) error {
		booking, err := st.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, bookings.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.OwnerID != ownerID {
			return ErrBookingNotFound
		}

		pending, err := st.PendingRequests(ctx, bookingID, ownerID)
		if err != nil {
			return err
		}
		if len(pending) != 1 {
			return ErrNoPendingRequest
		}

		if err := st.SetDecision(ctx, bookingID, approve); err != nil {
			return err
		}
		if err := st.ResolveNotification(ctx, pending[0].ID); err != nil {
			return err
		}

		response = &rentnotifications.Notification{
			BookingID:   &booking.ID,
			CarID:       booking.CarID,
			RenterID:    booking.RenterID,
			OwnerID:     ownerID,
			RecipientID: booking.RenterID,
			Type:        rentnotifications.TypeRentRejected,
			Message:     DecisionMessage(booking, approve, message),
		}
		if approve {
			response.Type = rentnotifications.TypeRentApproved
		}
		return st.CreateNotification(ctx, response)
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, response)
	if s.notifier != nil {
		if err := s.notifier.PushUnreadCount(ctx, ownerID); err != nil {
			s.logger.Warnw("push unread count", "user_id", ownerID, "error", err)
		}
	}
	return response, nil
}

// DecisionMessage is the text sent to the renter.
func DecisionMessage(b *bookings.Booking, approve bool, ownerMessage string) string {
	verb := "rejected"
	if approve {
		verb = "approved"
	}
	msg := fmt.Sprintf("Your rent request for %s from %s to %s was %s.",
		b.CarName, b.StartDate.Format(time.DateOnly), b.EndDate.Format(time.DateOnly), verb)
	if ownerMessage != "" {
		msg += " Owner message: " + ownerMessage
	}
	return msg
}

// CancelBooking deletes the renter's booking and tells the owner.
func (s *Service) CancelBooking(ctx context.Context, bookingID, renterID int64) error {
	var note *rentnotifications.Notification

	err := s.repo.WithTx(ctx, pgx.TxOptions{}, func(st Store) error {
		booking, err := st.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, bookings.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.RenterID != renterID {
			return ErrForbidden
		}

		pending, err := st.PendingRequests(ctx, bookingID, booking.OwnerID)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if err := st.ResolveNotification(ctx, p.ID); err != nil {
				return err
			}
		}

		if err := st.DeleteBooking(ctx, bookingID); err != nil {
			return err
		}

		note = &rentnotifications.Notification{
			CarID:       booking.CarID,
			RenterID:    renterID,
			OwnerID:     booking.OwnerID,
			RecipientID: booking.OwnerID,
			Type:        rentnotifications.TypeRentCancelled,
			Message: fmt.Sprintf("The booking of %s from %s to %s was cancelled by the renter.",
				booking.CarName, booking.StartDate.Format(time.DateOnly), booking.EndDate.Format(time.DateOnly)),
		}
		return st.CreateNotification(ctx, note)
	})
	if err != nil {
		return err
	}

	s.deliver(ctx, note)
	return nil
}

// GetBooking returns a booking visible to userID, its renter or owner.
func (s *Service) GetBooking(ctx context.Context, bookingID, userID int64) (*bookings.Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if b.RenterID != userID && b.OwnerID != userID {
		return nil, ErrBookingNotFound
	}
	b.Reference = s.reference(b.ID)
	return b, nil
}

// Decorate fills the public reference of each booking.
func (s *Service) Decorate(list []bookings.Booking) []bookings.Booking {
	for i := range list {
		list[i].Reference = s.reference(list[i].ID)
	}
	return list
}

func (s *Service) reference(id int64) string {
	if s.refs == nil {
		return ""
	}
	return s.refs.Encode(id)
}

// deliver runs after commit. The row stays undelivered on failure and the
// background job retries it.
func (s *Service) deliver(ctx context.Context, n *rentnotifications.Notification) {
	if n == nil || s.notifier == nil {
		return
	}
	if err := s.notifier.Deliver(ctx, n); err != nil {
		s.logger.Warnw("notification delivery failed", "notification_id", n.ID, "type", n.Type, "error", err)
	}
}
