package rental

import (
	"context"
	"errors"
	"testing"
	"time"

	"carrent/internal/availability"
	"carrent/internal/domain/bookings"
	"carrent/internal/domain/cars"
	"carrent/internal/domain/rentnotifications"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	cars          map[int64]*cars.Car
	bookings      map[int64]*bookings.Booking
	notifications []*rentnotifications.Notification
	nextID        int64
	createErrs    []error
	txCount       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cars: map[int64]*cars.Car{
			1: {ID: 1, OwnerID: 10, Name: "Civic", Brand: "Honda", PriceCents: 5000},
		},
		bookings: map[int64]*bookings.Booking{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(Store) error) error {
	f.txCount++
	return fn(f)
}

func (f *fakeStore) GetCar(ctx context.Context, carID int64) (*cars.Car, error) {
	c, ok := f.cars[carID]
	if !ok {
		return nil, cars.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) IncrementRentCount(ctx context.Context, carID int64) error {
	f.cars[carID].RentCount++
	return nil
}

func (f *fakeStore) ActiveRanges(ctx context.Context, carID int64, exclude *int64) ([]availability.Range, error) {
	var out []availability.Range
	for _, b := range f.bookings {
		if b.CarID != carID || !b.Active || (exclude != nil && *exclude == b.ID) {
			continue
		}
		out = append(out, availability.NewRange(b.StartDate, b.EndDate))
	}
	return out, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, b *bookings.Booking) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return err
	}
	b.ID = f.id()
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id int64) (*bookings.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, bookings.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) SetDecision(ctx context.Context, id int64, approve bool) error {
	b := f.bookings[id]
	b.Active, b.Agreed = approve, approve
	return nil
}

func (f *fakeStore) DeleteBooking(ctx context.Context, id int64) error {
	delete(f.bookings, id)
	return nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, n *rentnotifications.Notification) error {
	n.ID = f.id()
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) PendingRequests(ctx context.Context, bookingID, ownerID int64) ([]rentnotifications.Notification, error) {
	var out []rentnotifications.Notification
	for _, n := range f.notifications {
		if n.BookingID != nil && *n.BookingID == bookingID && n.OwnerID == ownerID &&
			n.Type == rentnotifications.TypeRentRequest && !n.Resolved {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeStore) ResolveNotification(ctx context.Context, id int64) error {
	for _, n := range f.notifications {
		if n.ID == id {
			n.Resolved, n.IsRead = true, true
			return nil
		}
	}
	return rentnotifications.ErrNotFound
}

type fakeNotifier struct {
	delivered []*rentnotifications.Notification
	unread    []int64
	err       error
}

func (n *fakeNotifier) Deliver(ctx context.Context, note *rentnotifications.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.delivered = append(n.delivered, note)
	return nil
}

func (n *fakeNotifier) PushUnreadCount(ctx context.Context, userID int64) error {
	n.unread = append(n.unread, userID)
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeNotifier) {
	t.Helper()
	refs, err := NewReferences("test-salt")
	require.NoError(t, err)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	return NewService(store, notifier, refs, zap.NewNop().Sugar()), store, notifier
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("prices by days and notifies owner", func(t *testing.T) {
		svc, store, notifier := newTestService(t)

		b, err := svc.CreateBooking(ctx, BookingRequest{
			RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-15"),
		})
		require.NoError(t, err)

		assert.Equal(t, int64(5*5000), b.TotalPriceCents)
		assert.True(t, b.Active)
		assert.False(t, b.Agreed)
		assert.NotEmpty(t, b.Reference)
		assert.Equal(t, 1, store.cars[1].RentCount)

		require.Len(t, notifier.delivered, 1)
		n := notifier.delivered[0]
		assert.Equal(t, rentnotifications.TypeRentRequest, n.Type)
		assert.Equal(t, int64(10), n.RecipientID)
		require.NotNil(t, n.BookingID)
		assert.Equal(t, b.ID, *n.BookingID)
	})

	t.Run("same day is priced as one day", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b, err := svc.CreateBooking(ctx, BookingRequest{
			RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-10"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5000), b.TotalPriceCents)
	})

	t.Run("shared boundary day is unavailable", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-15")})
		require.NoError(t, err)

		_, err = svc.CreateBooking(ctx, BookingRequest{RenterID: 21, CarID: 1, StartDate: day("2024-01-15"), EndDate: day("2024-01-20")})
		assert.ErrorIs(t, err, ErrCarUnavailable)

		_, err = svc.CreateBooking(ctx, BookingRequest{RenterID: 21, CarID: 1, StartDate: day("2024-01-16"), EndDate: day("2024-01-20")})
		assert.NoError(t, err)
	})

	t.Run("rejections", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-01-15"), EndDate: day("2024-01-10")})
		assert.ErrorIs(t, err, ErrInvalidRange)

		_, err = svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 99, StartDate: day("2024-01-10"), EndDate: day("2024-01-11")})
		assert.ErrorIs(t, err, ErrCarNotFound)

		_, err = svc.CreateBooking(ctx, BookingRequest{RenterID: 10, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-11")})
		assert.ErrorIs(t, err, ErrOwnBooking)
	})

	t.Run("serialization failure is retried once", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.createErrs = []error{&pgconn.PgError{Code: "40001"}}

		_, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-11")})
		require.NoError(t, err)
		assert.Equal(t, 2, store.txCount)
	})

	t.Run("repeated conflicts mean unavailable", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.createErrs = []error{&pgconn.PgError{Code: "40001"}, &pgconn.PgError{Code: "40001"}}

		_, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-11")})
		assert.ErrorIs(t, err, ErrCarUnavailable)
		assert.Equal(t, 2, store.txCount)
	})

	t.Run("exclusion violation means unavailable", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.createErrs = []error{&pgconn.PgError{Code: "23P01"}}

		_, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-11")})
		assert.ErrorIs(t, err, ErrCarUnavailable)
		assert.Equal(t, 1, store.txCount)
	})

	t.Run("delivery failure does not fail the booking", func(t *testing.T) {
		svc, store, notifier := newTestService(t)
		notifier.err = errors.New("push down")

		b, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-01-10"), EndDate: day("2024-01-11")})
		require.NoError(t, err)
		assert.Contains(t, store.bookings, b.ID)
		assert.Len(t, store.notifications, 1)
	})
}

func TestRespondToBooking(t *testing.T) {
	ctx := context.Background()

	book := func(t *testing.T, svc *Service) *bookings.Booking {
		b, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-02-01"), EndDate: day("2024-02-03")})
		require.NoError(t, err)
		return b
	}

	t.Run("approve", func(t *testing.T) {
		svc, store, notifier := newTestService(t)
		b := book(t, svc)

		n, err := svc.RespondToBooking(ctx, b.ID, 10, true, "Keys at the desk")
		require.NoError(t, err)

		assert.True(t, store.bookings[b.ID].Agreed)
		assert.True(t, store.bookings[b.ID].Active)
		assert.Equal(t, rentnotifications.TypeRentApproved, n.Type)
		assert.Equal(t, int64(20), n.RecipientID)
		assert.Contains(t, n.Message, " Owner message: Keys at the desk")
		assert.True(t, store.notifications[0].Resolved)
		assert.Equal(t, []int64{10}, notifier.unread)
	})

	t.Run("reject frees the dates", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		b := book(t, svc)

		n, err := svc.RespondToBooking(ctx, b.ID, 10, false, "")
		require.NoError(t, err)
		assert.False(t, store.bookings[b.ID].Agreed)
		assert.False(t, store.bookings[b.ID].Active)
		assert.Equal(t, rentnotifications.TypeRentRejected, n.Type)
		assert.NotContains(t, n.Message, "Owner message")

		ok, err := svc.IsCarAvailable(ctx, 1, day("2024-02-01"), day("2024-02-03"), nil)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("second decision has no pending request", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := book(t, svc)

		_, err := svc.RespondToBooking(ctx, b.ID, 10, true, "")
		require.NoError(t, err)
		_, err = svc.RespondToBooking(ctx, b.ID, 10, false, "")
		assert.ErrorIs(t, err, ErrNoPendingRequest)
	})

	t.Run("only the owner decides", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		b := book(t, svc)

		_, err := svc.RespondToBooking(ctx, b.ID, 20, true, "")
		assert.ErrorIs(t, err, ErrBookingNotFound)
		_, err = svc.RespondToBooking(ctx, 999, 10, true, "")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	svc, store, notifier := newTestService(t)

	b, err := svc.CreateBooking(ctx, BookingRequest{RenterID: 20, CarID: 1, StartDate: day("2024-03-01"), EndDate: day("2024-03-02")})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.CancelBooking(ctx, b.ID, 10), ErrForbidden)
	require.NoError(t, svc.CancelBooking(ctx, b.ID, 20))

	assert.NotContains(t, store.bookings, b.ID)
	last := notifier.delivered[len(notifier.delivered)-1]
	assert.Equal(t, rentnotifications.TypeRentCancelled, last.Type)
	assert.Equal(t, int64(10), last.RecipientID)
	assert.True(t, store.notifications[0].Resolved)

	assert.ErrorIs(t, svc.CancelBooking(ctx, b.ID, 20), ErrBookingNotFound)
}

func TestReferencesRoundTrip(t *testing.T) {
	refs, err := NewReferences("salt")
	require.NoError(t, err)

	code := refs.Encode(42)
	assert.GreaterOrEqual(t, len(code), 8)

	id, err := refs.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = refs.Decode("!!")
	assert.ErrorIs(t, err, ErrInvalidReference)
}
