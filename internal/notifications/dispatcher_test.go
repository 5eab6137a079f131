package notifications

import (
	"context"
	"errors"
	"testing"

	"carrent/internal/domain/rentnotifications"
	"carrent/internal/realtime"

	"github.com/9ssi7/exponent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sent struct {
	userID int64
	ev     realtime.Event
}

type fakeHub struct{ events []sent }

func (h *fakeHub) SendToUser(userID int64, ev realtime.Event) int {
	h.events = append(h.events, sent{userID, ev})
	return 1
}

type fakePush struct {
	batches [][]*exponent.Message
	err     error
}

func (p *fakePush) Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.batches = append(p.batches, msgs)
	return nil, nil
}

type fakeTokens map[int64][]string

func (f fakeTokens) GetTokensByUserIDs(ctx context.Context, ids []int64) (map[int64][]string, error) {
	out := map[int64][]string{}
	for _, id := range ids {
		out[id] = f[id]
	}
	return out, nil
}

type fakeStore struct {
	unread      int
	undelivered []rentnotifications.Notification
	delivered   []int64
}

func (s *fakeStore) UnreadCount(ctx context.Context, userID int64) (int, error) { return s.unread, nil }

func (s *fakeStore) Undelivered(ctx context.Context, limit int) ([]rentnotifications.Notification, error) {
	return s.undelivered, nil
}

func (s *fakeStore) MarkDelivered(ctx context.Context, id int64) error {
	s.delivered = append(s.delivered, id)
	return nil
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()
	bookingID := int64(4)
	n := &rentnotifications.Notification{
		ID: 11, BookingID: &bookingID, RecipientID: 7,
		Type: rentnotifications.TypeRentRequest, Message: "New rent request",
	}

	t.Run("hub push and mark delivered", func(t *testing.T) {
		hub, push, store := &fakeHub{}, &fakePush{}, &fakeStore{unread: 3}
		d := NewDispatcher(hub, push, fakeTokens{7: {"ExponentPushToken[a]", "ExponentPushToken[a]", "ExponentPushToken[b]"}}, store, zap.NewNop().Sugar())

		require.NoError(t, d.Deliver(ctx, n))

		require.Len(t, hub.events, 2)
		assert.Equal(t, EventReceiveRentRequest, hub.events[0].ev.Type)
		assert.Equal(t, int64(7), hub.events[0].userID)
		assert.Equal(t, EventUnreadCount, hub.events[1].ev.Type)
		assert.Equal(t, 3, hub.events[1].ev.Payload)

		require.Len(t, push.batches, 1)
		assert.Len(t, push.batches[0], 2)
		assert.Equal(t, "New rent request", push.batches[0][0].Title)
		assert.Equal(t, "4", push.batches[0][0].Data["booking_id"])
		assert.Equal(t, []int64{11}, store.delivered)
	})

	t.Run("push failure leaves row undelivered", func(t *testing.T) {
		hub, store := &fakeHub{}, &fakeStore{}
		push := &fakePush{err: errors.New("expo down")}
		d := NewDispatcher(hub, push, fakeTokens{7: {"ExponentPushToken[a]"}}, store, zap.NewNop().Sugar())

		err := d.Deliver(ctx, n)
		assert.ErrorIs(t, err, ErrDelivery)
		assert.Empty(t, store.delivered)
	})

	t.Run("responses use the response event", func(t *testing.T) {
		hub, store := &fakeHub{}, &fakeStore{}
		d := NewDispatcher(hub, &fakePush{}, fakeTokens{}, store, zap.NewNop().Sugar())

		resp := *n
		resp.Type = rentnotifications.TypeRentApproved
		require.NoError(t, d.Deliver(ctx, &resp))
		assert.Equal(t, EventReceiveRentResponse, hub.events[0].ev.Type)
	})
}

func TestRedeliver(t *testing.T) {
	store := &fakeStore{undelivered: []rentnotifications.Notification{
		{ID: 1, RecipientID: 2, Type: rentnotifications.TypeRentRequest},
		{ID: 2, RecipientID: 3, Type: rentnotifications.TypeRentCancelled},
	}}
	d := NewDispatcher(&fakeHub{}, &fakePush{}, fakeTokens{}, store, zap.NewNop().Sugar())

	n, err := d.Redeliver(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, store.delivered)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
}

func TestBatches(t *testing.T) {
	msgs := pushMessages([]string{"a", "b", "c", "d", "e"}, "t", "b", nil)

	got := batches(msgs, 2)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 2)
	assert.Len(t, got[2], 1)

	assert.Empty(t, batches(nil, 2))
	assert.Len(t, batches(msgs, expoBatchSize), 1)
}
