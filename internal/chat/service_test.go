package chat

import (
	"context"
	"strings"
	"testing"

	chatstore "carrent/internal/domain/chat"
	"carrent/internal/realtime"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	messages map[int64]*chatstore.Message
	nextID   int64
	touched  int
	users    map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: map[int64]*chatstore.Message{}, users: map[int64]bool{1: true, 2: true}}
}

func (f *fakeStore) InsertMessage(ctx context.Context, m *chatstore.Message) error {
	if !f.users[m.ToUserID] {
		return &pgconn.PgError{Code: "23503"}
	}
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeStore) GetMessage(ctx context.Context, id int64) (*chatstore.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, chatstore.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) EditMessage(ctx context.Context, id int64, body string) (*chatstore.Message, error) {
	m := f.messages[id]
	m.Body, m.IsEdited = body, true
	cp := *m
	return &cp, nil
}

func (f *fakeStore) SoftDeleteMessage(ctx context.Context, id int64) error {
	f.messages[id].IsDeleted = true
	return nil
}

func (f *fakeStore) History(ctx context.Context, a, b, beforeID int64, limit int) ([]chatstore.Message, error) {
	return nil, nil
}

func (f *fakeStore) MarkRead(ctx context.Context, readerID, partnerID int64) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.ToUserID == readerID && m.FromUserID == partnerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ToUserID == userID && !m.IsRead && !m.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) TouchConversation(ctx context.Context, a, b int64) (int64, error) {
	f.touched++
	return 1, nil
}

func (f *fakeStore) Conversations(ctx context.Context, userID int64) ([]chatstore.ConversationSummary, error) {
	return nil, nil
}

type event struct {
	to int64
	ev realtime.Event
}

type fakeHub struct {
	online map[int64]bool
	sent   []event
}

func (h *fakeHub) SendToUser(userID int64, ev realtime.Event) int {
	h.sent = append(h.sent, event{userID, ev})
	return 1
}

func (h *fakeHub) SendToOthers(except int64, ev realtime.Event) int {
	h.sent = append(h.sent, event{-except, ev})
	return 1
}

func (h *fakeHub) IsOnline(userID int64) bool { return h.online[userID] }

func (h *fakeHub) OnlineUsers() []int64 { return nil }

func (h *fakeHub) types() []string {
	var out []string
	for _, e := range h.sent {
		out = append(out, e.ev.Type)
	}
	return out
}

type fakePusher struct{ pushed []int64 }

func (p *fakePusher) PushChatMessage(ctx context.Context, to, from int64, title, preview string) error {
	p.pushed = append(p.pushed, to)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeHub, *fakePusher) {
	store, hub, pusher := newFakeStore(), &fakeHub{online: map[int64]bool{}}, &fakePusher{}
	return NewService(store, hub, pusher, zap.NewNop().Sugar()), store, hub, pusher
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to both sides and pushes offline recipient", func(t *testing.T) {
		svc, store, hub, pusher := newTestService()

		m, err := svc.Send(ctx, 1, Outgoing{ToUserID: 2, Body: "  hello  "})
		require.NoError(t, err)
		assert.Equal(t, "hello", m.Body)
		assert.Equal(t, chatstore.MessageText, m.Type)
		assert.Equal(t, 1, store.touched)

		require.Len(t, hub.sent, 2)
		assert.Equal(t, event{2, realtime.Event{Type: EventReceiveMessage, Payload: m}}, hub.sent[0])
		assert.Equal(t, int64(1), hub.sent[1].to)
		assert.Equal(t, EventMessageSent, hub.sent[1].ev.Type)
		assert.Equal(t, []int64{2}, pusher.pushed)
	})

	t.Run("online recipient gets no push", func(t *testing.T) {
		svc, _, hub, pusher := newTestService()
		hub.online[2] = true

		_, err := svc.Send(ctx, 1, Outgoing{ToUserID: 2, Body: "hi"})
		require.NoError(t, err)
		assert.Empty(t, pusher.pushed)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		url := "https://res.cloudinary.com/x.jpg"

		tests := []struct {
			out Outgoing
			err error
		}{
			{Outgoing{ToUserID: 2, Body: "   "}, ErrEmptyMessage},
			{Outgoing{ToUserID: 2, Body: strings.Repeat("a", 2001)}, ErrMessageTooLong},
			{Outgoing{ToUserID: 2, Body: "x", Type: "video"}, ErrInvalidType},
			{Outgoing{ToUserID: 2, Type: chatstore.MessageImage}, ErrMissingFile},
			{Outgoing{ToUserID: 1, Body: "me"}, ErrSelfMessage},
			{Outgoing{ToUserID: 3, Body: "ghost"}, ErrRecipientNotFound},
		}
		for _, tt := range tests {
			_, err := svc.Send(ctx, 1, tt.out)
			assert.ErrorIs(t, err, tt.err)
		}

		_, err := svc.Send(ctx, 1, Outgoing{ToUserID: 2, Type: chatstore.MessageImage, FileURL: &url})
		assert.NoError(t, err)
		_, err = svc.Send(ctx, 1, Outgoing{ToUserID: 2, Body: strings.Repeat("é", 2000)})
		assert.NoError(t, err)
	})
}

func TestEditAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, hub, _ := newTestService()

	m, err := svc.Send(ctx, 1, Outgoing{ToUserID: 2, Body: "helo"})
	require.NoError(t, err)
	hub.sent = nil

	_, err = svc.Edit(ctx, 2, m.ID, "hijack")
	assert.ErrorIs(t, err, ErrNotAuthor)

	edited, err := svc.Edit(ctx, 1, m.ID, "hello")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, []string{EventMessageEdited, EventMessageEdited}, hub.types())

	assert.ErrorIs(t, svc.Delete(ctx, 2, m.ID), ErrNotAuthor)
	require.NoError(t, svc.Delete(ctx, 1, m.ID))
	assert.True(t, store.messages[m.ID].IsDeleted)

	_, err = svc.Edit(ctx, 1, m.ID, "again")
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 1, 999), ErrMessageNotFound)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc, _, hub, _ := newTestService()

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, 2, Outgoing{ToUserID: 1, Body: "ping"})
		require.NoError(t, err)
	}
	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hub.sent = nil
	n, err := svc.MarkRead(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{EventMessagesRead, EventUnreadCount}, hub.types())
	assert.Equal(t, 0, hub.sent[1].ev.Payload)
}

func TestTyping(t *testing.T) {
	svc, _, hub, _ := newTestService()
	svc.Typing(1, 2, true)
	svc.Typing(1, 2, false)
	assert.Equal(t, []string{EventUserTyping, EventUserStoppedTyping}, hub.types())
	assert.Equal(t, int64(2), hub.sent[0].to)
}
