package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func connect(h *Hub, userID int64) *Client {
	c := newClient(h, nil, userID)
	h.register(c)
	return c
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case frame := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	default:
		t.Fatal("no frame queued")
		return Event{}
	}
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	a1 := connect(h, 1)
	a2 := connect(h, 1)
	b := connect(h, 2)

	n := h.SendToUser(1, Event{Type: "ReceiveRentRequest", Payload: map[string]int{"id": 7}})
	assert.Equal(t, 2, n)
	assert.Equal(t, "ReceiveRentRequest", recv(t, a1).Type)
	assert.Equal(t, "ReceiveRentRequest", recv(t, a2).Type)
	assert.Empty(t, b.send)
}

func TestGroupsAndOthers(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	a := connect(h, 1)
	b := connect(h, 2)
	c := connect(h, 3)

	assert.Equal(t, 1, h.SendToGroup(UserGroup(2), Event{Type: "x"}))
	recv(t, b)
	assert.Empty(t, a.send)
	assert.Zero(t, h.SendToGroup("car_5", Event{Type: "x"}))

	assert.Equal(t, 2, h.SendToOthers(1, Event{Type: "UserOnline"}))
	assert.Empty(t, a.send)
	recv(t, b)
	recv(t, c)
}

func TestOnlineTracking(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	a1 := newClient(h, nil, 1)
	a2 := newClient(h, nil, 1)

	assert.True(t, h.register(a1))
	assert.False(t, h.register(a2))
	connect(h, 2)

	ids := h.OnlineUsers()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{1, 2}, ids)

	removed, last := h.unregister(a1)
	assert.True(t, removed)
	assert.False(t, last)
	assert.True(t, h.IsOnline(1))

	_, last = h.unregister(a2)
	assert.True(t, last)
	assert.False(t, h.IsOnline(1))

	removed, _ = h.unregister(a2)
	assert.False(t, removed)
	assert.Equal(t, 1, h.Connections())
	assert.Equal(t, 0, h.SendToUser(1, Event{Type: "x"}))
}

func TestFullQueueDropsClient(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	c := connect(h, 1)

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, h.SendToUser(1, Event{Type: "fill"}))
	}
	assert.Equal(t, 0, h.SendToUser(1, Event{Type: "overflow"}))
	assert.False(t, h.IsOnline(1))
	assert.Equal(t, 0, h.Connections())
	assert.True(t, c.queue([]byte("ignored")))
}

type signalHandler struct {
	connected chan int64
	received  chan Inbound
}

func (s *signalHandler) Connected(c *Client, first bool)   { s.connected <- c.UserID }
func (s *signalHandler) Disconnected(c *Client, last bool) {}
func (s *signalHandler) Received(c *Client, in Inbound)    { s.received <- in }

func TestServeWS(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	sig := &signalHandler{connected: make(chan int64, 1), received: make(chan Inbound, 1)}
	h.SetHandler(sig)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, 9)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case id := <-sig.connected:
		assert.Equal(t, int64(9), id)
	case <-time.After(2 * time.Second):
		t.Fatal("not connected")
	}

	h.SendToUser(9, Event{Type: "ReceiveMessage", Payload: "hi"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "ReceiveMessage", ev.Type)
	assert.Equal(t, "hi", ev.Payload)

	require.NoError(t, conn.WriteJSON(Event{Type: "Typing", Payload: map[string]int64{"to": 3}}))
	select {
	case in := <-sig.received:
		assert.Equal(t, "Typing", in.Type)
		assert.JSONEq(t, `{"to":3}`, string(in.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("frame not received")
	}
}

func TestServeWSSkipsMalformedFrames(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	sig := &signalHandler{connected: make(chan int64, 1), received: make(chan Inbound, 1)}
	h.SetHandler(sig)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, 4)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-sig.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("not connected")
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":7}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(Event{Type: "MarkRead", Payload: map[string]int64{"message_id": 1}}))

	select {
	case in := <-sig.received:
		assert.Equal(t, "MarkRead", in.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("connection dropped after malformed frame")
	}
	assert.True(t, h.IsOnline(4))
}

func TestDispatchIgnoresBadFrames(t *testing.T) {
	h := NewHub("test", zap.NewNop().Sugar())
	sig := &signalHandler{received: make(chan Inbound, 3)}
	h.SetHandler(sig)
	c := newClient(h, nil, 1)

	c.dispatch([]byte(`{"type":7}`))
	c.dispatch([]byte(`{"payload":{}}`))
	c.dispatch([]byte(`{"type":"Typing","payload":{"to":2}}`))

	require.Len(t, sig.received, 1)
	assert.Equal(t, "Typing", (<-sig.received).Type)
}
