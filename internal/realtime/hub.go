// Package realtime keeps track of websocket connections and fans events out
// to users and named groups. Each Hub owns its own registry, so separate hubs
// (chat, notifications) never see each other's clients.
package realtime

import (
	"encoding/json"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Event is the frame exchanged with clients in both directions.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound is a decoded client frame whose payload is left raw.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserGroup names the group every connection of a user joins.
func UserGroup(userID int64) string {
	return "User_" + strconv.FormatInt(userID, 10)
}

// Handler reacts to connection lifecycle and inbound frames. Any method may
// be a no-op.
type Handler interface {
	Connected(c *Client, first bool)
	Disconnected(c *Client, last bool)
	Received(c *Client, in Inbound)
}

type Hub struct {
	name    string
	logger  *zap.SugaredLogger
	handler Handler

	mu      sync.RWMutex
	clients map[*Client]struct{}
	groups  map[string]map[*Client]struct{}
	users   map[int64]int
}

func NewHub(name string, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		name:    name,
		logger:  logger,
		clients: make(map[*Client]struct{}),
		groups:  make(map[string]map[*Client]struct{}),
		users:   make(map[int64]int),
	}
}

// SetHandler must be called before the hub serves connections.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

func (h *Hub) Name() string { return h.name }

// register adds c to the hub and its user group. first is true when this is
// the user's only connection.
func (h *Hub) register(c *Client) (first bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	h.addLocked(c, UserGroup(c.UserID))
	h.users[c.UserID]++
	return h.users[c.UserID] == 1
}

// unregister removes c everywhere and closes its send queue. last is true
// when the user has no connection left.
func (h *Hub) unregister(c *Client) (removed, last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false, false
	}
	delete(h.clients, c)
	for name, members := range h.groups {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, name)
		}
	}
	h.users[c.UserID]--
	if h.users[c.UserID] <= 0 {
		delete(h.users, c.UserID)
		last = true
	}
	c.closeSend()
	return true, last
}

func (h *Hub) addLocked(c *Client, group string) {
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
}

// SendToGroup returns how many connections the event was queued on.
func (h *Hub) SendToGroup(group string, ev Event) int {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorw("encode event", "hub", h.name, "type", ev.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	return h.enqueue(targets, frame)
}

func (h *Hub) SendToUser(userID int64, ev Event) int {
	return h.SendToGroup(UserGroup(userID), ev)
}

// SendToOthers queues ev on every connection except those of except.
func (h *Hub) SendToOthers(exceptUserID int64, ev Event) int {
	frame, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorw("encode event", "hub", h.name, "type", ev.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.UserID != exceptUserID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	return h.enqueue(targets, frame)
}

func (h *Hub) enqueue(targets []*Client, frame []byte) int {
	sent := 0
	for _, c := range targets {
		if c.queue(frame) {
			sent++
			continue
		}
		h.logger.Warnw("client send queue full, dropping connection", "hub", h.name, "user_id", c.UserID)
		h.drop(c)
	}
	return sent
}

func (h *Hub) drop(c *Client) {
	removed, last := h.unregister(c)
	if removed && h.handler != nil {
		h.handler.Disconnected(c, last)
	}
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.users[userID] > 0
}

func (h *Hub) OnlineUsers() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]int64, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	return ids
}

// Connections is the number of open connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
