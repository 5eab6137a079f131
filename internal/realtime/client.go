package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 64
)

// Client is one websocket connection of an authenticated user.
type Client struct {
	UserID int64

	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

func newClient(h *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{UserID: userID, hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
}

func (c *Client) queue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

// Send queues an event on this connection only.
func (c *Client) Send(ev Event) bool {
	frame, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	return c.queue(frame)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and serves the connection until it closes.
// The caller has already authenticated userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := newClient(h, conn, userID)
	first := h.register(c)
	h.logger.Infow("websocket connected", "hub", h.name, "user_id", userID)
	if h.handler != nil {
		h.handler.Connected(c, first)
	}

	go c.writePump()
	c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
		c.hub.logger.Infow("websocket disconnected", "hub", c.hub.name, "user_id", c.UserID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnw("websocket read", "hub", c.hub.name, "user_id", c.UserID, "error", err)
			}
			return
		}
		c.dispatch(data)
	}
}

// dispatch hands one frame to the handler. Malformed frames are logged and
// skipped; only transport errors end the connection.
func (c *Client) dispatch(data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.hub.logger.Warnw("websocket bad frame", "hub", c.hub.name, "user_id", c.UserID, "error", err)
		return
	}
	if c.hub.handler != nil && in.Type != "" {
		c.hub.handler.Received(c, in)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
