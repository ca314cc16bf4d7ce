package notifications

import (
	"log/slog"
	"sync"
	"time"

	"quill/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must stay below pongWait

	// The stream is server to client. Inbound frames are only control
	// traffic, so anything larger is a misbehaving peer.
	maxInboundSize = 512
	outboxSize     = 64
)

// droppedNotice tells a slow client that it missed notifications and should
// re-read its inbox.
var droppedNotice = []byte(`{"type":"notifications_dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is the registry a Client detaches from when its connection ends.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one websocket connection of a user on the notification stream.
type Client struct {
	UserID uint

	hub  WSHub
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
}

// Serve blocks until the peer disconnects or the client is closed, then
// detaches from the hub.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
	c.hub.UnregisterClient(c)
	c.Close()
}

// Close stops the writer, which sends a close frame and drops the
// connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readLoop discards inbound frames and keeps the read deadline fresh on pong.
func (c *Client) readLoop() {
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				observability.GlobalLogger.Warn("notification stream read failed",
					slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writeLoop is the only goroutine writing to conn.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"))
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// TrySend queues msg without blocking. A full outbox drops msg and queues a
// dropped notice when there is room for it. Reports whether msg was queued.
func (c *Client) TrySend(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
	}

	observability.WebSocketBackpressureDrops.Inc()
	observability.GlobalLogger.Warn("notification stream backlog full, dropped message",
		slog.Uint64("user_id", uint64(c.UserID)), slog.String("hub", c.hub.Name()))
	select {
	case c.send <- droppedNotice:
	default:
	}
	return false
}
