package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/model"
	"golang.org/x/time/rate"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second

	// Minimum gap between two rate limit warnings to the same client.
	warnInterval = 10 * time.Second
)

// Client is one websocket connection. It is identified by ID for its whole
// lifetime, whether or not it has logged in.
type Client struct {
	ID         uuid.UUID
	conn       *websocket.Conn
	hub        *chat.Hub
	MessageCh  chan model.Event
	messageLim *rate.Limiter
	typingLim  *rate.Limiter
	timeWarned time.Time
}

func NewClient(conn *websocket.Conn, hub *chat.Hub) *Client {
	return &Client{
		ID:        uuid.New(),
		conn:      conn,
		hub:       hub,
		MessageCh: make(chan model.Event, sendBuffer),
	}
}

func (c *Client) SetMessageLimiter(requests int, window time.Duration) {
	l := rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
	c.messageLim = l
}

func (c *Client) SetTypingLimiter(requests int, window time.Duration) {
	l := rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
	c.typingLim = l
}

// Send queues ev for the writer without blocking. MessageCh is never closed,
// so Send is safe to call after the connection went away.
func (c *Client) Send(ev model.Event) bool {
	select {
	case c.MessageCh <- ev:
		return true
	default:
		return false
	}
}

// WriteMessage writes queued events to the outgoing websocket stream until
// ctx is done.
func (c *Client) WriteMessage(ctx context.Context) {
	for {
		select {
		case ev := <-c.MessageCh:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, ev)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "failed to write event",
					"error", err,
					"type", ev.Type,
					"conn_id", c.ID.String())
				// A failed write leaves the connection unusable.
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}
