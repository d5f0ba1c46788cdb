package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/model"
	"golang.org/x/time/rate"
)

// Error codes carried by model.TypeError events.
const (
	CodeDuplicateConnection = "duplicate_connection"
	CodeNoSession           = "no_session"
	CodeMissingField        = "missing_field"
	CodeStore               = "store_error"
	CodeUnknown             = "unknown"
)

// ReadMessage reads the incoming data from the websocket stream and
// dispatches it to the hub. It returns when the connection closes; the
// departure sequence runs before it does.
func (c *Client) ReadMessage(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(c.ID)
		c.conn.CloseNow()
	}()

	for {
		msgType, p, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				log.Printf("%v", err)
			}
			return
		}

		// The app only supports text format for now...
		if msgType != websocket.MessageText {
			continue
		}

		var ev model.ClientEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			log.Printf("failed to process payload from client: %v", err)
			continue
		}

		c.dispatch(ctx, ev)
	}
}

func (c *Client) dispatch(ctx context.Context, ev model.ClientEvent) {
	var err error

	switch ev.Type {
	case model.TypeLogin:
		_, err = c.hub.Join(ctx, c.ID, ev.Nickname, ev.Room)

	case model.TypeChatMessage:
		if !c.allow(c.messageLim) {
			return
		}
		_, err = c.hub.Route(ctx, c.ID, chat.Payload{Text: ev.Message, ReplyTo: ev.ReplyTo})

	case model.TypeTypingStart, model.TypeTypingStop:
		if c.typingLim != nil && !c.typingLim.Allow() {
			return
		}
		err = c.hub.SetTyping(c.ID, ev.Type == model.TypeTypingStart)

	case model.TypeReaction:
		if !c.allow(c.messageLim) {
			return
		}
		_, err = c.hub.React(ctx, c.ID, ev.MessageID, ev.Emoji)

	case model.TypeGetPastMessages:
		_, err = c.hub.History(ctx, c.ID, ev.Limit)

	default:
		slog.DebugContext(ctx, "ignoring unknown event",
			"type", ev.Type,
			"conn_id", c.ID.String())
		return
	}

	if err != nil {
		c.reportError(ctx, ev.Type, err)
	}
}

// allow consumes a token from lim and warns the client when it is exhausted.
func (c *Client) allow(lim *rate.Limiter) bool {
	if lim == nil || lim.Allow() {
		return true
	}

	if time.Since(c.timeWarned) > warnInterval {
		c.timeWarned = time.Now()
		c.Send(model.Event{
			Type: model.TypeRateLimited,
			Text: "you are sending messages too fast",
		})
	}
	return false
}

func (c *Client) reportError(ctx context.Context, evType string, err error) {
	if chat.IsSilent(err) {
		return
	}

	code := CodeUnknown
	switch {
	case errors.Is(err, chat.ErrDuplicateConnection):
		code = CodeDuplicateConnection
	case errors.Is(err, chat.ErrNoSession):
		code = CodeNoSession
	case errors.Is(err, chat.ErrMissingField):
		code = CodeMissingField
	case errors.Is(err, chat.ErrStore):
		code = CodeStore
	}

	slog.WarnContext(ctx, "event rejected",
		"error", err,
		"type", evType,
		"code", code,
		"conn_id", c.ID.String())

	c.Send(model.Event{
		Type: model.TypeError,
		Code: code,
		Text: err.Error(),
	})
}
