package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/johndosdos/chatroom/internal/chat"
	ws "github.com/johndosdos/chatroom/internal/websocket"
)

// WsOptions configures accepted websocket connections.
type WsOptions struct {
	OriginPatterns []string
	ReadLimit      int64
	MessageRate    int
	MessageWindow  time.Duration
}

// ServeWs handles the client's websocket connection upgrade. The connection
// has no session until the client sends a login event.
func ServeWs(hub *chat.Hub, opts WsOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Printf("failed to accept websocket connection: %v", err)
			return
		}
		if opts.ReadLimit > 0 {
			conn.SetReadLimit(opts.ReadLimit)
		}

		c := ws.NewClient(conn, hub)
		if opts.MessageRate > 0 && opts.MessageWindow > 0 {
			c.SetMessageLimiter(opts.MessageRate, opts.MessageWindow)
			// Typing signals are cheap but chatty.
			c.SetTypingLimiter(opts.MessageRate*2, opts.MessageWindow)
		}

		hub.Connect(c.ID, c)
		log.Printf("accepted connection %s from %s", c.ID, r.RemoteAddr)

		// The writer must stop once the reader is done.
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go c.WriteMessage(ctx)
		c.ReadMessage(ctx)
	}
}
