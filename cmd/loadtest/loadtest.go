// Command loadtest opens many websocket clients in one room and has each of
// them send chat messages, then reports how many broadcasts came back.
//
// Usage:
//
//	go run ./cmd/loadtest [-url ws://localhost:8080/ws] [-clients 50] [-messages 20] [-room load]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/johndosdos/chatroom/internal/model"
)

type stats struct {
	connected atomic.Int64
	failed    atomic.Int64
	sent      atomic.Int64
	received  atomic.Int64
	limited   atomic.Int64
}

func main() {
	wsURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	clients := flag.Int("clients", 50, "Number of concurrent clients")
	messages := flag.Int("messages", 20, "Messages sent by each client")
	room := flag.String("room", "load", "Room to join")
	interval := flag.Duration("interval", 100*time.Millisecond, "Delay between messages of one client")
	timeout := flag.Duration("timeout", 2*time.Minute, "Global test timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var st stats
	var wg sync.WaitGroup
	start := time.Now()

	for i := range *clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runClient(ctx, *wsURL, fmt.Sprintf("load%d", i), *room, *messages, *interval, &st); err != nil {
				st.failed.Add(1)
				log.Printf("client %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	expected := int64(*clients) * st.sent.Load()
	log.Printf("clients: %d connected, %d failed", st.connected.Load(), st.failed.Load())
	log.Printf("messages: %d sent, %d rate limited", st.sent.Load(), st.limited.Load())
	log.Printf("broadcasts: %d received of at most %d", st.received.Load(), expected)
	log.Printf("elapsed: %s", elapsed.Round(time.Millisecond))
}

func runClient(ctx context.Context, url, nickname, room string, n int, interval time.Duration, st *stats) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	st.connected.Add(1)

	if err := wsjson.Write(ctx, conn, model.ClientEvent{Type: model.TypeLogin, Nickname: nickname, Room: room}); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var ev model.Event
			if err := wsjson.Read(readCtx, conn, &ev); err != nil {
				return
			}
			switch ev.Type {
			case model.TypeChatMessage:
				st.received.Add(1)
			case model.TypeRateLimited:
				st.limited.Add(1)
			}
		}
	}()

	for i := range n {
		msg := model.ClientEvent{Type: model.TypeChatMessage, Message: fmt.Sprintf("%s #%d", nickname, i)}
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		st.sent.Add(1)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Give the last broadcasts time to arrive.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
	}
	// Cancelling a read tears the connection down, which is all that is left to do.
	stopReading()
	<-done
	return nil
}
