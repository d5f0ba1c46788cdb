package chat

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/metrics"
	"github.com/johndosdos/chatroom/internal/model"
)

// Sink is the outbound queue of one connection. Send must not block: it
// reports false when the event could not be queued.
type Sink interface {
	Send(ev model.Event) bool
}

// Broadcaster delivers events to single connections or to every member of a
// room. Delivery is fire-and-forget; a slow recipient only loses its own
// events.
type Broadcaster struct {
	presence *Presence

	mu    sync.RWMutex
	sinks map[uuid.UUID]Sink
}

func NewBroadcaster(presence *Presence) *Broadcaster {
	return &Broadcaster{
		presence: presence,
		sinks:    make(map[uuid.UUID]Sink),
	}
}

// Attach makes connID reachable.
func (b *Broadcaster) Attach(connID uuid.UUID, sink Sink) {
	b.mu.Lock()
	b.sinks[connID] = sink
	b.mu.Unlock()
}

func (b *Broadcaster) Detach(connID uuid.UUID) {
	b.mu.Lock()
	delete(b.sinks, connID)
	b.mu.Unlock()
}

func (b *Broadcaster) ToConnection(connID uuid.UUID, ev model.Event) {
	b.mu.RLock()
	sink, ok := b.sinks[connID]
	b.mu.RUnlock()
	if !ok {
		return
	}
	b.deliver(connID, sink, ev)
}

// ToRoom delivers ev to every member of room except exclude. Pass uuid.Nil
// to exclude nobody.
func (b *Broadcaster) ToRoom(room string, ev model.Event, exclude uuid.UUID) {
	members := b.presence.Members(room)

	type target struct {
		id   uuid.UUID
		sink Sink
	}
	targets := make([]target, 0, len(members))

	b.mu.RLock()
	for _, id := range members {
		if id == exclude {
			continue
		}
		if sink, ok := b.sinks[id]; ok {
			targets = append(targets, target{id, sink})
		}
	}
	b.mu.RUnlock()

	for _, t := range targets {
		b.deliver(t.id, t.sink, ev)
	}
}

func (b *Broadcaster) ToRoomAll(room string, ev model.Event) {
	b.ToRoom(room, ev, uuid.Nil)
}

func (b *Broadcaster) deliver(connID uuid.UUID, sink Sink, ev model.Event) {
	if !sink.Send(ev) {
		metrics.BroadcastDropped.Inc()
		slog.Warn("skipping event - queue full or client slow",
			"conn_id", connID.String(),
			"type", ev.Type)
	}
}
