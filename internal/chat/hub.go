package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/auth"
	"github.com/johndosdos/chatroom/internal/metrics"
	"github.com/johndosdos/chatroom/internal/model"
	"github.com/microcosm-cc/bluemonday"
)

type sanitizer interface {
	Sanitize(s string) string
}

// HubConfig holds the tunables of a Hub.
type HubConfig struct {
	HistoryLimit      int
	StoreTimeout      time.Duration
	DefaultProfileURL string
	TokenSecret       string
	TokenTTL          time.Duration
}

// Hub coordinates sessions, room presence, routing and reactions for one
// server process. It is safe for concurrent use by every connection worker.
type Hub struct {
	store       Store
	registry    *Registry
	presence    *Presence
	broadcaster *Broadcaster
	sanitizer   sanitizer
	cfg         HubConfig
}

// NewHub returns a new instance of Hub.
func NewHub(store Store, cfg HubConfig) *Hub {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	presence := NewPresence()
	return &Hub{
		store:       store,
		registry:    NewRegistry(),
		presence:    presence,
		broadcaster: NewBroadcaster(presence),
		sanitizer:   bluemonday.StrictPolicy(),
		cfg:         cfg,
	}
}

func (h *Hub) Registry() *Registry       { return h.registry }
func (h *Hub) Presence() *Presence       { return h.presence }
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// Connect makes a freshly opened connection reachable. It has no session
// until it logs in.
func (h *Hub) Connect(connID uuid.UUID, sink Sink) {
	h.broadcaster.Attach(connID, sink)
	metrics.Connections.Inc()
}

// Disconnect runs the departure sequence for connID and forgets its sink.
// It is safe to call more than once.
func (h *Hub) Disconnect(connID uuid.UUID) {
	h.Leave(connID)
	h.broadcaster.Detach(connID)
	metrics.Connections.Dec()
}

// Join creates the session of connID, announces it to the room and pushes
// recent history to the new member.
func (h *Hub) Join(ctx context.Context, connID uuid.UUID, nickname, room string) (Session, error) {
	nickname = strings.TrimSpace(h.sanitizer.Sanitize(nickname))
	room = strings.TrimSpace(h.sanitizer.Sanitize(room))
	if nickname == "" || room == "" {
		return Session{}, fmt.Errorf("%w: nickname and room are required", ErrMissingField)
	}

	// Create below is the authoritative check.
	if _, ok := h.registry.Lookup(connID); ok {
		return Session{}, ErrDuplicateConnection
	}

	profileURL := h.loadProfile(ctx, nickname)

	s, err := h.registry.Create(connID, nickname, room, profileURL)
	if err != nil {
		return Session{}, err
	}
	metrics.Sessions.Inc()

	token, err := auth.MakeUploadToken(connID, s.TokenID, h.cfg.TokenSecret, h.cfg.TokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue upload token",
			"error", err,
			"conn_id", connID.String())
	}

	users := h.presence.Join(room, connID, nickname)

	h.broadcaster.ToConnection(connID, model.Event{
		Type:       model.TypeLoginSuccess,
		Room:       room,
		Nickname:   nickname,
		ProfileURL: profileURL,
		Token:      token,
	})
	h.broadcaster.ToRoomAll(room, model.Event{
		Type:  model.TypePresence,
		Room:  room,
		Users: users,
	})
	h.broadcaster.ToRoom(room, model.Event{
		Type:     model.TypeNotification,
		Room:     room,
		Nickname: nickname,
		Text:     nickname + " joined the room",
	}, connID)

	slog.InfoContext(ctx, "user joined",
		"nickname", nickname,
		"room", room,
		"conn_id", connID.String())

	if _, err := h.History(ctx, connID, h.cfg.HistoryLimit); err != nil {
		slog.WarnContext(ctx, "failed to push history on join",
			"error", err,
			"room", room)
	}

	return s, nil
}

// loadProfile returns the stored profile image of nickname, creating the
// profile with the default image on first login. Store failures fall back to
// the default image.
func (h *Hub) loadProfile(ctx context.Context, nickname string) string {
	sctx, cancel := h.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	url, found, err := h.store.GetProfile(sctx, nickname)
	observe("get_profile", start, err)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load profile",
			"error", err,
			"nickname", nickname)
		return h.cfg.DefaultProfileURL
	}
	if found {
		return url
	}

	start = time.Now()
	err = h.store.UpsertProfile(sctx, nickname, h.cfg.DefaultProfileURL)
	observe("upsert_profile", start, err)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create profile",
			"error", err,
			"nickname", nickname)
	}
	return h.cfg.DefaultProfileURL
}

// Leave destroys the session of connID, clears its typing state unless
// another session with the same nickname remains in the room, and announces
// the departure. It reports false if there was no session, so
// concurrent callers run the sequence exactly once.
func (h *Hub) Leave(connID uuid.UUID) bool {
	s, ok := h.registry.Destroy(connID)
	if !ok {
		return false
	}
	metrics.Sessions.Dec()

	users, typing, changed := h.presence.Depart(s.Room, connID, s.Nickname)

	if changed {
		h.broadcaster.ToRoomAll(s.Room, model.Event{
			Type:   model.TypeTyping,
			Room:   s.Room,
			Typing: typing,
		})
	}
	h.broadcaster.ToRoomAll(s.Room, model.Event{
		Type:  model.TypePresence,
		Room:  s.Room,
		Users: users,
	})
	h.broadcaster.ToRoomAll(s.Room, model.Event{
		Type:     model.TypeNotification,
		Room:     s.Room,
		Nickname: s.Nickname,
		Text:     s.Nickname + " left the room",
	})

	slog.Info("user left",
		"nickname", s.Nickname,
		"room", s.Room,
		"conn_id", connID.String())
	return true
}

// SetTyping records a typing start or stop for the session of connID and
// broadcasts the room's typing set when it changed.
func (h *Hub) SetTyping(connID uuid.UUID, isTyping bool) error {
	s, ok := h.registry.Lookup(connID)
	if !ok {
		return ErrNoSession
	}

	typing, changed := h.presence.SetTyping(s.Room, s.Nickname, isTyping)
	if changed {
		h.broadcaster.ToRoomAll(s.Room, model.Event{
			Type:   model.TypeTyping,
			Room:   s.Room,
			Typing: typing,
		})
	}
	return nil
}

// History pushes the most recent messages of the caller's room to the
// caller, oldest first.
func (h *Hub) History(ctx context.Context, connID uuid.UUID, limit int) ([]model.Message, error) {
	s, ok := h.registry.Lookup(connID)
	if !ok {
		return nil, ErrNoSession
	}

	msgs, err := h.RoomHistory(ctx, s.Room, limit)
	if err != nil {
		return nil, err
	}

	h.broadcaster.ToConnection(connID, model.Event{
		Type:     model.TypePastMessages,
		Room:     s.Room,
		Messages: msgs,
	})
	return msgs, nil
}

// RoomHistory returns up to limit recent messages of room, oldest first.
// Limits outside (0, HistoryLimit] are clamped to HistoryLimit.
func (h *Hub) RoomHistory(ctx context.Context, room string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > h.cfg.HistoryLimit {
		limit = h.cfg.HistoryLimit
	}

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	msgs, err := h.store.RecentMessages(sctx, room, limit)
	observe("recent_messages", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: recent messages: %w", ErrStore, err)
	}
	return msgs, nil
}

func (h *Hub) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.cfg.StoreTimeout)
}

func observe(op string, start time.Time, err error) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}
