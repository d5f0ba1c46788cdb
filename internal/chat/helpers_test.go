package chat

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/model"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// memStore is an in-memory Store. Setting fail[op] makes that operation
// return the error.
type memStore struct {
	mu        sync.Mutex
	messages  []model.Message
	reactions map[int64]map[string]string
	profiles  map[string]string
	fail      map[string]error
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		reactions: make(map[int64]map[string]string),
		profiles:  make(map[string]string),
		fail:      make(map[string]error),
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) setFail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *memStore) InsertMessage(_ context.Context, nm model.NewMessage) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["insert_message"]; err != nil {
		return model.Message{}, err
	}

	s.clock = s.clock.Add(time.Second)
	m := model.Message{
		ID:            int64(len(s.messages) + 1),
		Room:          nm.Room,
		Nickname:      nm.Nickname,
		Body:          nm.Body,
		CreatedAt:     s.clock,
		FileURL:       nm.FileURL,
		IsImage:       nm.IsImage,
		ReplyToID:     nm.ReplyToID,
		ReplyNickname: nm.ReplyNickname,
		ReplySnippet:  nm.ReplySnippet,
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *memStore) RecentMessages(_ context.Context, room string, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["recent_messages"]; err != nil {
		return nil, err
	}

	var out []model.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if s.messages[i].Room == room {
			m := s.messages[i]
			m.ProfileURL = s.profiles[m.Nickname]
			out = append(out, m)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (s *memStore) GetMessage(_ context.Context, id int64) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["get_message"]; err != nil {
		return model.Message{}, err
	}
	if id <= 0 || id > int64(len(s.messages)) {
		return model.Message{}, ErrMessageNotFound
	}
	return s.messages[id-1], nil
}

func (s *memStore) UpsertReaction(_ context.Context, messageID int64, nickname, emoji string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["upsert_reaction"]; err != nil {
		return "", err
	}

	byNick, ok := s.reactions[messageID]
	if !ok {
		byNick = make(map[string]string)
		s.reactions[messageID] = byNick
	}
	prev := byNick[nickname]
	byNick[nickname] = emoji
	return prev, nil
}

func (s *memStore) CountReactions(_ context.Context, messageID int64, emoji string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["count_reactions"]; err != nil {
		return 0, err
	}

	n := 0
	for _, e := range s.reactions[messageID] {
		if e == emoji {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetProfile(_ context.Context, nickname string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["get_profile"]; err != nil {
		return "", false, err
	}
	url, ok := s.profiles[nickname]
	return url, ok, nil
}

func (s *memStore) UpsertProfile(_ context.Context, nickname, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["upsert_profile"]; err != nil {
		return err
	}
	s.profiles[nickname] = url
	return nil
}

func (s *memStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// recordingSink keeps every event it was sent.
type recordingSink struct {
	mu     sync.Mutex
	events []model.Event
	full   bool
}

func (s *recordingSink) Send(ev model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) all() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *recordingSink) ofType(typ string) []model.Event {
	var out []model.Event
	for _, ev := range s.all() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) last(t *testing.T, typ string) model.Event {
	t.Helper()
	evs := s.ofType(typ)
	require.NotEmpty(t, evs, "no %q event", typ)
	return evs[len(evs)-1]
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

const testSecret = "test-secret"

func newTestHub(t *testing.T) (*Hub, *memStore) {
	t.Helper()
	store := newMemStore()
	hub := NewHub(store, HubConfig{
		HistoryLimit:      50,
		StoreTimeout:      time.Second,
		DefaultProfileURL: "/static/default.png",
		TokenSecret:       testSecret,
		TokenTTL:          time.Hour,
	})
	return hub, store
}

func connect(h *Hub) (uuid.UUID, *recordingSink) {
	id := uuid.New()
	sink := &recordingSink{}
	h.Connect(id, sink)
	return id, sink
}

func login(t *testing.T, h *Hub, nickname, room string) (uuid.UUID, *recordingSink) {
	t.Helper()
	id, sink := connect(h)
	_, err := h.Join(context.Background(), id, nickname, room)
	require.NoError(t, err)
	return id, sink
}
