package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/auth"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/files"
	"github.com/johndosdos/chatroom/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
	ct   map[string]string
	fail bool
}

func newMemObjects() *memObjects {
	return &memObjects{data: map[string][]byte{}, ct: map[string]string{}}
}

func (m *memObjects) Put(_ context.Context, name string, data []byte, contentType string) (*files.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("boom")
	}
	m.data[name] = data
	m.ct[name] = contentType
	return &files.ObjectInfo{Name: name, Size: uint64(len(data)), ContentType: contentType, ModTime: time.Now()}, nil
}

func (m *memObjects) Get(_ context.Context, name string) ([]byte, *files.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[name]
	if !ok {
		return nil, nil, files.ErrNotFound
	}
	return data, &files.ObjectInfo{Name: name, Size: uint64(len(data)), ContentType: m.ct[name]}, nil
}

type memStore struct {
	mu       sync.Mutex
	messages []model.Message
	profiles map[string]string
}

func (s *memStore) InsertMessage(_ context.Context, nm model.NewMessage) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := model.Message{
		ID:        int64(len(s.messages) + 1),
		Room:      nm.Room,
		Nickname:  nm.Nickname,
		Body:      nm.Body,
		FileURL:   nm.FileURL,
		IsImage:   nm.IsImage,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *memStore) RecentMessages(_ context.Context, room string, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.Room == room {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) GetMessage(context.Context, int64) (model.Message, error) {
	return model.Message{}, errors.New("not found")
}

func (s *memStore) UpsertReaction(context.Context, int64, string, string) (string, error) {
	return "", nil
}

func (s *memStore) CountReactions(context.Context, int64, string) (int, error) { return 0, nil }

func (s *memStore) GetProfile(_ context.Context, nickname string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.profiles[nickname]
	return url, ok, nil
}

func (s *memStore) UpsertProfile(_ context.Context, nickname, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[nickname] = url
	return nil
}

type sink struct {
	mu     sync.Mutex
	events []model.Event
}

func (s *sink) Send(ev model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *sink) count(typ string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newTestHub(t *testing.T) (*chat.Hub, *memStore) {
	t.Helper()
	store := &memStore{profiles: map[string]string{}}
	return chat.NewHub(store, chat.HubConfig{TokenSecret: "secret", DefaultProfileURL: "/default.png"}), store
}

func join(t *testing.T, hub *chat.Hub, nickname, room string) (chat.Session, *sink) {
	t.Helper()
	id := uuid.New()
	sk := &sink{}
	hub.Connect(id, sk)
	s, err := hub.Join(context.Background(), id, nickname, room)
	require.NoError(t, err)
	return s, sk
}

func uploadRequest(t *testing.T, s *chat.Session, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s != nil {
		req = req.WithContext(context.WithValue(req.Context(), auth.SessionKey, *s))
	}
	return req
}

func TestServeUpload_Message(t *testing.T) {
	hub, store := newTestHub(t)
	objects := newMemObjects()
	s, annSink := join(t, hub, "ann", "lobby")
	_, bobSink := join(t, hub, "bob", "lobby")
	h := ServeUpload(hub, objects, 1<<20)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, &s, map[string]string{"caption": "look"}, "cat.png", pngHeader))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.IsImage)
	assert.Equal(t, int64(1), resp.MessageID)
	assert.Regexp(t, `^/files/[0-9a-f-]{36}\.png$`, resp.URL)

	require.Len(t, store.messages, 1)
	assert.Equal(t, "look", store.messages[0].Body)
	assert.Equal(t, resp.URL, store.messages[0].FileURL)
	assert.Equal(t, 1, annSink.count(model.TypeChatMessage))
	assert.Equal(t, 1, bobSink.count(model.TypeChatMessage))
}

func TestServeUpload_Profile(t *testing.T) {
	hub, store := newTestHub(t)
	objects := newMemObjects()
	s, _ := join(t, hub, "ann", "lobby")
	h := ServeUpload(hub, objects, 1<<20)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, &s, map[string]string{"kind": KindProfile}, "me.png", pngHeader))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, resp.URL, store.profiles["ann"])

	live, _ := hub.Registry().Lookup(s.ConnID)
	assert.Equal(t, resp.URL, live.ProfileURL)
	assert.Empty(t, store.messages)
}

func TestServeUpload_Rejections(t *testing.T) {
	hub, _ := newTestHub(t)
	s, _ := join(t, hub, "ann", "lobby")
	gone := chat.Session{ConnID: uuid.New(), Nickname: "ghost"}

	tests := []struct {
		name     string
		session  *chat.Session
		fields   map[string]string
		filename string
		data     []byte
		failPut  bool
		wantCode int
	}{
		{"no session in context", nil, nil, "a.png", pngHeader, false, http.StatusUnauthorized},
		{"unknown kind", &s, map[string]string{"kind": "avatar"}, "a.png", pngHeader, false, http.StatusBadRequest},
		{"missing file", &s, nil, "", nil, false, http.StatusBadRequest},
		{"empty file", &s, nil, "a.png", []byte{}, false, http.StatusBadRequest},
		{"too large", &s, nil, "a.bin", bytes.Repeat([]byte("x"), 2048), false, http.StatusRequestEntityTooLarge},
		{"profile must be image", &s, map[string]string{"kind": KindProfile}, "a.txt", []byte("hello"), false, http.StatusUnsupportedMediaType},
		{"store failure", &s, nil, "a.png", pngHeader, true, http.StatusInternalServerError},
		{"session closed", &gone, nil, "a.png", pngHeader, false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newMemObjects()
			objects.fail = tt.failPut
			h := ServeUpload(hub, objects, 1024)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, tt.session, tt.fields, tt.filename, tt.data))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestServeFile(t *testing.T) {
	objects := newMemObjects()
	_, err := objects.Put(context.Background(), "a.png", pngHeader, "image/png")
	require.NoError(t, err)
	_, err = objects.Put(context.Background(), "b.txt", []byte("hi"), "text/plain; charset=utf-8")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/files/{name}", ServeFile(objects))

	t.Run("image", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/a.png", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, pngHeader, rec.Body.Bytes())
	})

	t.Run("other files download", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/b.txt", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "attachment", rec.Header().Get("Content-Disposition"))
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServeRoomMessages(t *testing.T) {
	hub, _ := newTestHub(t)
	s, _ := join(t, hub, "ann", "lobby")
	for _, text := range []string{"one", "two", "three"} {
		_, err := hub.Route(context.Background(), s.ConnID, chat.Payload{Text: text})
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	r.Get("/rooms/{room}/messages", ServeRoomMessages(hub))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/lobby/messages?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp roomMessagesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "lobby", resp.Room)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "two", resp.Messages[0].Body)
	assert.Equal(t, "three", resp.Messages[1].Body)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/empty/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"room":"empty","messages":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/lobby/messages?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHealth(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	ServeHealth(map[string]Pinger{"db": ok}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"db":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ServeHealth(map[string]Pinger{"db": ok, "nats": down}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"db":"ok","nats":"down"}`, rec.Body.String())
}
