package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the live binding between one connection and the nickname and
// room it logged in with. Sessions are identified by connection, not by
// nickname: several connections may share a nickname and therefore a profile.
type Session struct {
	ConnID     uuid.UUID
	Nickname   string
	Room       string
	ProfileURL string
	TokenID    string
	CreatedAt  time.Time

	seq uint64
}

// Registry maps live connections to their sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	nextSeq  uint64
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Create registers a session for connID. A second login on the same
// connection is rejected rather than merged.
func (r *Registry) Create(connID uuid.UUID, nickname, room, profileURL string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; ok {
		return Session{}, ErrDuplicateConnection
	}

	r.nextSeq++
	s := &Session{
		ConnID:     connID,
		Nickname:   nickname,
		Room:       room,
		ProfileURL: profileURL,
		TokenID:    uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		seq:        r.nextSeq,
	}
	r.sessions[connID] = s

	return *s, nil
}

func (r *Registry) Lookup(connID uuid.UUID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Destroy removes and returns the session of connID. Only the first call for
// a connection reports ok, which makes departure handling run once.
func (r *Registry) Destroy(connID uuid.UUID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, connID)
	return *s, true
}

// FindByNickname resolves a nickname to the most recently joined session
// holding it.
func (r *Registry) FindByNickname(nickname string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Session
	for _, s := range r.sessions {
		if s.Nickname != nickname {
			continue
		}
		if best == nil || s.seq > best.seq {
			best = s
		}
	}
	if best == nil {
		return Session{}, false
	}
	return *best, true
}

// SetProfileURL updates the profile image of a live session.
func (r *Registry) SetProfileURL(connID uuid.UUID, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return false
	}
	s.ProfileURL = url
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
