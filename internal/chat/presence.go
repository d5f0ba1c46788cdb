package chat

import (
	"sync"

	"github.com/google/uuid"
)

type member struct {
	connID   uuid.UUID
	nickname string
}

type roomState struct {
	mu      sync.Mutex
	members []member // join order
	typing  map[string]struct{}
	// closed is set once the room has been removed from Presence.rooms.
	// Holders of a stale pointer must fetch the room again.
	closed bool
}

// Presence tracks which connections are in which room and who is typing.
// Each room is guarded by its own mutex so that busy rooms do not stall
// quiet ones.
type Presence struct {
	mu    sync.Mutex
	rooms map[string]*roomState
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[string]*roomState)}
}

func (p *Presence) getOrCreate(room string) *roomState {
	p.mu.Lock()
	defer p.mu.Unlock()

	rs, ok := p.rooms[room]
	if !ok {
		rs = &roomState{typing: make(map[string]struct{})}
		p.rooms[room] = rs
	}
	return rs
}

func (p *Presence) get(room string) *roomState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rooms[room]
}

// lockRoom returns the live state of room with its mutex held.
func (p *Presence) lockRoom(room string) *roomState {
	for {
		rs := p.getOrCreate(room)
		rs.mu.Lock()
		if !rs.closed {
			return rs
		}
		rs.mu.Unlock()
	}
}

// closeIfEmpty must be called with rs.mu held.
func (p *Presence) closeIfEmpty(room string, rs *roomState) {
	if len(rs.members) > 0 || len(rs.typing) > 0 {
		return
	}
	rs.closed = true
	p.mu.Lock()
	if p.rooms[room] == rs {
		delete(p.rooms, room)
	}
	p.mu.Unlock()
}

// Join adds connID to room and returns the room's member nicknames.
func (p *Presence) Join(room string, connID uuid.UUID, nickname string) []string {
	rs := p.lockRoom(room)
	defer rs.mu.Unlock()

	for _, m := range rs.members {
		if m.connID == connID {
			return rs.nicknames()
		}
	}
	rs.members = append(rs.members, member{connID: connID, nickname: nickname})
	return rs.nicknames()
}

// Leave removes connID from room and returns the remaining member nicknames.
// Leaving an unknown room yields an empty list.
func (p *Presence) Leave(room string, connID uuid.UUID) []string {
	rs := p.get(room)
	if rs == nil {
		return []string{}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return []string{}
	}

	rs.remove(connID)
	list := rs.nicknames()
	p.closeIfEmpty(room, rs)
	return list
}

// Depart removes connID from room and, if no other member of the room
// shares nickname, drops nickname from the typing set. It returns the
// remaining members, the typing set and whether the typing set changed.
func (p *Presence) Depart(room string, connID uuid.UUID, nickname string) (users, typing []string, typingChanged bool) {
	rs := p.get(room)
	if rs == nil {
		return []string{}, []string{}, false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return []string{}, []string{}, false
	}

	rs.remove(connID)
	if _, ok := rs.typing[nickname]; ok && !rs.hasNickname(nickname) {
		delete(rs.typing, nickname)
		typingChanged = true
	}

	users = rs.nicknames()
	typing = rs.typingList()
	p.closeIfEmpty(room, rs)
	return users, typing, typingChanged
}

// SetTyping adds or removes nickname from room's typing set. It returns the
// resulting set and whether anything changed; repeating the current state
// is a no-op.
func (p *Presence) SetTyping(room, nickname string, isTyping bool) ([]string, bool) {
	var rs *roomState
	if isTyping {
		rs = p.lockRoom(room)
	} else {
		rs = p.get(room)
		if rs == nil {
			return []string{}, false
		}
		rs.mu.Lock()
		if rs.closed {
			rs.mu.Unlock()
			return []string{}, false
		}
	}
	defer rs.mu.Unlock()

	_, already := rs.typing[nickname]
	if already == isTyping {
		return rs.typingList(), false
	}
	if isTyping {
		rs.typing[nickname] = struct{}{}
	} else {
		delete(rs.typing, nickname)
	}
	list := rs.typingList()
	if !isTyping {
		p.closeIfEmpty(room, rs)
	}
	return list, true
}

// Members returns the connection ids currently in room.
func (p *Presence) Members(room string) []uuid.UUID {
	rs := p.get(room)
	if rs == nil {
		return nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(rs.members))
	for _, m := range rs.members {
		ids = append(ids, m.connID)
	}
	return ids
}

// Nicknames returns room's member list without modifying it.
func (p *Presence) Nicknames(room string) []string {
	rs := p.get(room)
	if rs == nil {
		return []string{}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.nicknames()
}

// Typing returns room's typing set.
func (p *Presence) Typing(room string) []string {
	rs := p.get(room)
	if rs == nil {
		return []string{}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.typingList()
}

func (rs *roomState) remove(connID uuid.UUID) {
	for i, m := range rs.members {
		if m.connID == connID {
			rs.members = append(rs.members[:i], rs.members[i+1:]...)
			return
		}
	}
}

func (rs *roomState) hasNickname(nickname string) bool {
	for _, m := range rs.members {
		if m.nickname == nickname {
			return true
		}
	}
	return false
}

// nicknames de-duplicates by nickname while keeping first-join order.
func (rs *roomState) nicknames() []string {
	seen := make(map[string]struct{}, len(rs.members))
	out := make([]string, 0, len(rs.members))
	for _, m := range rs.members {
		if _, ok := seen[m.nickname]; ok {
			continue
		}
		seen[m.nickname] = struct{}{}
		out = append(out, m.nickname)
	}
	return out
}

func (rs *roomState) typingList() []string {
	out := make([]string, 0, len(rs.typing))
	for _, m := range rs.members {
		if _, ok := rs.typing[m.nickname]; ok && !contains(out, m.nickname) {
			out = append(out, m.nickname)
		}
	}
	// Typists that are not members (e.g. signalled after leaving) still count.
	for n := range rs.typing {
		if !contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
