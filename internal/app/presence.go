package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/domain"
)

// Presence is the in-memory room membership store. It keeps both
// directions (room -> endpoints and endpoint -> rooms) so disconnect
// cleanup can walk an endpoint's rooms without scanning everything.
// Both maps are mutated inside one critical section per call; nothing
// survives a process restart, clients re-join on reconnect.
type Presence struct {
	mu      sync.RWMutex
	members map[domain.RoomID]map[domain.EndpointID]struct{}
	rooms   map[domain.EndpointID]map[domain.RoomID]struct{}
	users   map[domain.EndpointID]domain.UserID
}

func NewPresence() *Presence {
	return &Presence{
		members: make(map[domain.RoomID]map[domain.EndpointID]struct{}),
		rooms:   make(map[domain.EndpointID]map[domain.RoomID]struct{}),
		users:   make(map[domain.EndpointID]domain.UserID),
	}
}

// AddMember records ep in roomID. Returns false when it already was a
// member, so the caller can skip duplicate broadcasts.
func (p *Presence) AddMember(roomID domain.RoomID, ep domain.EndpointID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.members[roomID]
	if !ok {
		set = make(map[domain.EndpointID]struct{})
		p.members[roomID] = set
	}
	if _, dup := set[ep]; dup {
		return false
	}
	set[ep] = struct{}{}
	byEp, ok := p.rooms[ep]
	if !ok {
		byEp = make(map[domain.RoomID]struct{})
		p.rooms[ep] = byEp
	}
	byEp[roomID] = struct{}{}
	log.Debug().Str("module", "app.presence").Str("room", string(roomID)).Str("ep", string(ep)).Msg("member added")
	return true
}

// RemoveMember reports whether ep actually was a member, letting the
// gateway decide whether to broadcast. Empty rooms are dropped.
func (p *Presence) RemoveMember(roomID domain.RoomID, ep domain.EndpointID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(roomID, ep)
}

func (p *Presence) removeLocked(roomID domain.RoomID, ep domain.EndpointID) bool {
	set, ok := p.members[roomID]
	if !ok {
		return false
	}
	if _, member := set[ep]; !member {
		return false
	}
	delete(set, ep)
	if len(set) == 0 {
		delete(p.members, roomID)
	}
	if byEp, ok := p.rooms[ep]; ok {
		delete(byEp, roomID)
		if len(byEp) == 0 {
			delete(p.rooms, ep)
		}
	}
	log.Debug().Str("module", "app.presence").Str("room", string(roomID)).Str("ep", string(ep)).Msg("member removed")
	return true
}

func (p *Presence) MembersOf(roomID domain.RoomID) []domain.EndpointID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.EndpointID, 0, len(p.members[roomID]))
	for ep := range p.members[roomID] {
		out = append(out, ep)
	}
	return out
}

func (p *Presence) RoomsOf(ep domain.EndpointID) []domain.RoomID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(p.rooms[ep]))
	for id := range p.rooms[ep] {
		out = append(out, id)
	}
	return out
}

func (p *Presence) IsMember(roomID domain.RoomID, ep domain.EndpointID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.members[roomID][ep]
	return ok
}

func (p *Presence) SetUser(ep domain.EndpointID, userID domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[ep] = userID
}

func (p *Presence) UserOf(ep domain.EndpointID) (domain.UserID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[ep]
	return u, ok
}

// DropEndpoint removes every trace of ep and returns the rooms it was
// still a member of, for the caller's departure broadcasts.
func (p *Presence) DropEndpoint(ep domain.EndpointID) []domain.RoomID {
	p.mu.Lock()
	defer p.mu.Unlock()
	rooms := make([]domain.RoomID, 0, len(p.rooms[ep]))
	for id := range p.rooms[ep] {
		rooms = append(rooms, id)
	}
	for _, id := range rooms {
		p.removeLocked(id, ep)
	}
	delete(p.rooms, ep)
	delete(p.users, ep)
	return rooms
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
}

func (p *Presence) Snapshot() []RoomInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]RoomInfo, 0, len(p.members))
	for id, set := range p.members {
		out = append(out, RoomInfo{ID: id, MemberCount: len(set)})
	}
	return out
}
