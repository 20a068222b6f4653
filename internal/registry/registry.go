// Package registry is the authoritative in-memory store of authenticated
// agents and room membership. All state is process-lifetime; nothing is
// persisted.
package registry

import "sync"

// Sender delivers outbound frames to one agent's connection. The registry
// never sends itself; it only hands connections back to the router.
type Sender interface {
	Send(v any) error
	Close() error
}

// Agent is one authenticated peer.
type Agent struct {
	ID   string
	Name string
	Conn Sender
}

// Info is a roster entry.
type Info struct {
	ID   string
	Name string
}

// Registry maps agent identity to connection and tracks room membership.
// A single mutex serializes every operation, so removal, room changes,
// and delivery snapshots never observe a half-updated state.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	rooms  map[string]map[string]struct{} // room name -> member identities
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		agents: make(map[string]*Agent),
		rooms:  make(map[string]map[string]struct{}),
	}
}

// Authenticate inserts or overwrites the agent keyed by id. When the
// identity is already connected the prior session is evicted: its room
// memberships are stripped and its record replaced, and the prior agent
// is returned so the caller can close its connection. Returns nil when
// the identity was free.
func (r *Registry) Authenticate(id, name string, conn Sender) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.agents[id]
	if prior != nil {
		r.stripFromRoomsLocked(id)
	}
	r.agents[id] = &Agent{ID: id, Name: name, Conn: conn}
	return prior
}

// Lookup returns the agent for id, or nil.
func (r *Registry) Lookup(id string) *Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[id]
}

// Count returns the number of connected agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Agents returns the current roster. Order is not specified.
func (r *Registry) Agents() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, Info{ID: a.ID, Name: a.Name})
	}
	return out
}

// AgentsExcept returns a delivery snapshot of every agent but excludeID.
func (r *Registry) AgentsExcept(excludeID string) []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if a.ID != excludeID {
			out = append(out, a)
		}
	}
	return out
}

// JoinRoom adds id to the room's member set, creating the room lazily.
func (r *Registry) JoinRoom(room, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
}

// LeaveRoom removes id from the room. Leaving a room that does not exist
// or was never joined is a no-op. Returns whether the room existed.
func (r *Registry) LeaveRoom(room, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	delete(members, id)
	return true
}

// InRoom reports whether id is a member of room.
func (r *Registry) InRoom(room, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	_, in := members[id]
	return in
}

// RoomMembersExcept returns a delivery snapshot of the room's live agents,
// excluding excludeID. Member identities without a live agent record are
// skipped.
func (r *Registry) RoomMembersExcept(room, excludeID string) []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]*Agent, 0, len(members))
	for id := range members {
		if id == excludeID {
			continue
		}
		if a, ok := r.agents[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Rooms returns the names of every room seen so far, including ones that
// have emptied out. Order is not specified.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		out = append(out, name)
	}
	return out
}

// Remove deletes the agent and strips it from every room in a single
// critical section, so concurrent deliveries see either the full session
// or none of it. Returns the removed agent, or nil if id was not present.
func (r *Registry) Remove(id string) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return nil
	}
	delete(r.agents, id)
	r.stripFromRoomsLocked(id)
	return a
}

// RemoveConn is Remove restricted to a specific connection: the agent is
// removed only while the registry still maps id to conn. A session that
// was evicted by a newer one therefore cannot tear down its successor on
// disconnect.
func (r *Registry) RemoveConn(id string, conn Sender) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok || a.Conn != conn {
		return nil
	}
	delete(r.agents, id)
	r.stripFromRoomsLocked(id)
	return a
}

func (r *Registry) stripFromRoomsLocked(id string) {
	for _, members := range r.rooms {
		delete(members, id)
	}
}
