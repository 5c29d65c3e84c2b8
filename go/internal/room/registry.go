package room

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

const (
	// IDAlphabet leaves out characters that are easy to confuse when typed (0/O, 1/I).
	IDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	IDLength   = 6

	maxIDAttempts = 32
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrIDExhausted  = errors.New("could not allocate a unique room id")
)

// IDGenerator returns a candidate room id. Collisions are retried by the registry.
type IDGenerator func() string

// RandomID draws IDLength characters from IDAlphabet.
func RandomID() string {
	var b strings.Builder
	b.Grow(IDLength)
	for i := 0; i < IDLength; i++ {
		b.WriteByte(IDAlphabet[rand.IntN(len(IDAlphabet))])
	}
	return b.String()
}

// DefaultDisplayName is the placeholder used when a connection supplies no name.
func DefaultDisplayName(connID string) string {
	prefix := connID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "Player-" + prefix
}

type entry struct {
	room Room
	seq  uint64
}

// Registry owns the set of active rooms and their membership. It knows nothing
// about game logic. Every method touches at most one room.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*entry
	memberships map[string]map[string]struct{} // conn id -> room ids
	seq         uint64

	maxPlayers int
	newID      IDGenerator
}

// Option configures a Registry
type Option func(*Registry)

// WithIDGenerator replaces the random id source, mostly for tests.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// NewRegistry creates an empty registry whose rooms hold at most maxPlayers.
func NewRegistry(maxPlayers int, opts ...Option) *Registry {
	r := &Registry{
		rooms:       make(map[string]*entry),
		memberships: make(map[string]map[string]struct{}),
		maxPlayers:  maxPlayers,
		newID:       RandomID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens a new room with the host as its only player.
func (r *Registry) Create(name, hostConnID, hostDisplayName string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ""
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := r.newID()
		if _, taken := r.rooms[candidate]; !taken && candidate != "" {
			id = candidate
			break
		}
	}
	if id == "" {
		return Room{}, fmt.Errorf("create room after %d attempts: %w", maxIDAttempts, ErrIDExhausted)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Room-" + id
	}

	rm := Room{
		ID:         id,
		Name:       name,
		Players:    []Player{{ConnID: hostConnID, DisplayName: displayName(hostConnID, hostDisplayName)}},
		MaxPlayers: r.maxPlayers,
		HostID:     hostConnID,
	}
	r.seq++
	r.rooms[id] = &entry{room: rm, seq: r.seq}
	r.addMembership(hostConnID, id)

	return rm.clone(), nil
}

// Join seats connID in the room. Joining a room the connection is already in
// returns the current room with joined=false and changes nothing.
func (r *Registry) Join(roomID, connID, name string) (Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false, ErrRoomNotFound
	}
	if e.room.HasMember(connID) {
		return e.room.clone(), false, nil
	}
	if len(e.room.Players) >= e.room.MaxPlayers {
		return e.room.clone(), false, ErrRoomFull
	}

	e.room.Players = append(e.room.Players, Player{ConnID: connID, DisplayName: displayName(connID, name)})
	r.addMembership(connID, roomID)
	return e.room.clone(), true, nil
}

// Leave removes connID from one room, handing the host role to the
// longest-tenured remaining player and deleting the room once it is empty.
func (r *Registry) Leave(roomID, connID string) (rm Room, removed bool, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false, false
	}
	idx := e.room.indexOf(connID)
	if idx < 0 {
		return e.room.clone(), false, false
	}

	e.room.Players = append(e.room.Players[:idx], e.room.Players[idx+1:]...)
	r.dropMembership(connID, roomID)

	if len(e.room.Players) == 0 {
		delete(r.rooms, roomID)
		e.room.HostID = ""
		return e.room.clone(), true, true
	}
	if e.room.HostID == connID {
		e.room.HostID = e.room.Players[0].ConnID
	}
	return e.room.clone(), true, false
}

// LeaveAll removes connID from every room it belongs to and returns the ids of
// rooms that still exist and were changed. Rooms are handled one at a time.
func (r *Registry) LeaveAll(connID string) []string {
	var affected []string
	for _, id := range r.RoomsOf(connID) {
		if _, removed, deleted := r.Leave(id, connID); removed && !deleted {
			affected = append(affected, id)
		}
	}
	return affected
}

// RoomsOf lists the rooms connID is seated in, sorted by id.
func (r *Registry) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.memberships[connID]))
	for id := range r.memberships[connID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Find returns a copy of the room
func (r *Registry) Find(roomID string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return e.room.clone(), true
}

// ListPublic projects every room for lobby browsing, oldest first.
func (r *Registry) ListPublic() []Summary {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.rooms))
	for _, e := range r.rooms {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.room.summary())
	}
	r.mu.RUnlock()
	return out
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) addMembership(connID, roomID string) {
	set, ok := r.memberships[connID]
	if !ok {
		set = make(map[string]struct{})
		r.memberships[connID] = set
	}
	set[roomID] = struct{}{}
}

func (r *Registry) dropMembership(connID, roomID string) {
	set, ok := r.memberships[connID]
	if !ok {
		return
	}
	delete(set, roomID)
	if len(set) == 0 {
		delete(r.memberships, connID)
	}
}

func displayName(connID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName(connID)
	}
	return name
}
