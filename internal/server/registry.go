package server

import (
	"log/slog"
	"sync"
)

// Registry tracks which connections have joined which rooms, and which
// connection answers for a user identity in the signaling namespace. A room
// exists only while at least one connection is joined to it.
type Registry struct {
	log    *slog.Logger
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	joined map[*Client]map[string]struct{}
	signal map[string]*Client
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:    log,
		rooms:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
		signal: make(map[string]*Client),
	}
}

// Join adds c to roomId. Joining twice is a no-op; the result reports
// whether the membership is new.
func (r *Registry) Join(c *Client, roomId string) bool {
	if roomId == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomId]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[roomId] = members
		r.log.Debug("room created", "room", roomId)
	}

	if _, ok := members[c]; ok {
		return false
	}
	members[c] = struct{}{}

	rooms, ok := r.joined[c]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[c] = rooms
	}
	rooms[roomId] = struct{}{}

	return true
}

func (r *Registry) Leave(c *Client, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leave(c, roomId)
}

func (r *Registry) leave(c *Client, roomId string) {
	if members, ok := r.rooms[roomId]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomId)
			r.log.Debug("room released", "room", roomId)
		}
	}

	if rooms, ok := r.joined[c]; ok {
		delete(rooms, roomId)
		if len(rooms) == 0 {
			delete(r.joined, c)
		}
	}
}

// MembersOf returns a snapshot of the connections joined to roomId.
func (r *Registry) MembersOf(roomId string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomId]
	clients := make([]*Client, 0, len(members))
	for c := range members {
		clients = append(clients, c)
	}

	return clients
}

// RoomsOf returns the rooms c is joined to.
func (r *Registry) RoomsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.joined[c]))
	for id := range r.joined[c] {
		rooms = append(rooms, id)
	}

	return rooms
}

// OnDisconnect releases every room membership and signaling registration
// held by c. It returns the number of rooms c was removed from.
func (r *Registry) OnDisconnect(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.joined[c]
	n := len(rooms)
	for id := range rooms {
		r.leave(c, id)
	}

	for userId, sc := range r.signal {
		if sc == c {
			delete(r.signal, userId)
		}
	}

	return n
}

// RegisterSignal makes c the connection that receives signaling addressed
// to userId, replacing any previous one.
func (r *Registry) RegisterSignal(userId string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.signal[userId] = c
}

// UnregisterSignal drops the registration for userId if it still points
// at c.
func (r *Registry) UnregisterSignal(userId string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.signal[userId] == c {
		delete(r.signal, userId)
	}
}

func (r *Registry) LookupSignal(userId string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.signal[userId]
	return c, ok
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
