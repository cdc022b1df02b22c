package gateway

import (
	"errors"
	"sync"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/metrics"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/routing"
)

var errNotConnected = errors.New("connection not registered")

// Rooms is the process-local registry of live connections and their room
// memberships. It backs both sides of the routing contract: the membership
// view and the delivery sink.
type Rooms struct {
	mu      sync.RWMutex
	clients map[string]*client             // connID -> client
	members map[string]map[string]string   // room -> connID -> userID
	joined  map[string]map[string]struct{} // connID -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		clients: make(map[string]*client),
		members: make(map[string]map[string]string),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (rm *Rooms) register(c *client) {
	rm.mu.Lock()
	rm.clients[c.id] = c
	rm.mu.Unlock()
	metrics.ConnectedClients.Inc()
}

// unregister removes the connection and returns the rooms it belonged to,
// so the gateway can announce the departure to each.
func (rm *Rooms) unregister(connID string) []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.clients[connID]; !ok {
		return nil
	}
	delete(rm.clients, connID)
	metrics.ConnectedClients.Dec()

	var rooms []string
	for room := range rm.joined[connID] {
		rooms = append(rooms, room)
		rm.dropMember(room, connID)
	}
	delete(rm.joined, connID)
	return rooms
}

func (rm *Rooms) Join(room, connID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	c, ok := rm.clients[connID]
	if !ok {
		return
	}
	if rm.members[room] == nil {
		rm.members[room] = make(map[string]string)
	}
	if _, already := rm.members[room][connID]; already {
		return
	}
	rm.members[room][connID] = c.userID
	if rm.joined[connID] == nil {
		rm.joined[connID] = make(map[string]struct{})
	}
	rm.joined[connID][room] = struct{}{}
	metrics.RoomMembers.Inc()
}

// leave detaches one connection from one room. The wire surface has no
// leave message; disconnect teardown is the usual exit path.
func (rm *Rooms) leave(room, connID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.dropMember(room, connID)
	if set := rm.joined[connID]; set != nil {
		delete(set, room)
	}
}

// dropMember removes connID from a room; callers hold the lock.
func (rm *Rooms) dropMember(room, connID string) {
	conns, ok := rm.members[room]
	if !ok {
		return
	}
	if _, member := conns[connID]; !member {
		return
	}
	delete(conns, connID)
	metrics.RoomMembers.Dec()
	if len(conns) == 0 {
		delete(rm.members, room)
	}
}

// IsMember reports whether connID has joined room.
func (rm *Rooms) IsMember(room, connID string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.members[room][connID]
	return ok
}

// Members returns a snapshot of the room's membership.
func (rm *Rooms) Members(room string) []routing.Member {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	conns := rm.members[room]
	out := make([]routing.Member, 0, len(conns))
	for connID, userID := range conns {
		out = append(out, routing.Member{ConnID: connID, UserID: userID})
	}
	return out
}

// Send delivers one event to one connection.
func (rm *Rooms) Send(connID string, event any) error {
	rm.mu.RLock()
	c, ok := rm.clients[connID]
	rm.mu.RUnlock()
	if !ok {
		return errNotConnected
	}
	return c.sendJSON(event)
}
