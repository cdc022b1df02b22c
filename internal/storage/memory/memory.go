// Package memory provides process-local implementations of the storage
// ports. They back the unit tests and the --memory demo mode; the
// production path is the postgres package.
package memory

import (
	"context"
	"sync"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// RideStore keeps rides in a map guarded per ride, mirroring the row-lock
// semantics of the postgres store: mutations on one ride serialize, rides
// never contend with each other.
type RideStore struct {
	mu    sync.RWMutex
	rides map[string]*rideEntry
}

type rideEntry struct {
	mu   sync.Mutex
	ride *ride.Ride
}

// NewRideStore constructs an empty in-memory ride store.
func NewRideStore() *RideStore {
	return &RideStore{rides: make(map[string]*rideEntry)}
}

// Create stores a copy of the ride.
func (store *RideStore) Create(_ context.Context, r *ride.Ride) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.rides[r.ID] = &rideEntry{ride: clone(r)}
	return nil
}

// Get returns a copy of the ride or ride.ErrRideNotFound.
func (store *RideStore) Get(_ context.Context, id string) (*ride.Ride, error) {
	store.mu.RLock()
	entry, ok := store.rides[id]
	store.mu.RUnlock()
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return clone(entry.ride), nil
}

// Mutate applies fn to a working copy under the ride's lock and commits it
// only when fn succeeds.
func (store *RideStore) Mutate(_ context.Context, id string, fn func(*ride.Ride) error) (*ride.Ride, error) {
	store.mu.RLock()
	entry, ok := store.rides[id]
	store.mu.RUnlock()
	if !ok {
		return nil, ride.ErrRideNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := clone(entry.ride)
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.ride = working
	return clone(working), nil
}

func clone(r *ride.Ride) *ride.Ride {
	out := *r
	if r.Stops != nil {
		out.Stops = append([]geo.Waypoint(nil), r.Stops...)
	}
	if r.Passengers != nil {
		out.Passengers = append([]ride.Passenger(nil), r.Passengers...)
	}
	if r.AuditHistory != nil {
		out.AuditHistory = append([]ride.AuditEntry(nil), r.AuditHistory...)
	}
	return &out
}

// BlockRegistry keeps pairwise blocks in memory.
type BlockRegistry struct {
	mu    sync.RWMutex
	pairs map[[2]string]bool
}

// NewBlockRegistry constructs an empty in-memory block registry.
func NewBlockRegistry() *BlockRegistry {
	return &BlockRegistry{pairs: make(map[[2]string]bool)}
}

// Block records an active block between a and b.
func (registry *BlockRegistry) Block(a, b string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.pairs[pairKey(a, b)] = true
}

// Unblock clears the block between a and b.
func (registry *BlockRegistry) Unblock(a, b string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.pairs, pairKey(a, b))
}

// Exists reports whether an active block exists for the unordered pair.
func (registry *BlockRegistry) Exists(_ context.Context, a, b string) (bool, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.pairs[pairKey(a, b)], nil
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// VehicleRegistry holds vehicle facts keyed by id.
type VehicleRegistry struct {
	mu       sync.RWMutex
	vehicles map[string]ride.Vehicle
}

// NewVehicleRegistry constructs an empty in-memory vehicle registry.
func NewVehicleRegistry() *VehicleRegistry {
	return &VehicleRegistry{vehicles: make(map[string]ride.Vehicle)}
}

// Put registers or replaces vehicle facts.
func (registry *VehicleRegistry) Put(v ride.Vehicle) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.vehicles[v.ID] = v
}

// Get fetches vehicle facts; a missing vehicle maps to ErrInvalidVehicle.
func (registry *VehicleRegistry) Get(_ context.Context, vehicleID string) (ride.Vehicle, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	v, ok := registry.vehicles[vehicleID]
	if !ok {
		return ride.Vehicle{}, ride.ErrInvalidVehicle
	}
	return v, nil
}

// SharingLog accumulates entries in memory.
type SharingLog struct {
	mu      sync.Mutex
	entries []ports.SharingEntry
}

// NewSharingLog constructs an empty in-memory sharing log.
func NewSharingLog() *SharingLog {
	return &SharingLog{}
}

// Append records one entry.
func (log *SharingLog) Append(_ context.Context, entry ports.SharingEntry) error {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.entries = append(log.entries, entry)
	return nil
}

// Entries returns a copy of everything appended so far.
func (log *SharingLog) Entries() []ports.SharingEntry {
	log.mu.Lock()
	defer log.mu.Unlock()
	return append([]ports.SharingEntry(nil), log.entries...)
}
