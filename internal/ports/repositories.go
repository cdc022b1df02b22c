package ports

import (
	"context"
	"time"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

// RideStore persists rides with their embedded passenger sub-records.
// The ride is the only atomic unit: all writes to a ride happen through
// Mutate, which must apply fn and persist the result as one conditional
// update. Implementations return ride.ErrConcurrencyConflict when a
// concurrent writer wins; callers retry.
type RideStore interface {
	Create(ctx context.Context, r *ride.Ride) error
	Get(ctx context.Context, id string) (*ride.Ride, error)
	Mutate(ctx context.Context, id string, fn func(*ride.Ride) error) (*ride.Ride, error)
}

// BlockRegistry answers the single question this core asks of the block
// subsystem: does an active block exist between the unordered pair (a, b).
type BlockRegistry interface {
	Exists(ctx context.Context, userA, userB string) (bool, error)
}

// VehicleRegistry supplies ownership and capacity facts at ride creation.
type VehicleRegistry interface {
	Get(ctx context.Context, vehicleID string) (ride.Vehicle, error)
}

// SharingAction is a start/stop marker in the sharing activity log.
type SharingAction string

const (
	SharingStarted SharingAction = "STARTED"
	SharingStopped SharingAction = "STOPPED"
)

// SharingEntry is one immutable row in the sharing activity log.
type SharingEntry struct {
	RideID    string
	UserID    string
	Action    SharingAction
	CreatedAt time.Time
}

// SharingLog is a fire-and-forget write sink for start/stop markers.
type SharingLog interface {
	Append(ctx context.Context, entry SharingEntry) error
}
