// Package geocache keeps the last known position of each ride participant
// in Redis. It is best-effort auxiliary state: routing never depends on it,
// and a cold cache only means a joiner starts without seeded markers.
package geocache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyTTL = 30 * time.Minute

// Position is one cached participant marker.
type Position struct {
	UserID    string  `json:"user_id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Positions stores per-ride participant markers using Redis GEO commands.
type Positions struct {
	client *redis.Client
}

// New constructs a Positions cache against the given Redis address.
func New(addr, password string) *Positions {
	return &Positions{client: redis.NewClient(&redis.Options{Addr: addr, Password: password})}
}

// Ping verifies connectivity.
func (p *Positions) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (p *Positions) Close() error {
	return p.client.Close()
}

// Upsert records the latest position for a participant. Errors are
// returned for logging; callers do not fail an update on cache loss.
func (p *Positions) Upsert(ctx context.Context, rideID, userID string, lat, lng float64) error {
	key := rideKey(rideID)
	pipe := p.client.Pipeline()
	pipe.GeoAdd(ctx, key, &redis.GeoLocation{Name: userID, Latitude: lat, Longitude: lng})
	pipe.Expire(ctx, key, keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove deletes a participant's marker, used when they disconnect.
func (p *Positions) Remove(ctx context.Context, rideID, userID string) error {
	return p.client.ZRem(ctx, rideKey(rideID), userID).Err()
}

// Snapshot returns the current markers for a ride.
func (p *Positions) Snapshot(ctx context.Context, rideID string) ([]Position, error) {
	key := rideKey(rideID)
	members, err := p.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	locs, err := p.client.GeoPos(ctx, key, members...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Position, 0, len(members))
	for i, loc := range locs {
		if loc == nil {
			continue
		}
		out = append(out, Position{
			UserID:    members[i],
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		})
	}
	return out, nil
}

func rideKey(rideID string) string { return "ride:geo:" + rideID }
