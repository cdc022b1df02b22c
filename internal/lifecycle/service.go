// Package lifecycle owns the ride and passenger state machines. Every
// transition is validated in the domain layer and persisted through one
// conditional store update per ride.
package lifecycle

import (
	"context"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/contextx"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// seatDecisionAttempts bounds retries when an atomic seat decision loses a
// concurrency race before surfacing the state error to the caller.
const seatDecisionAttempts = 3

// Service implements ports.RideLifecycle.
type Service struct {
	log      *logger.Logger
	rides    ports.RideStore
	vehicles ports.VehicleRegistry
	pub      ports.EventPublisher
}

var _ ports.RideLifecycle = (*Service)(nil)

// NewService wires the lifecycle engine. Store and registry handles are
// injected explicitly; the engine holds no ambient globals.
func NewService(log *logger.Logger, rides ports.RideStore, vehicles ports.VehicleRegistry, pub ports.EventPublisher) *Service {
	return &Service{log: log, rides: rides, vehicles: vehicles, pub: pub}
}

// publish sends a lifecycle event to the notifier bridge. Failures are
// logged and swallowed: no caller request fails because the broker is down.
func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, key, payload); err != nil {
		s.log.Error(ctx, "event_publish_failed", "Failed to publish lifecycle event", err, map[string]any{
			"routing_key": key,
		})
	}
}

// withRide stamps the ride id into ctx for log correlation.
func withRide(ctx context.Context, rideID string) context.Context {
	return contextx.WithRideID(ctx, rideID)
}
