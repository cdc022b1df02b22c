package lifecycle

import (
	"context"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
)

// CancelByDriver cancels a SCHEDULED ride. Passenger notification is the
// external notifier's job; this core only publishes the event.
func (s *Service) CancelByDriver(ctx context.Context, rideID, driverID string) error {
	ctx = withRide(ctx, rideID)

	_, err := s.rides.Mutate(ctx, rideID, func(r *ride.Ride) error {
		if err := r.CancelByDriver(driverID); err != nil {
			return err
		}
		r.AppendAudit(driverID, "ride_cancelled", "")
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "ride_cancelled", "Ride cancelled by driver", map[string]any{"driver_id": driverID})
	s.publish(ctx, notify.KeyRideCancelled, map[string]any{"ride_id": rideID})
	return nil
}

// Start transitions SCHEDULED -> IN_PROGRESS (driver-only).
func (s *Service) Start(ctx context.Context, rideID, driverID string) error {
	ctx = withRide(ctx, rideID)

	_, err := s.rides.Mutate(ctx, rideID, func(r *ride.Ride) error {
		if err := r.Start(driverID); err != nil {
			return err
		}
		r.AppendAudit(driverID, "ride_started", "")
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "ride_started", "Ride started", map[string]any{"driver_id": driverID})
	s.publish(ctx, notify.KeyRideStarted, map[string]any{"ride_id": rideID})
	return nil
}

// Complete transitions IN_PROGRESS -> COMPLETED (driver-only).
func (s *Service) Complete(ctx context.Context, rideID, driverID string) error {
	ctx = withRide(ctx, rideID)

	_, err := s.rides.Mutate(ctx, rideID, func(r *ride.Ride) error {
		if err := r.Complete(driverID); err != nil {
			return err
		}
		r.AppendAudit(driverID, "ride_completed", "")
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "ride_completed", "Ride completed", map[string]any{"driver_id": driverID})
	s.publish(ctx, notify.KeyRideCompleted, map[string]any{"ride_id": rideID})
	return nil
}
