package lifecycle

import (
	"context"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/metrics"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// CreateRide validates the vehicle facts and schedule, persists a new
// SCHEDULED ride with an empty passenger list, and notifies.
func (s *Service) CreateRide(ctx context.Context, params ports.CreateRideParams) (*ride.Ride, error) {
	vehicle, err := s.vehicles.Get(ctx, params.VehicleID)
	if err != nil {
		return nil, err
	}

	r, err := ride.NewRide(params.DriverID, vehicle,
		params.Origin, params.Destination, params.Stops,
		params.DepartureTime, params.Seats, params.PricePerSeat)
	if err != nil {
		return nil, err
	}
	r.AppendAudit(params.DriverID, "ride_created", "")

	if err := s.rides.Create(ctx, r); err != nil {
		return nil, err
	}

	ctx = withRide(ctx, r.ID)
	metrics.RidesCreatedTotal.Inc()
	s.log.Info(ctx, "ride_created", "Ride created", map[string]any{
		"driver_id": r.DriverID,
		"seats":     r.AvailableSeats,
		"departure": r.DepartureTime,
	})
	s.publish(ctx, notify.KeyRideCreated, rideEvent(r))

	return r, nil
}

// rideEvent is the payload shape shared by lifecycle notifications.
func rideEvent(r *ride.Ride) map[string]any {
	return map[string]any{
		"ride_id":         r.ID,
		"driver_id":       r.DriverID,
		"status":          r.Status.String(),
		"departure_time":  r.DepartureTime,
		"available_seats": r.AvailableSeats,
	}
}
