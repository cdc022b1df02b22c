package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/metrics"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// CreateRecurrentSeries expands the rule into calendar occurrences and
// creates one independent ride per occurrence, all sharing a correlation
// id and the same validated vehicle facts. Creation is partial-success:
// occurrences already inserted stay when a later one fails, and the first
// error is returned alongside the rides that made it in.
func (s *Service) CreateRecurrentSeries(ctx context.Context, params ports.CreateRideParams, rule ride.RecurrenceRule) ([]*ride.Ride, error) {
	occurrences, err := rule.Occurrences(params.DepartureTime)
	if err != nil {
		return nil, err
	}

	// vehicle facts are validated once and shared by every occurrence
	vehicle, err := s.vehicles.Get(ctx, params.VehicleID)
	if err != nil {
		return nil, err
	}

	recurrenceID := uuid.NewString()
	created := make([]*ride.Ride, 0, len(occurrences))

	for _, departure := range occurrences {
		r, err := ride.NewRide(params.DriverID, vehicle,
			params.Origin, params.Destination, params.Stops,
			departure, params.Seats, params.PricePerSeat)
		if err != nil {
			return created, err
		}
		r.IsRecurrent = true
		r.RecurrenceID = recurrenceID
		r.AppendAudit(params.DriverID, "ride_created", "recurrence "+recurrenceID)

		if err := s.rides.Create(ctx, r); err != nil {
			s.log.Error(ctx, "recurrence_occurrence_failed", "Failed to insert recurrence occurrence", err, map[string]any{
				"recurrence_id": recurrenceID,
				"departure":     departure,
				"created":       len(created),
			})
			return created, err
		}

		metrics.RidesCreatedTotal.Inc()
		s.publish(withRide(ctx, r.ID), notify.KeyRideCreated, rideEvent(r))
		created = append(created, r)
	}

	s.log.Info(ctx, "recurrence_created", "Recurrent ride series created", map[string]any{
		"recurrence_id": recurrenceID,
		"occurrences":   len(created),
	})

	return created, nil
}
