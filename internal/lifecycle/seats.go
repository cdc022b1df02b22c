package lifecycle

import (
	"context"
	"errors"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/metrics"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
)

// RequestSeat appends a PENDING sub-record for userID. Seats are not
// consumed until the driver approves.
func (s *Service) RequestSeat(ctx context.Context, rideID, userID string) (*ride.Ride, error) {
	ctx = withRide(ctx, rideID)

	r, err := s.rides.Mutate(ctx, rideID, func(r *ride.Ride) error {
		return r.RequestSeat(userID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "seat_requested", "Seat requested", map[string]any{"user_id": userID})
	s.publish(ctx, notify.KeySeatRequested, map[string]any{
		"ride_id": rideID,
		"user_id": userID,
	})
	return r, nil
}

// DecideSeat applies the driver's approve/reject decision. The seat check
// and decrement run as one atomic store update; on a concurrency conflict
// the decision is retried a bounded number of times, and a loser that runs
// out of seats surfaces ErrNoSeatsAvailable.
func (s *Service) DecideSeat(ctx context.Context, rideID, driverID, passengerID string, approve bool) (*ride.Ride, error) {
	ctx = withRide(ctx, rideID)

	var r *ride.Ride
	var err error
	for attempt := 0; attempt < seatDecisionAttempts; attempt++ {
		r, err = s.rides.Mutate(ctx, rideID, func(r *ride.Ride) error {
			if err := r.DecideSeat(driverID, passengerID, approve); err != nil {
				return err
			}
			r.AppendAudit(driverID, decisionAction(approve), "passenger "+passengerID)
			return nil
		})
		if !errors.Is(err, ride.ErrConcurrencyConflict) {
			break
		}
		metrics.SeatDecisionRetries.Inc()
	}
	if errors.Is(err, ride.ErrConcurrencyConflict) {
		// retries exhausted: the winner(s) took the contended seat
		err = ride.ErrNoSeatsAvailable
	}
	if err != nil {
		metrics.SeatDecisionsTotal.WithLabelValues(decisionAction(approve), "error").Inc()
		return nil, err
	}

	metrics.SeatDecisionsTotal.WithLabelValues(decisionAction(approve), "ok").Inc()
	s.log.Info(ctx, "seat_decided", "Seat request decided", map[string]any{
		"driver_id":       driverID,
		"passenger_id":    passengerID,
		"approved":        approve,
		"available_seats": r.AvailableSeats,
	})
	s.publish(ctx, notify.KeySeatDecided, map[string]any{
		"ride_id":      rideID,
		"passenger_id": passengerID,
		"approved":     approve,
	})
	return r, nil
}

// CancelSeat cancels the caller's own reservation; an APPROVED seat
// returns to the pool.
func (s *Service) CancelSeat(ctx context.Context, rideID, userID string) error {
	ctx = withRide(ctx, rideID)

	_, err := s.rides.Mutate(ctx, rideID, func(r *ride.Ride) error {
		return r.CancelSeat(userID)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "seat_cancelled", "Seat reservation cancelled by passenger", map[string]any{"user_id": userID})
	s.publish(ctx, notify.KeySeatCancelled, map[string]any{
		"ride_id": rideID,
		"user_id": userID,
	})
	return nil
}

func decisionAction(approve bool) string {
	if approve {
		return "seat_approved"
	}
	return "seat_rejected"
}
