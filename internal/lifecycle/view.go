package lifecycle

import (
	"context"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// View returns a caller-dependent projection of the ride:
//   - the driver sees the ride with its APPROVED passengers;
//   - an approved passenger sees the ride without other sub-records;
//   - anyone else, including a still-PENDING requester, is denied.
func (s *Service) View(ctx context.Context, rideID, callerID string) (*ports.RideView, error) {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch {
	case callerID == r.DriverID:
		view := project(r)
		for i := range r.Passengers {
			p := &r.Passengers[i]
			if p.Status != ride.PassengerApproved {
				continue
			}
			view.Passengers = append(view.Passengers, ports.PassengerView{
				UserID:      p.UserID,
				Status:      p.Status,
				RequestedAt: p.RequestedAt,
			})
		}
		return view, nil

	case r.IsApprovedPassenger(callerID):
		return project(r), nil

	default:
		return nil, ride.ErrAccessDenied
	}
}

// AuthorizeRoomJoin admits callerID to the ride's location room only while
// the ride is IN_PROGRESS and the caller is the driver or an approved
// passenger.
func (s *Service) AuthorizeRoomJoin(ctx context.Context, rideID, callerID string) error {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if r.Status != ride.StatusInProgress {
		return ride.ErrRoomJoinDenied
	}
	if callerID != r.DriverID && !r.IsApprovedPassenger(callerID) {
		return ride.ErrRoomJoinDenied
	}
	return nil
}

func project(r *ride.Ride) *ports.RideView {
	return &ports.RideView{
		ID:             r.ID,
		DriverID:       r.DriverID,
		VehicleID:      r.VehicleID,
		Origin:         r.Origin,
		Destination:    r.Destination,
		Stops:          r.Stops,
		DepartureTime:  r.DepartureTime,
		PricePerSeat:   r.PricePerSeat,
		Status:         r.Status,
		AvailableSeats: r.AvailableSeats,
	}
}
