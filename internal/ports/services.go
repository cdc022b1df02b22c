package ports

import (
	"context"
	"time"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

// CreateRideParams carries the validated-at-the-boundary input for ride creation.
type CreateRideParams struct {
	DriverID      string
	VehicleID     string
	Origin        geo.Waypoint
	Destination   geo.Waypoint
	Stops         []geo.Waypoint
	DepartureTime time.Time
	Seats         int
	PricePerSeat  float64
}

// PassengerView is the projection of a sub-record exposed to the driver.
type PassengerView struct {
	UserID      string               `json:"user_id"`
	Status      ride.PassengerStatus `json:"status"`
	RequestedAt time.Time            `json:"requested_at"`
}

// RideView is the caller-dependent projection returned by View.
type RideView struct {
	ID             string         `json:"id"`
	DriverID       string         `json:"driver_id"`
	VehicleID      string         `json:"vehicle_id"`
	Origin         geo.Waypoint   `json:"origin"`
	Destination    geo.Waypoint   `json:"destination"`
	Stops          []geo.Waypoint `json:"stops,omitempty"`
	DepartureTime  time.Time      `json:"departure_time"`
	PricePerSeat   float64        `json:"price_per_seat"`
	Status         ride.Status    `json:"status"`
	AvailableSeats int            `json:"available_seats"`
	// Passengers is populated for the driver only, restricted to APPROVED
	// seats. Approved passengers see the ride without other sub-records.
	Passengers []PassengerView `json:"passengers,omitempty"`
}

// RideLifecycle is the Ride Lifecycle Engine surface consumed by the HTTP
// API and the connection gateway.
type RideLifecycle interface {
	CreateRide(ctx context.Context, params CreateRideParams) (*ride.Ride, error)
	CreateRecurrentSeries(ctx context.Context, params CreateRideParams, rule ride.RecurrenceRule) ([]*ride.Ride, error)

	RequestSeat(ctx context.Context, rideID, userID string) (*ride.Ride, error)
	DecideSeat(ctx context.Context, rideID, driverID, passengerID string, approve bool) (*ride.Ride, error)
	CancelSeat(ctx context.Context, rideID, userID string) error

	CancelByDriver(ctx context.Context, rideID, driverID string) error
	Start(ctx context.Context, rideID, driverID string) error
	Complete(ctx context.Context, rideID, driverID string) error

	View(ctx context.Context, rideID, callerID string) (*RideView, error)

	// AuthorizeRoomJoin confirms callerID is the driver or an approved
	// passenger of an IN_PROGRESS ride before the gateway admits the
	// connection to the ride's location room.
	AuthorizeRoomJoin(ctx context.Context, rideID, callerID string) error
}

// EventPublisher is the bridge to the external notifier: lifecycle events
// are published fire-and-forget and must never fail a caller's request.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
