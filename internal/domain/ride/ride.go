package ride

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
)

// Vehicle carries the registry facts the ride core needs: ownership,
// capacity, and whether the vehicle may be offered for rides.
type Vehicle struct {
	ID       string
	OwnerID  string
	Capacity int
	Active   bool
}

// AuditEntry is one append-only administrative action on a ride.
type AuditEntry struct {
	ID        string
	Actor     string
	Action    string
	Detail    string
	CreatedAt time.Time
}

// Ride is the domain entity corresponding to the `rides` table, with
// passenger sub-records embedded. The ride is the sole atomic unit of
// storage: every capacity-affecting mutation happens through its methods
// inside one conditional store update.
type Ride struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	DriverID  string
	VehicleID string

	Origin      geo.Waypoint
	Destination geo.Waypoint
	Stops       []geo.Waypoint

	DepartureTime time.Time
	PricePerSeat  float64

	// CapacityAtCreation is the vehicle capacity captured when the ride was
	// created. Invariant: AvailableSeats + count(APPROVED passengers) equals
	// this value at all times.
	CapacityAtCreation int
	AvailableSeats     int

	Status     Status
	Passengers []Passenger

	IsRecurrent  bool
	RecurrenceID string

	AuditHistory []AuditEntry
}

// NewRide validates inputs against the vehicle facts and returns a
// SCHEDULED ride with an empty passenger list.
func NewRide(driverID string, vehicle Vehicle, origin, destination geo.Waypoint, stops []geo.Waypoint, departure time.Time, seats int, price float64) (*Ride, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverRequired
	}
	if strings.TrimSpace(vehicle.ID) == "" {
		return nil, ErrVehicleRequired
	}
	if !vehicle.Active || vehicle.OwnerID != driverID {
		return nil, ErrInvalidVehicle
	}
	if seats < 0 || seats > vehicle.Capacity {
		return nil, ErrCapacityExceeded
	}
	if !departure.After(time.Now().UTC()) {
		return nil, ErrInvalidSchedule
	}
	if price < 0 {
		return nil, ErrNegativePrice
	}
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}
	for _, stop := range stops {
		if err := stop.Validate(); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	return &Ride{
		ID:                 uuid.NewString(),
		CreatedAt:          now,
		UpdatedAt:          now,
		DriverID:           driverID,
		VehicleID:          vehicle.ID,
		Origin:             origin,
		Destination:        destination,
		Stops:              stops,
		DepartureTime:      departure.UTC(),
		PricePerSeat:       price,
		CapacityAtCreation: seats,
		AvailableSeats:     seats,
		Status:             StatusScheduled,
	}, nil
}

// RequestSeat appends a PENDING sub-record for userID. AvailableSeats is not
// touched until the driver approves.
func (ride *Ride) RequestSeat(userID string) error {
	if userID == ride.DriverID {
		return ErrSelfRequestDenied
	}
	if ride.AvailableSeats == 0 {
		return ErrNoSeatsAvailable
	}
	// any prior record, in any status, blocks a new request
	if ride.passenger(userID) != nil {
		return ErrDuplicateRequest
	}
	ride.Passengers = append(ride.Passengers, newPassenger(userID))
	ride.touch()
	return nil
}

// DecideSeat applies the driver's approve/reject decision to a PENDING
// sub-record. Approval consumes one seat; the seat check and decrement are
// part of the same mutation so the store can apply them atomically.
func (ride *Ride) DecideSeat(driverID, passengerID string, approve bool) error {
	if driverID != ride.DriverID {
		return ErrNotDriver
	}
	p := ride.passenger(passengerID)
	if p == nil {
		return ErrReservationNotFound
	}
	if p.Status != PassengerPending {
		return ErrPassengerNotPending
	}

	if approve {
		if ride.AvailableSeats == 0 {
			return ErrNoSeatsAvailable
		}
		if err := p.manage(PassengerApproved); err != nil {
			return err
		}
		ride.AvailableSeats--
	} else {
		if err := p.manage(PassengerRejected); err != nil {
			return err
		}
	}
	ride.touch()
	return nil
}

// CancelSeat cancels userID's own reservation. An APPROVED seat returns to
// the pool; a PENDING one is simply withdrawn.
func (ride *Ride) CancelSeat(userID string) error {
	p := ride.passenger(userID)
	if p == nil {
		return ErrReservationNotFound
	}
	wasApproved := p.Status == PassengerApproved
	if err := p.manage(PassengerCancelled); err != nil {
		return err
	}
	if wasApproved {
		ride.AvailableSeats++
	}
	ride.touch()
	return nil
}

// CancelByDriver transitions the ride to CANCELLED, allowed only from
// SCHEDULED for the driver-initiated path.
func (ride *Ride) CancelByDriver(driverID string) error {
	if driverID != ride.DriverID {
		return ErrNotDriver
	}
	if ride.Status != StatusScheduled {
		return ErrRideNotCancellable
	}
	ride.setStatus(StatusCancelled)
	return nil
}

// Start transitions SCHEDULED -> IN_PROGRESS.
func (ride *Ride) Start(driverID string) error {
	if driverID != ride.DriverID {
		return ErrNotDriver
	}
	if !ride.Status.CanTransitionTo(StatusInProgress) {
		return ErrInvalidTransition
	}
	ride.setStatus(StatusInProgress)
	return nil
}

// Complete transitions IN_PROGRESS -> COMPLETED.
func (ride *Ride) Complete(driverID string) error {
	if driverID != ride.DriverID {
		return ErrNotDriver
	}
	if !ride.Status.CanTransitionTo(StatusCompleted) {
		return ErrInvalidTransition
	}
	ride.setStatus(StatusCompleted)
	return nil
}

// AppendAudit records an administrative action. Entries are append-only and
// never mutated or removed.
func (ride *Ride) AppendAudit(actor, action, detail string) {
	ride.AuditHistory = append(ride.AuditHistory, AuditEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

// ApprovedCount returns the number of APPROVED passengers.
func (ride *Ride) ApprovedCount() int {
	n := 0
	for i := range ride.Passengers {
		if ride.Passengers[i].Status == PassengerApproved {
			n++
		}
	}
	return n
}

// ApprovedPassengerIDs returns the ids of APPROVED passengers in request order.
func (ride *Ride) ApprovedPassengerIDs() []string {
	ids := make([]string, 0, len(ride.Passengers))
	for i := range ride.Passengers {
		if ride.Passengers[i].Status == PassengerApproved {
			ids = append(ids, ride.Passengers[i].UserID)
		}
	}
	return ids
}

// IsApprovedPassenger reports whether userID holds an APPROVED seat.
func (ride *Ride) IsApprovedPassenger(userID string) bool {
	p := ride.passenger(userID)
	return p != nil && p.Status == PassengerApproved
}

// passenger returns the sub-record for userID, or nil.
func (ride *Ride) passenger(userID string) *Passenger {
	for i := range ride.Passengers {
		if ride.Passengers[i].UserID == userID {
			return &ride.Passengers[i]
		}
	}
	return nil
}

// ----- internal helpers -----

func (ride *Ride) setStatus(status Status) {
	ride.Status = status
	ride.touch()
}

func (ride *Ride) touch() {
	ride.UpdatedAt = time.Now().UTC()
}
