package ride

import "errors"

// Validation errors: rejected synchronously, nothing persisted.
var (
	ErrDriverRequired     = errors.New("driver id is required")
	ErrVehicleRequired    = errors.New("vehicle id is required")
	ErrInvalidVehicle     = errors.New("vehicle is not active or not owned by the driver")
	ErrCapacityExceeded   = errors.New("seats exceed vehicle capacity")
	ErrInvalidSchedule    = errors.New("departure time must be in the future")
	ErrNegativePrice      = errors.New("price cannot be negative")
	ErrNoValidOccurrences = errors.New("recurrence rule yields no occurrences")
)

// State errors: surfaced with a specific reason, ride left unchanged.
var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrSelfRequestDenied   = errors.New("driver cannot request a seat on their own ride")
	ErrDuplicateRequest    = errors.New("user already has a seat request on this ride")
	ErrNoSeatsAvailable    = errors.New("no seats available")
	ErrPassengerNotPending = errors.New("seat request has already been decided")
	ErrReservationNotFound = errors.New("no seat reservation for this user")
	ErrRideNotCancellable  = errors.New("ride can no longer be cancelled by the driver")
)

// Authorization and lookup errors.
var (
	ErrRideNotFound   = errors.New("ride not found")
	ErrNotDriver      = errors.New("caller is not the ride driver")
	ErrAccessDenied   = errors.New("access denied")
	ErrRoomJoinDenied = errors.New("ride is not in progress or caller is not a participant")
)

// ErrConcurrencyConflict is returned by a ride store when an atomic
// conditional update loses a race; callers retry a bounded number of times.
var ErrConcurrencyConflict = errors.New("concurrent ride update conflict")
