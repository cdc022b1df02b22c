package ride

import (
	"strings"
	"time"
)

// PassengerStatus is the lifecycle of one user's seat request on a ride.
type PassengerStatus string

const (
	PassengerPending   PassengerStatus = "PENDING"
	PassengerApproved  PassengerStatus = "APPROVED"
	PassengerRejected  PassengerStatus = "REJECTED"
	PassengerCancelled PassengerStatus = "CANCELLED"
)

// ParsePassengerStatus normalizes and validates a passenger status string.
func ParsePassengerStatus(in string) (PassengerStatus, error) {
	status := PassengerStatus(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed constants.
func (status PassengerStatus) Valid() bool {
	switch status {
	case PassengerPending, PassengerApproved, PassengerRejected, PassengerCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the PassengerStatus.
func (status PassengerStatus) String() string {
	return string(status)
}

// CanTransitionTo enforces PENDING -> APPROVED|REJECTED and APPROVED -> CANCELLED.
// PENDING -> CANCELLED covers a passenger withdrawing an undecided request.
func (status PassengerStatus) CanTransitionTo(next PassengerStatus) bool {
	switch status {
	case PassengerPending:
		return next == PassengerApproved || next == PassengerRejected || next == PassengerCancelled

	case PassengerApproved:
		return next == PassengerCancelled

	default:
		return false
	}
}

// Passenger is one user's request-and-decision record embedded in a ride.
// It is never persisted or mutated outside its parent ride.
type Passenger struct {
	UserID      string
	Status      PassengerStatus
	RequestedAt time.Time
	ManagedAt   *time.Time // stamped the first time status leaves PENDING or APPROVED
}

// newPassenger creates a PENDING sub-record; only the parent ride may call it.
func newPassenger(userID string) Passenger {
	return Passenger{
		UserID:      userID,
		Status:      PassengerPending,
		RequestedAt: time.Now().UTC(),
	}
}

// manage transitions the sub-record and stamps ManagedAt.
func (p *Passenger) manage(next PassengerStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	p.Status = next
	p.ManagedAt = &now
	return nil
}
