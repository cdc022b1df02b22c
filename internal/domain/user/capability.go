package user

import "strings"

// Capability is a typed operation permission carried by an authenticated
// identity. Handlers check membership once at the boundary instead of
// re-deriving permissions inside business logic.
type Capability string

const (
	CapRideCreate     Capability = "ride:create"
	CapRideCancel     Capability = "ride:cancel"
	CapRideProgress   Capability = "ride:progress"
	CapSeatRequest    Capability = "seat:request"
	CapSeatDecide     Capability = "seat:decide"
	CapLocationShare  Capability = "location:share"
	CapLocationUpdate Capability = "location:update"
)

// CapabilitySet is the resolved permission set of one authenticated caller.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from permission strings, dropping unknown
// or empty entries.
func NewCapabilitySet(perms []string) CapabilitySet {
	set := make(CapabilitySet, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		set[Capability(p)] = struct{}{}
	}
	return set
}

// Has reports whether the set grants the given capability.
func (set CapabilitySet) Has(capability Capability) bool {
	_, ok := set[capability]
	return ok
}

// Strings returns the set as a sorted-insensitive slice for token encoding.
func (set CapabilitySet) Strings() []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, string(c))
	}
	return out
}

// DefaultCapabilities is the permission set granted to every regular user.
// Seat decisions and sharing remain driver-gated per ride on top of this.
func DefaultCapabilities() CapabilitySet {
	return NewCapabilitySet([]string{
		string(CapRideCreate),
		string(CapRideCancel),
		string(CapRideProgress),
		string(CapSeatRequest),
		string(CapSeatDecide),
		string(CapLocationShare),
		string(CapLocationUpdate),
	})
}
