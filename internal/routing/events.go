package routing

// Event is the wire envelope shared by every real-time message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client -> server event types.
const (
	EventJoinRoom       = "join-ride-location-room"
	EventStartSharing   = "start-sharing-location"
	EventStopSharing    = "stop-sharing-location"
	EventUpdateLocation = "update-location"
)

// Server -> client event types.
const (
	EventJoinedRoom         = "joined-ride-location-room"
	EventLocationError      = "location-error"
	EventLocationUpdate     = "location-update"
	EventParticipantRemoved = "participant-location-removed"
)

// RoomRequest is the payload of join/start/stop sharing events.
type RoomRequest struct {
	RideID string `json:"rideId"`
}

// PositionUpdate is the payload of an inbound update-location event.
type PositionUpdate struct {
	RideID    string  `json:"rideId"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// LocationUpdate is the payload delivered to authorized recipients.
type LocationUpdate struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Role      string  `json:"role"`
}

// ParticipantRemoved tells members to retire one participant's marker.
type ParticipantRemoved struct {
	UserID string `json:"userId"`
}

// Notice carries a human-readable confirmation or error message.
type Notice struct {
	Message string `json:"message"`
}

// RoomName returns the broadcast room identifier for a ride.
func RoomName(rideID string) string {
	return "ride-location-" + rideID
}
