package geo

import (
	"errors"
	"strings"
)

// Waypoint is a geographic point with a free-text label, embedded in a ride
// as origin, destination, or an intermediate stop.
type Waypoint struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

var (
	ErrEmptyLabel       = errors.New("waypoint label cannot be empty")
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewWaypoint constructs a validated Waypoint.
func NewWaypoint(label string, latitude, longitude float64) (Waypoint, error) {
	waypoint := Waypoint{
		Label:     strings.TrimSpace(label),
		Latitude:  latitude,
		Longitude: longitude,
	}
	if err := waypoint.Validate(); err != nil {
		return Waypoint{}, err
	}
	return waypoint, nil
}

// Validate checks the coordinate ranges and the label.
func (waypoint Waypoint) Validate() error {
	if strings.TrimSpace(waypoint.Label) == "" {
		return ErrEmptyLabel
	}
	if waypoint.Latitude < -90 || waypoint.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if waypoint.Longitude < -180 || waypoint.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
