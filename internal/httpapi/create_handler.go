package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/contextx"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type waypointRequest struct {
	Label     string  `json:"label"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type createRideRequest struct {
	VehicleID     string            `json:"vehicle_id"`
	Origin        waypointRequest   `json:"origin"`
	Destination   waypointRequest   `json:"destination"`
	Stops         []waypointRequest `json:"stops"`
	DepartureTime time.Time         `json:"departure_time"`
	Seats         int               `json:"seats"`
	PricePerSeat  float64           `json:"price_per_seat"`
}

type createRecurrentRequest struct {
	createRideRequest
	Weekdays []string `json:"weekdays"`
	EndDate  string   `json:"end_date"` // YYYY-MM-DD
}

type rideCreatedResponse struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	AvailableSeats int       `json:"available_seats"`
	DepartureTime  time.Time `json:"departure_time"`
}

type recurrentCreatedResponse struct {
	RecurrenceID string                `json:"recurrence_id,omitempty"`
	Created      []rideCreatedResponse `json:"created"`
	Error        string                `json:"error,omitempty"`
}

func (req *createRideRequest) toParams(driverID string) (ports.CreateRideParams, error) {
	origin, err := geo.NewWaypoint(req.Origin.Label, req.Origin.Latitude, req.Origin.Longitude)
	if err != nil {
		return ports.CreateRideParams{}, err
	}
	destination, err := geo.NewWaypoint(req.Destination.Label, req.Destination.Latitude, req.Destination.Longitude)
	if err != nil {
		return ports.CreateRideParams{}, err
	}
	stops := make([]geo.Waypoint, 0, len(req.Stops))
	for _, s := range req.Stops {
		wp, err := geo.NewWaypoint(s.Label, s.Latitude, s.Longitude)
		if err != nil {
			return ports.CreateRideParams{}, err
		}
		stops = append(stops, wp)
	}

	return ports.CreateRideParams{
		DriverID:      driverID,
		VehicleID:     strings.TrimSpace(req.VehicleID),
		Origin:        origin,
		Destination:   destination,
		Stops:         stops,
		DepartureTime: req.DepartureTime,
		Seats:         req.Seats,
		PricePerSeat:  req.PricePerSeat,
	}, nil
}

func rideCreated(r *ride.Ride) rideCreatedResponse {
	return rideCreatedResponse{
		ID:             r.ID,
		Status:         string(r.Status),
		AvailableSeats: r.AvailableSeats,
		DepartureTime:  r.DepartureTime,
	}
}

// ----- Handler: POST /rides -----

func (handler *Handler) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createRideRequest
	if !handler.decodeStrict(ctx, w, r, 1<<20, &req) {
		return
	}

	sub, ok := handler.requireSubject(ctx, w, r)
	if !ok {
		return
	}

	params, err := req.toParams(sub)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, svcTimeout)
	defer cancel()

	created, err := handler.svc.CreateRide(ctxWithTimeout, params)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	ctxWithTimeout = contextx.WithRideID(ctxWithTimeout, created.ID)

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, rideCreated(created))
}

// ----- Handler: POST /rides/recurrent -----

func (handler *Handler) handleCreateRecurrent(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createRecurrentRequest
	if !handler.decodeStrict(ctx, w, r, 1<<20, &req) {
		return
	}

	sub, ok := handler.requireSubject(ctx, w, r)
	if !ok {
		return
	}

	params, err := req.toParams(sub)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	rule, err := parseRecurrenceRule(req.Weekdays, req.EndDate)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	// series creation touches several rows; give it a wider window
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 3*svcTimeout)
	defer cancel()

	created, err := handler.svc.CreateRecurrentSeries(ctxWithTimeout, params, rule)
	if len(created) == 0 && err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	resp := recurrentCreatedResponse{Created: make([]rideCreatedResponse, 0, len(created))}
	for _, occ := range created {
		resp.Created = append(resp.Created, rideCreated(occ))
	}
	if len(created) > 0 {
		resp.RecurrenceID = created[0].RecurrenceID
	}
	if err != nil {
		// partial success: report what was created alongside the failure
		resp.Error = err.Error()
		handler.jsonResponse(ctxWithTimeout, w, http.StatusMultiStatus, resp)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, resp)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseRecurrenceRule(weekdays []string, endDate string) (ride.RecurrenceRule, error) {
	var rule ride.RecurrenceRule
	for _, name := range weekdays {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return rule, ride.ErrNoValidOccurrences
		}
		rule.Weekdays = append(rule.Weekdays, wd)
	}

	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return rule, ride.ErrInvalidSchedule
	}
	rule.EndDate = end
	return rule, nil
}
