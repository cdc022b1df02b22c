package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/contextx"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

type seatDecisionRequest struct {
	Decision string `json:"decision"` // APPROVED | REJECTED
}

type seatResponse struct {
	RideID         string `json:"ride_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	AvailableSeats int    `json:"available_seats"`
}

// rideID pulls and validates the path parameter shared by seat endpoints.
func (handler *Handler) rideID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, context.Context, bool) {
	id := strings.TrimSpace(r.PathValue("ride_id"))
	if id == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "ride_id is required", errors.New("missing ride_id"))
		return "", ctx, false
	}
	return id, contextx.WithRideID(ctx, id), true
}

// ----- Handler: POST /rides/{ride_id}/passengers -----

func (handler *Handler) handleRequestSeat(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, ctx, ok := handler.rideID(ctx, w, r)
	if !ok {
		return
	}
	sub, ok := handler.requireSubject(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, svcTimeout)
	defer cancel()

	updated, err := handler.svc.RequestSeat(ctxWithTimeout, rideID, sub)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, seatResponse{
		RideID:         updated.ID,
		UserID:         sub,
		Status:         string(ride.PassengerPending),
		AvailableSeats: updated.AvailableSeats,
	})
}

// ----- Handler: POST /rides/{ride_id}/passengers/{passenger_id}/decision -----

func (handler *Handler) handleDecideSeat(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, ctx, ok := handler.rideID(ctx, w, r)
	if !ok {
		return
	}
	passengerID := strings.TrimSpace(r.PathValue("passenger_id"))
	if passengerID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "passenger_id is required", errors.New("missing passenger_id"))
		return
	}

	var req seatDecisionRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}

	var approve bool
	switch strings.ToUpper(strings.TrimSpace(req.Decision)) {
	case string(ride.PassengerApproved):
		approve = true
	case string(ride.PassengerRejected):
		approve = false
	default:
		handler.httpError(ctx, w, http.StatusBadRequest, "decision must be APPROVED or REJECTED", errors.New("invalid decision"))
		return
	}

	sub, ok := handler.requireSubject(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, svcTimeout)
	defer cancel()

	updated, err := handler.svc.DecideSeat(ctxWithTimeout, rideID, sub, passengerID, approve)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	status := ride.PassengerRejected
	if approve {
		status = ride.PassengerApproved
	}
	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, seatResponse{
		RideID:         updated.ID,
		UserID:         passengerID,
		Status:         string(status),
		AvailableSeats: updated.AvailableSeats,
	})
}

// ----- Handler: DELETE /rides/{ride_id}/passengers/me -----

func (handler *Handler) handleCancelSeat(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, ctx, ok := handler.rideID(ctx, w, r)
	if !ok {
		return
	}
	sub, ok := handler.requireSubject(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, svcTimeout)
	defer cancel()

	if err := handler.svc.CancelSeat(ctxWithTimeout, rideID, sub); err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
