package httpapi

import (
	"context"
	"net/http"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

type statusResponse struct {
	RideID string `json:"ride_id"`
	Status string `json:"status"`
}

// progressCall is the shared shape of the three driver transitions.
func (handler *Handler) progressCall(w http.ResponseWriter, r *http.Request, next ride.Status,
	call func(ctx context.Context, rideID, driverID string) error) {

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

	if err := call(ctxWithTimeout, rideID, sub); err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, statusResponse{
		RideID: rideID,
		Status: string(next),
	})
}

// ----- Handler: POST /rides/{ride_id}/cancel -----

func (handler *Handler) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	handler.progressCall(w, r, ride.StatusCancelled, handler.svc.CancelByDriver)
}

// ----- Handler: POST /rides/{ride_id}/start -----

func (handler *Handler) handleStartRide(w http.ResponseWriter, r *http.Request) {
	handler.progressCall(w, r, ride.StatusInProgress, handler.svc.Start)
}

// ----- Handler: POST /rides/{ride_id}/complete -----

func (handler *Handler) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	handler.progressCall(w, r, ride.StatusCompleted, handler.svc.Complete)
}
