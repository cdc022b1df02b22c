package httpapi

import (
	"context"
	"net/http"
)

// ----- Handler: GET /rides/{ride_id} -----
//
// The projection depends on the caller: the driver sees approved passenger
// records, an approved passenger sees the ride itself, everyone else is
// refused.
func (handler *Handler) handleViewRide(w http.ResponseWriter, r *http.Request) {
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

	view, err := handler.svc.View(ctxWithTimeout, rideID, sub)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}
