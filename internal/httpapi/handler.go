// Package httpapi adapts HTTP requests to the ride lifecycle service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/contextx"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/gateway"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/jwt"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

const svcTimeout = 5 * time.Second

// Handler exposes the ride lifecycle over HTTP.
type Handler struct {
	svc    ports.RideLifecycle
	logger *logger.Logger
	auth   *jwt.Manager
	gw     *gateway.Gateway
}

// NewHandler wires an HTTP handler around the lifecycle service.
func NewHandler(svc ports.RideLifecycle, log *logger.Logger, auth *jwt.Manager, gw *gateway.Gateway) *Handler {
	return &Handler{svc: svc, logger: log, auth: auth, gw: gw}
}

// RegisterRoutes mounts all endpoints on the provided mux.
func (handler *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rides",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapRideCreate)(handler.handleCreateRide),
	)
	mux.HandleFunc("POST /rides/recurrent",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapRideCreate)(handler.handleCreateRecurrent),
	)
	mux.HandleFunc("POST /rides/{ride_id}/passengers",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapSeatRequest)(handler.handleRequestSeat),
	)
	mux.HandleFunc("POST /rides/{ride_id}/passengers/{passenger_id}/decision",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapSeatDecide)(handler.handleDecideSeat),
	)
	mux.HandleFunc("DELETE /rides/{ride_id}/passengers/me",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapSeatRequest)(handler.handleCancelSeat),
	)
	mux.HandleFunc("POST /rides/{ride_id}/cancel",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapRideCancel)(handler.handleCancelRide),
	)
	mux.HandleFunc("POST /rides/{ride_id}/start",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapRideProgress)(handler.handleStartRide),
	)
	mux.HandleFunc("POST /rides/{ride_id}/complete",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapRideProgress)(handler.handleCompleteRide),
	)
	mux.HandleFunc("GET /rides/{ride_id}",
		jwt.AuthMiddlewareFunc(handler.auth, user.CapSeatRequest)(handler.handleViewRide),
	)

	// websocket endpoint authenticates its own first frame
	mux.HandleFunc("GET /ws/location", handler.gw.HandleWS)

	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeStrict reads a bounded JSON body with unknown fields rejected.
func (handler *Handler) decodeStrict(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// serviceError maps domain failures to HTTP statuses.
func (handler *Handler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
		return
	}

	switch {
	case errors.Is(err, ride.ErrRideNotFound), errors.Is(err, ride.ErrReservationNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, ride.ErrAccessDenied), errors.Is(err, ride.ErrNotDriver),
		errors.Is(err, ride.ErrSelfRequestDenied), errors.Is(err, ride.ErrRoomJoinDenied):
		handler.httpError(ctx, w, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, ride.ErrNoSeatsAvailable), errors.Is(err, ride.ErrDuplicateRequest),
		errors.Is(err, ride.ErrPassengerNotPending), errors.Is(err, ride.ErrInvalidTransition),
		errors.Is(err, ride.ErrRideNotCancellable):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, ride.ErrInvalidVehicle), errors.Is(err, ride.ErrCapacityExceeded),
		errors.Is(err, ride.ErrInvalidSchedule), errors.Is(err, ride.ErrNegativePrice),
		errors.Is(err, ride.ErrNoValidOccurrences), errors.Is(err, geo.ErrEmptyLabel),
		errors.Is(err, geo.ErrInvalidLatitude), errors.Is(err, geo.ErrInvalidLongitude):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "internal error", err)
	}
}

func (handler *Handler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to a buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *Handler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID propagates the caller's request ID or generates one.
func (handler *Handler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if reqID == "" {
		return contextx.WithNewRequestID(ctx)
	}
	return contextx.WithRequestID(ctx, reqID)
}

// requireSubject returns the token subject or writes a 401.
func (handler *Handler) requireSubject(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := jwt.RequireClaims(r)
	if claims == nil || strings.TrimSpace(claims.Subject) == "" {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return "", false
	}
	return claims.Subject, true
}
