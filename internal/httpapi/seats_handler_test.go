package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/jwt"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/lifecycle"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/storage/memory"
)

func newTestHandler(t *testing.T) (*Handler, *lifecycle.Service) {
	t.Helper()
	store := memory.NewRideStore()
	vehicles := memory.NewVehicleRegistry()
	vehicles.Put(ride.Vehicle{ID: "v1", OwnerID: "driver-1", Capacity: 4, Active: true})
	svc := lifecycle.NewService(logger.New("test"), store, vehicles, notify.NoopPublisher{})
	auth := jwt.NewManager("test-secret", time.Hour)
	return NewHandler(svc, logger.New("test"), auth, nil), svc
}

func createTestRide(t *testing.T, svc *lifecycle.Service, seats int) *ride.Ride {
	t.Helper()
	origin, err := geo.NewWaypoint("campus", -23.55, -46.63)
	require.NoError(t, err)
	destination, err := geo.NewWaypoint("downtown", -23.56, -46.65)
	require.NoError(t, err)
	r, err := svc.CreateRide(context.Background(), ports.CreateRideParams{
		DriverID:      "driver-1",
		VehicleID:     "v1",
		Origin:        origin,
		Destination:   destination,
		DepartureTime: time.Now().UTC().Add(24 * time.Hour),
		Seats:         seats,
		PricePerSeat:  10,
	})
	require.NoError(t, err)
	return r
}

func asUser(req *http.Request, userID string) *http.Request {
	claims := jwt.NewUserClaims(userID, nil, time.Hour)
	return req.WithContext(jwt.InjectClaims(req.Context(), claims))
}

func TestCancelSeat_NoContentWithoutBody(t *testing.T) {
	handler, svc := newTestHandler(t)
	r := createTestRide(t, svc, 2)
	_, err := svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/rides/"+r.ID+"/passengers/me", nil)
	req.SetPathValue("ride_id", r.ID)
	rec := httptest.NewRecorder()

	handler.handleCancelSeat(rec, asUser(req, "p1"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
