package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/storage/memory"
)

// recordingPublisher captures routing keys for assertions.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fixture struct {
	svc      *Service
	store    *memory.RideStore
	vehicles *memory.VehicleRegistry
	pub      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewRideStore()
	vehicles := memory.NewVehicleRegistry()
	vehicles.Put(ride.Vehicle{ID: "v1", OwnerID: "driver-1", Capacity: 4, Active: true})
	pub := &recordingPublisher{}
	return &fixture{
		svc:      NewService(logger.New("test"), store, vehicles, pub),
		store:    store,
		vehicles: vehicles,
		pub:      pub,
	}
}

func (f *fixture) params(t *testing.T, seats int) ports.CreateRideParams {
	t.Helper()
	origin, err := geo.NewWaypoint("campus", -23.55, -46.63)
	require.NoError(t, err)
	destination, err := geo.NewWaypoint("downtown", -23.56, -46.65)
	require.NoError(t, err)
	return ports.CreateRideParams{
		DriverID:      "driver-1",
		VehicleID:     "v1",
		Origin:        origin,
		Destination:   destination,
		DepartureTime: time.Now().UTC().Add(24 * time.Hour),
		Seats:         seats,
		PricePerSeat:  10,
	}
}

func (f *fixture) createRide(t *testing.T, seats int) *ride.Ride {
	t.Helper()
	r, err := f.svc.CreateRide(context.Background(), f.params(t, seats))
	require.NoError(t, err)
	return r
}

func TestCreateRide(t *testing.T) {
	f := newFixture(t)

	r := f.createRide(t, 3)

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusScheduled, stored.Status)
	assert.Equal(t, 3, stored.AvailableSeats)
	require.Len(t, stored.AuditHistory, 1)
	assert.Equal(t, "ride_created", stored.AuditHistory[0].Action)

	assert.Contains(t, f.pub.published(), notify.KeyRideCreated)
}

func TestCreateRide_UnknownVehicle(t *testing.T) {
	f := newFixture(t)
	params := f.params(t, 2)
	params.VehicleID = "ghost"

	_, err := f.svc.CreateRide(context.Background(), params)
	assert.ErrorIs(t, err, ride.ErrInvalidVehicle)
}

func TestCreateRecurrentSeries(t *testing.T) {
	f := newFixture(t)
	params := f.params(t, 2)
	// 2026-09-07 is a Monday
	params.DepartureTime = time.Date(2026, 9, 7, 8, 30, 0, 0, time.UTC)
	rule := ride.RecurrenceRule{
		Weekdays: []time.Weekday{time.Monday, time.Wednesday},
		EndDate:  time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
	}

	created, err := f.svc.CreateRecurrentSeries(context.Background(), params, rule)
	require.NoError(t, err)
	require.Len(t, created, 4)

	recurrenceID := created[0].RecurrenceID
	require.NotEmpty(t, recurrenceID)
	for _, occ := range created {
		assert.True(t, occ.IsRecurrent)
		assert.Equal(t, recurrenceID, occ.RecurrenceID)
		stored, err := f.store.Get(context.Background(), occ.ID)
		require.NoError(t, err)
		assert.Equal(t, ride.StatusScheduled, stored.Status)
	}
	// each occurrence is an independent ride with its own seats
	assert.NotEqual(t, created[0].ID, created[1].ID)
}

func TestRequestSeat(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)

	updated, err := f.svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)
	require.Len(t, updated.Passengers, 1)
	assert.Equal(t, ride.PassengerPending, updated.Passengers[0].Status)
	assert.Equal(t, 2, updated.AvailableSeats)

	_, err = f.svc.RequestSeat(context.Background(), r.ID, "p1")
	assert.ErrorIs(t, err, ride.ErrDuplicateRequest)

	_, err = f.svc.RequestSeat(context.Background(), r.ID, "driver-1")
	assert.ErrorIs(t, err, ride.ErrSelfRequestDenied)
}

func TestDecideSeat_ApproveConsumesSeat(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)
	_, err := f.svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)

	updated, err := f.svc.DecideSeat(context.Background(), r.ID, "driver-1", "p1", true)
	require.NoError(t, err)

	assert.Equal(t, 1, updated.AvailableSeats)
	assert.True(t, updated.IsApprovedPassenger("p1"))
	assert.Equal(t, updated.CapacityAtCreation, updated.AvailableSeats+updated.ApprovedCount())
	assert.Contains(t, f.pub.published(), notify.KeySeatDecided)

	// decision is audited
	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(stored.AuditHistory))
	for _, e := range stored.AuditHistory {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, "seat_approved")
}

func TestDecideSeat_RejectKeepsSeat(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)
	_, err := f.svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)

	updated, err := f.svc.DecideSeat(context.Background(), r.ID, "driver-1", "p1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.AvailableSeats)
	assert.False(t, updated.IsApprovedPassenger("p1"))
}

func TestDecideSeat_NotDriver(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)
	_, err := f.svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)

	_, err = f.svc.DecideSeat(context.Background(), r.ID, "p1", "p1", true)
	assert.ErrorIs(t, err, ride.ErrNotDriver)
}

func TestDecideSeat_ConcurrentApprovalsForLastSeat(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 1)
	for _, p := range []string{"p1", "p2"} {
		_, err := f.svc.RequestSeat(context.Background(), r.ID, p)
		require.NoError(t, err)
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, p := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(passengerID string) {
			defer wg.Done()
			_, err := f.svc.DecideSeat(context.Background(), r.ID, "driver-1", passengerID, true)
			results <- err
		}(p)
	}
	wg.Wait()
	close(results)

	var approved, refused int
	for err := range results {
		if err == nil {
			approved++
		} else {
			assert.ErrorIs(t, err, ride.ErrNoSeatsAvailable)
			refused++
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, refused)

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.AvailableSeats)
	assert.Equal(t, 1, stored.ApprovedCount())
	assert.Equal(t, stored.CapacityAtCreation, stored.AvailableSeats+stored.ApprovedCount())
}

// conflictStore loses every conditional update, as a store does when a
// concurrent writer keeps winning the same row.
type conflictStore struct {
	mutateCalls int
}

func (s *conflictStore) Create(context.Context, *ride.Ride) error { return nil }

func (s *conflictStore) Get(context.Context, string) (*ride.Ride, error) {
	return nil, ride.ErrRideNotFound
}

func (s *conflictStore) Mutate(context.Context, string, func(*ride.Ride) error) (*ride.Ride, error) {
	s.mutateCalls++
	return nil, ride.ErrConcurrencyConflict
}

func TestDecideSeat_RetriesExhaustedSurfaceNoSeats(t *testing.T) {
	store := &conflictStore{}
	svc := NewService(logger.New("test"), store, memory.NewVehicleRegistry(), &recordingPublisher{})

	_, err := svc.DecideSeat(context.Background(), "r1", "driver-1", "p1", true)

	assert.ErrorIs(t, err, ride.ErrNoSeatsAvailable)
	assert.Equal(t, seatDecisionAttempts, store.mutateCalls)
}

func TestCancelSeat_ApprovedRestoresSeat(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 1)
	_, err := f.svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.DecideSeat(context.Background(), r.ID, "driver-1", "p1", true)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelSeat(context.Background(), r.ID, "p1"))

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AvailableSeats)
	assert.Equal(t, 0, stored.ApprovedCount())
}

func TestCancelByDriver(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)

	require.NoError(t, f.svc.CancelByDriver(context.Background(), r.ID, "driver-1"))

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCancelled, stored.Status)
	assert.Contains(t, f.pub.published(), notify.KeyRideCancelled)
}

func TestCancelByDriver_NotFromInProgress(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)
	require.NoError(t, f.svc.Start(context.Background(), r.ID, "driver-1"))

	err := f.svc.CancelByDriver(context.Background(), r.ID, "driver-1")
	assert.ErrorIs(t, err, ride.ErrRideNotCancellable)
}

func TestStartAndComplete(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)

	require.NoError(t, f.svc.Start(context.Background(), r.ID, "driver-1"))
	require.NoError(t, f.svc.Complete(context.Background(), r.ID, "driver-1"))

	stored, err := f.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCompleted, stored.Status)

	err = f.svc.Start(context.Background(), r.ID, "driver-1")
	assert.ErrorIs(t, err, ride.ErrInvalidTransition)
}

func TestView_Projections(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)
	for _, p := range []string{"p1", "p2"} {
		_, err := f.svc.RequestSeat(context.Background(), r.ID, p)
		require.NoError(t, err)
	}
	_, err := f.svc.DecideSeat(context.Background(), r.ID, "driver-1", "p1", true)
	require.NoError(t, err)

	// driver sees approved passengers only
	view, err := f.svc.View(context.Background(), r.ID, "driver-1")
	require.NoError(t, err)
	require.Len(t, view.Passengers, 1)
	assert.Equal(t, "p1", view.Passengers[0].UserID)

	// approved passenger sees the ride without sub-records
	view, err = f.svc.View(context.Background(), r.ID, "p1")
	require.NoError(t, err)
	assert.Empty(t, view.Passengers)
	assert.Equal(t, r.ID, view.ID)

	// a pending requester is denied
	_, err = f.svc.View(context.Background(), r.ID, "p2")
	assert.ErrorIs(t, err, ride.ErrAccessDenied)

	// a stranger is denied
	_, err = f.svc.View(context.Background(), r.ID, "outsider")
	assert.ErrorIs(t, err, ride.ErrAccessDenied)
}

func TestAuthorizeRoomJoin(t *testing.T) {
	f := newFixture(t)
	r := f.createRide(t, 2)
	_, err := f.svc.RequestSeat(context.Background(), r.ID, "p1")
	require.NoError(t, err)
	_, err = f.svc.DecideSeat(context.Background(), r.ID, "driver-1", "p1", true)
	require.NoError(t, err)

	// ride not started yet
	err = f.svc.AuthorizeRoomJoin(context.Background(), r.ID, "driver-1")
	assert.ErrorIs(t, err, ride.ErrRoomJoinDenied)

	require.NoError(t, f.svc.Start(context.Background(), r.ID, "driver-1"))

	assert.NoError(t, f.svc.AuthorizeRoomJoin(context.Background(), r.ID, "driver-1"))
	assert.NoError(t, f.svc.AuthorizeRoomJoin(context.Background(), r.ID, "p1"))

	err = f.svc.AuthorizeRoomJoin(context.Background(), r.ID, "outsider")
	assert.ErrorIs(t, err, ride.ErrRoomJoinDenied)
}
