package routing

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
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/storage/memory"
)

// fakeRooms is a static membership table plus a delivery recorder.
type fakeRooms struct {
	mu      sync.Mutex
	members map[string][]Member // room -> members
	sent    map[string][]Event  // connID -> delivered events
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		members: make(map[string][]Member),
		sent:    make(map[string][]Event),
	}
}

func (f *fakeRooms) join(room, connID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[room] = append(f.members[room], Member{ConnID: connID, UserID: userID})
}

func (f *fakeRooms) IsMember(room, connID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[room] {
		if m.ConnID == connID {
			return true
		}
	}
	return false
}

func (f *fakeRooms) Members(room string) []Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Member(nil), f.members[room]...)
}

func (f *fakeRooms) Send(connID string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[connID] = append(f.sent[connID], event.(Event))
	return nil
}

func (f *fakeRooms) deliveredTo(connID string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.sent[connID]...)
}

type routeFixture struct {
	svc     *Service
	rooms   *fakeRooms
	store   *memory.RideStore
	blocks  *memory.BlockRegistry
	sharing *memory.SharingLog
	ride    *ride.Ride
}

// newRouteFixture builds an in-progress ride with approved passengers p1
// and p2, all joined to the ride's room as conn-driver, conn-p1, conn-p2.
func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()

	origin, err := geo.NewWaypoint("campus", -23.55, -46.63)
	require.NoError(t, err)
	destination, err := geo.NewWaypoint("downtown", -23.56, -46.65)
	require.NoError(t, err)

	vehicle := ride.Vehicle{ID: "v1", OwnerID: "driver-1", Capacity: 4, Active: true}
	r, err := ride.NewRide("driver-1", vehicle, origin, destination, nil,
		time.Now().UTC().Add(time.Hour), 3, 10)
	require.NoError(t, err)
	require.NoError(t, r.RequestSeat("p1"))
	require.NoError(t, r.RequestSeat("p2"))
	require.NoError(t, r.DecideSeat("driver-1", "p1", true))
	require.NoError(t, r.DecideSeat("driver-1", "p2", true))
	require.NoError(t, r.Start("driver-1"))

	store := memory.NewRideStore()
	require.NoError(t, store.Create(context.Background(), r))

	rooms := newFakeRooms()
	room := RoomName(r.ID)
	rooms.join(room, "conn-driver", "driver-1")
	rooms.join(room, "conn-p1", "p1")
	rooms.join(room, "conn-p2", "p2")

	blocks := memory.NewBlockRegistry()
	sharing := memory.NewSharingLog()
	svc := NewService(logger.New("test"), store, blocks, sharing, nil, rooms, rooms, nil)

	return &routeFixture{svc: svc, rooms: rooms, store: store, blocks: blocks, sharing: sharing, ride: r}
}

func TestRoute_DriverReachesAllPassengers(t *testing.T) {
	f := newRouteFixture(t)

	err := f.svc.Route(context.Background(), "conn-driver", "driver-1", f.ride.ID, -23.55, -46.63)
	require.NoError(t, err)

	for _, connID := range []string{"conn-p1", "conn-p2"} {
		events := f.rooms.deliveredTo(connID)
		require.Len(t, events, 1, connID)
		assert.Equal(t, EventLocationUpdate, events[0].Type)
		payload := events[0].Data.(LocationUpdate)
		assert.Equal(t, "driver-1", payload.UserID)
		assert.Equal(t, "driver", payload.Role)
	}
	// no echo back to the sender
	assert.Empty(t, f.rooms.deliveredTo("conn-driver"))
}

func TestRoute_PassengerReachesDriverOnly(t *testing.T) {
	f := newRouteFixture(t)

	err := f.svc.Route(context.Background(), "conn-p1", "p1", f.ride.ID, -23.55, -46.63)
	require.NoError(t, err)

	events := f.rooms.deliveredTo("conn-driver")
	require.Len(t, events, 1)
	payload := events[0].Data.(LocationUpdate)
	assert.Equal(t, "p1", payload.UserID)
	assert.Equal(t, "passenger", payload.Role)

	// passengers never see each other
	assert.Empty(t, f.rooms.deliveredTo("conn-p2"))
	assert.Empty(t, f.rooms.deliveredTo("conn-p1"))
}

func TestRoute_BlockSuppressesBothDirections(t *testing.T) {
	f := newRouteFixture(t)
	f.blocks.Block("driver-1", "p1")

	require.NoError(t, f.svc.Route(context.Background(), "conn-driver", "driver-1", f.ride.ID, 1, 2))
	assert.Empty(t, f.rooms.deliveredTo("conn-p1"))
	assert.Len(t, f.rooms.deliveredTo("conn-p2"), 1)

	require.NoError(t, f.svc.Route(context.Background(), "conn-p1", "p1", f.ride.ID, 1, 2))
	assert.Empty(t, f.rooms.deliveredTo("conn-driver"))
}

func TestRoute_NonMemberSilentlyDropped(t *testing.T) {
	f := newRouteFixture(t)

	err := f.svc.Route(context.Background(), "conn-ghost", "ghost", f.ride.ID, 1, 2)
	require.NoError(t, err)

	for _, connID := range []string{"conn-driver", "conn-p1", "conn-p2"} {
		assert.Empty(t, f.rooms.deliveredTo(connID))
	}
}

func TestRoute_RevokedSenderDropped(t *testing.T) {
	f := newRouteFixture(t)

	// p2 cancels mid-ride; the next update must re-check the ride
	_, err := f.store.Mutate(context.Background(), f.ride.ID, func(r *ride.Ride) error {
		return r.CancelSeat("p2")
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Route(context.Background(), "conn-p2", "p2", f.ride.ID, 1, 2))

	// a former passenger still in the room no longer reaches anyone
	assert.Empty(t, f.rooms.deliveredTo("conn-driver"))
	assert.Empty(t, f.rooms.deliveredTo("conn-p1"))
}

func TestRoute_RevokedRecipientSkipped(t *testing.T) {
	f := newRouteFixture(t)

	_, err := f.store.Mutate(context.Background(), f.ride.ID, func(r *ride.Ride) error {
		return r.CancelSeat("p2")
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Route(context.Background(), "conn-driver", "driver-1", f.ride.ID, 1, 2))

	assert.Len(t, f.rooms.deliveredTo("conn-p1"), 1)
	assert.Empty(t, f.rooms.deliveredTo("conn-p2"))
}

func TestStartSharing_DriverOnly(t *testing.T) {
	f := newRouteFixture(t)

	require.NoError(t, f.svc.StartSharing(context.Background(), f.ride.ID, "driver-1"))
	entries := f.sharing.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ports.SharingStarted, entries[0].Action)
	assert.Equal(t, "driver-1", entries[0].UserID)

	// a passenger's attempt is silently ignored
	require.NoError(t, f.svc.StartSharing(context.Background(), f.ride.ID, "p1"))
	assert.Len(t, f.sharing.Entries(), 1)
}

func TestStopSharing_AppendOnly(t *testing.T) {
	f := newRouteFixture(t)

	require.NoError(t, f.svc.StartSharing(context.Background(), f.ride.ID, "driver-1"))
	require.NoError(t, f.svc.StopSharing(context.Background(), f.ride.ID, "driver-1"))
	// stopping again just appends another marker
	require.NoError(t, f.svc.StopSharing(context.Background(), f.ride.ID, "driver-1"))

	entries := f.sharing.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, ports.SharingStarted, entries[0].Action)
	assert.Equal(t, ports.SharingStopped, entries[1].Action)
	assert.Equal(t, ports.SharingStopped, entries[2].Action)
}
