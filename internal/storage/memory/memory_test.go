package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

func storeRide(t *testing.T, store *RideStore, seats int) *ride.Ride {
	t.Helper()
	origin, err := geo.NewWaypoint("a", 1, 2)
	require.NoError(t, err)
	destination, err := geo.NewWaypoint("b", 3, 4)
	require.NoError(t, err)
	vehicle := ride.Vehicle{ID: "v1", OwnerID: "d1", Capacity: 4, Active: true}
	r, err := ride.NewRide("d1", vehicle, origin, destination, nil,
		time.Now().UTC().Add(time.Hour), seats, 5)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

func TestRideStore_GetReturnsCopy(t *testing.T) {
	store := NewRideStore()
	r := storeRide(t, store, 2)

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)

	// mutating the returned copy must not leak into the store
	got.AvailableSeats = 0
	got.Passengers = append(got.Passengers, ride.Passenger{UserID: "intruder"})

	again, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.AvailableSeats)
	assert.Empty(t, again.Passengers)
}

func TestRideStore_GetUnknown(t *testing.T) {
	store := NewRideStore()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ride.ErrRideNotFound)
}

func TestRideStore_MutateRollsBackOnError(t *testing.T) {
	store := NewRideStore()
	r := storeRide(t, store, 2)
	boom := errors.New("boom")

	_, err := store.Mutate(context.Background(), r.ID, func(r *ride.Ride) error {
		r.AvailableSeats = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableSeats)
}

func TestRideStore_MutateSerializesPerRide(t *testing.T) {
	store := NewRideStore()
	r := storeRide(t, store, 4)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Mutate(context.Background(), r.ID, func(r *ride.Ride) error {
				r.AvailableSeats--
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableSeats)
}

func TestBlockRegistry_Unordered(t *testing.T) {
	blocks := NewBlockRegistry()
	blocks.Block("a", "b")

	exists, err := blocks.Exists(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = blocks.Exists(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.True(t, exists)

	blocks.Unblock("b", "a")
	exists, err = blocks.Exists(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.False(t, exists)
}
