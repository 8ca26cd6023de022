// README: Store tests against Postgres (skipped unless FLEETRENT_TEST_DSN is set).
package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetrent/internal/testutil"
	"fleetrent/internal/types"
)

func seedBooking(t *testing.T, store *Store, fx testutil.Fleet) *Booking {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	b := &Booking{
		ID:              types.NewID(),
		CustomerID:      "c_store",
		VehicleTypeID:   fx.VehicleTypeID,
		PickupHubID:     fx.HubID,
		ReturnHubID:     fx.OtherHubID,
		PickupAt:        now.Add(time.Hour),
		ReturnAt:        now.Add(49 * time.Hour),
		AddonIDs:        []types.ID{fx.AddonID},
		Status:          StatusReserved,
		EstimatedAmount: decimal.NewFromInt(1200),
		CreatedAt:       now,
	}
	ev := Transition{BookingID: b.ID, From: StatusNone, To: StatusReserved, Actor: types.Actor{ID: b.CustomerID, Role: types.RoleCustomer}, At: now}.Event()
	require.NoError(t, store.Create(context.Background(), b, ev))
	return b
}

func TestStore_CreateAndGet(t *testing.T) {
	pool := testutil.Postgres(t)
	fx := testutil.SeedFleet(t, pool, 1)
	store := NewStore(pool)
	ctx := context.Background()

	b := seedBooking(t, store, fx)
	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, got.Status)
	assert.Equal(t, []types.ID{fx.AddonID}, got.AddonIDs)
	assert.True(t, b.EstimatedAmount.Equal(got.EstimatedAmount))
	assert.Nil(t, got.AssignedVehicleID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	n, err := store.CountOverlapping(ctx, fx.HubID, fx.VehicleTypeID, b.PickupAt, b.ReturnAt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_UpdateStatusCAS(t *testing.T) {
	pool := testutil.Postgres(t)
	fx := testutil.SeedFleet(t, pool, 1)
	store := NewStore(pool)
	ctx := context.Background()
	b := seedBooking(t, store, fx)

	tr := Transition{BookingID: b.ID, From: StatusReserved, To: StatusConfirmed, Version: 0, Actor: types.Actor{ID: "s1", Role: types.RoleStaff}, At: time.Now().UTC()}
	ok, err := store.UpdateStatus(ctx, tr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UpdateStatus(ctx, tr)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not apply")

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, 1, got.StatusVersion)
	assert.NotNil(t, got.ConfirmedAt)

	evs, err := store.Events(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, StatusConfirmed, evs[1].ToStatus)
}

func TestStore_CancelBlockedByPickupHandover(t *testing.T) {
	pool := testutil.Postgres(t)
	fx := testutil.SeedFleet(t, pool, 1)
	store := NewStore(pool)
	ctx := context.Background()
	b := seedBooking(t, store, fx)

	_, err := pool.Exec(ctx, `
		INSERT INTO handovers (id, booking_id, vehicle_id, processed_by, fuel_status, hub_id, direction, created_at)
		VALUES ($1, $2, $3, 's1', 'full', $4, 'pickup', NOW())`,
		string(types.NewID()), string(b.ID), string(fx.VehicleIDs[0]), string(fx.HubID))
	require.NoError(t, err)

	has, err := store.HasPickupHandover(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, has)

	ok, err := store.UpdateStatus(ctx, Transition{BookingID: b.ID, From: StatusReserved, To: StatusCancelled, Version: 0, Actor: types.SystemActor(), At: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ConcurrentTransitionsSingleWinner(t *testing.T) {
	pool := testutil.Postgres(t)
	fx := testutil.SeedFleet(t, pool, 1)
	store := NewStore(pool)
	ctx := context.Background()
	b := seedBooking(t, store, fx)

	targets := []Status{StatusConfirmed, StatusCancelled, StatusConfirmed, StatusCancelled}
	start := make(chan struct{})
	results := make(chan bool, len(targets))
	var wg sync.WaitGroup
	for _, to := range targets {
		wg.Add(1)
		go func(to Status) {
			defer wg.Done()
			<-start
			ok, err := store.UpdateStatus(ctx, Transition{BookingID: b.ID, From: StatusReserved, To: to, Version: 0, Actor: types.SystemActor(), At: time.Now().UTC()})
			if err != nil {
				t.Errorf("update: %v", err)
			}
			results <- ok
		}(to)
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}
