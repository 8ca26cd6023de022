// README: Concurrency tests for vehicle assignment against Postgres (run with -race).
package handover

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/testutil"
	"fleetrent/internal/types"
)

func reserve(t *testing.T, store *booking.Store, fx testutil.Fleet) types.ID {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	b := &booking.Booking{
		ID:              types.NewID(),
		CustomerID:      "c_race",
		VehicleTypeID:   fx.VehicleTypeID,
		PickupHubID:     fx.HubID,
		ReturnHubID:     fx.HubID,
		PickupAt:        now,
		ReturnAt:        now.Add(72 * time.Hour),
		Status:          booking.StatusReserved,
		EstimatedAmount: decimal.NewFromInt(1500),
		CreatedAt:       now,
	}
	ev := booking.Transition{BookingID: b.ID, From: booking.StatusNone, To: booking.StatusReserved, Actor: types.SystemActor(), At: now}.Event()
	require.NoError(t, store.Create(context.Background(), b, ev))
	return b.ID
}

func dbService(t *testing.T, vehicles int) (*Service, *booking.Store, testutil.Fleet) {
	pool := testutil.Postgres(t)
	fx := testutil.SeedFleet(t, pool, vehicles)
	bookings := booking.NewStore(pool)
	bookingSvc := booking.NewService(bookings, nil, nil, nil)
	fleetSvc := fleet.NewService(fleet.NewStore(pool))
	return NewService(NewStore(pool), bookingSvc, fleetSvc, openHold{}, nil), bookings, fx
}

func TestConcurrentPickupSameVehicleDB(t *testing.T) {
	svc, bookings, fx := dbService(t, 1)
	ctx := context.Background()

	const attempts = 6
	ids := make([]types.ID, attempts)
	for i := range ids {
		ids[i] = reserve(t, bookings, fx)
	}

	start := make(chan struct{})
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			<-start
			_, err := svc.Pickup(ctx, pickup(id, fx.VehicleIDs[0]))
			errs <- err
		}(id)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, types.ErrVehicleUnavailable)
	}
	assert.Equal(t, 1, success)
}

func TestPickupThenReturnDB(t *testing.T) {
	svc, bookings, fx := dbService(t, 1)
	ctx := context.Background()
	id := reserve(t, bookings, fx)

	_, err := svc.Pickup(ctx, pickup(id, fx.VehicleIDs[0]))
	require.NoError(t, err)
	_, err = svc.Pickup(ctx, pickup(id, fx.VehicleIDs[0]))
	assert.ErrorIs(t, err, types.ErrAlreadyHandedOver)

	b, err := bookings.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusActive, b.Status)
	require.NotNil(t, b.AssignedVehicleID)

	_, err = svc.Return(ctx, ReturnCommand{BookingID: id, FuelStatus: FuelQuarter, ReturnHubID: fx.OtherHubID, Actor: staff})
	require.NoError(t, err)
	_, err = svc.Return(ctx, ReturnCommand{BookingID: id, FuelStatus: FuelQuarter, Actor: staff})
	assert.ErrorIs(t, err, types.ErrAlreadyHandedOver)

	pickupRow, err := GetTx(ctx, svc.repo.(*Store).db, id, DirectionPickup)
	require.NoError(t, err)
	assert.Equal(t, fx.VehicleIDs[0], pickupRow.VehicleID)
}
