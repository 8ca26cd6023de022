package handover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetrent/internal/events"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/types"
)

// world is an in-memory stand-in for the bookings, vehicles and handovers tables.
type world struct {
	mu        sync.Mutex
	bookings  map[types.ID]booking.Booking
	vehicles  map[types.ID]fleet.Vehicle
	transfers map[[2]types.ID]bool
	handovers []Handover
}

func newWorld() *world {
	return &world{
		bookings:  map[types.ID]booking.Booking{},
		vehicles:  map[types.ID]fleet.Vehicle{},
		transfers: map[[2]types.ID]bool{},
	}
}

func (w *world) addBooking(id types.ID, status booking.Status) {
	w.bookings[id] = booking.Booking{
		ID:            id,
		CustomerID:    "c1",
		VehicleTypeID: "vt1",
		PickupHubID:   "h1",
		ReturnHubID:   "h2",
		PickupAt:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		ReturnAt:      time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		Status:        status,
	}
}

func (w *world) addVehicle(id, hub types.ID) {
	w.vehicles[id] = fleet.Vehicle{ID: id, VehicleTypeID: "vt1", HubID: hub, Available: true}
}

func (w *world) CommitPickup(_ context.Context, c PickupCommit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := w.vehicles[c.Handover.VehicleID]
	if !v.Available || v.Version != c.VehicleVersion {
		return types.ErrVehicleUnavailable
	}
	for _, b := range w.bookings {
		if b.Status == booking.StatusActive && b.AssignedVehicleID != nil && *b.AssignedVehicleID == v.ID {
			return types.ErrVehicleUnavailable
		}
	}
	b := w.bookings[c.Transition.BookingID]
	if b.Status != c.Transition.From || b.StatusVersion != c.Transition.Version {
		return errBookingMoved
	}
	for _, h := range w.handovers {
		if h.BookingID == c.Handover.BookingID && h.Direction == c.Handover.Direction {
			return types.ErrAlreadyHandedOver
		}
	}
	v.Available = false
	v.Version++
	w.vehicles[v.ID] = v
	b.Status = booking.StatusActive
	b.StatusVersion++
	b.AssignedVehicleID = c.Transition.VehicleID
	w.bookings[b.ID] = b
	w.handovers = append(w.handovers, c.Handover)
	return nil
}

func (w *world) CommitReturn(_ context.Context, c ReturnCommit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range w.handovers {
		if h.BookingID == c.Handover.BookingID && h.Direction == DirectionReturn {
			return types.ErrAlreadyHandedOver
		}
	}
	v := w.vehicles[c.Handover.VehicleID]
	v.Available = true
	v.HubID = c.Handover.HubID
	v.Version++
	w.vehicles[v.ID] = v
	w.handovers = append(w.handovers, c.Handover)
	return nil
}

func (w *world) List(_ context.Context, bookingID types.ID) ([]Handover, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Handover
	for _, h := range w.handovers {
		if h.BookingID == bookingID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (w *world) Get(_ context.Context, _ types.Actor, id types.ID) (*booking.Booking, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bookings[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &b, nil
}

func (w *world) Vehicle(_ context.Context, id types.ID) (*fleet.Vehicle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.vehicles[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &v, nil
}

func (w *world) Hub(_ context.Context, id types.ID) (*fleet.Hub, error) {
	if id == "missing" {
		return nil, types.ErrNotFound
	}
	return &fleet.Hub{ID: id}, nil
}

func (w *world) HubPermitted(_ context.Context, bookingHubID, vehicleHubID types.ID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bookingHubID == vehicleHubID || w.transfers[[2]types.ID{bookingHubID, vehicleHubID}], nil
}

type memHold struct {
	mu   sync.Mutex
	held map[types.ID]bool
}

func (h *memHold) Acquire(_ context.Context, id types.ID) (func(context.Context), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held == nil {
		h.held = map[types.ID]bool{}
	}
	if h.held[id] {
		return nil, types.ErrVehicleUnavailable
	}
	h.held[id] = true
	return func(context.Context) {
		h.mu.Lock()
		delete(h.held, id)
		h.mu.Unlock()
	}, nil
}

type openHold struct{}

func (openHold) Acquire(context.Context, types.ID) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

var staff = types.Actor{ID: "s1", Role: types.RoleStaff}

func newTestService(w *world, hold Hold) (*Service, *events.Recorder) {
	rec := &events.Recorder{}
	return NewService(w, w, w, hold, rec), rec
}

func pickup(bookingID, vehicleID types.ID) PickupCommand {
	return PickupCommand{BookingID: bookingID, VehicleID: vehicleID, FuelStatus: FuelFull, Actor: staff}
}

func TestFuelStatusValid(t *testing.T) {
	for _, f := range []FuelStatus{FuelFull, FuelThreeQuarter, FuelHalf, FuelQuarter, FuelEmpty} {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, FuelStatus("half").Valid())
	assert.False(t, FuelStatus("").Valid())
}

func TestPickup_ActivatesBooking(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	w.addVehicle("v1", "h1")
	svc, rec := newTestService(w, &memHold{})

	h, err := svc.Pickup(context.Background(), pickup("b1", "v1"))
	require.NoError(t, err)
	assert.Equal(t, DirectionPickup, h.Direction)
	assert.Equal(t, staff.ID, h.ProcessedBy)

	b := w.bookings["b1"]
	assert.Equal(t, booking.StatusActive, b.Status)
	require.NotNil(t, b.AssignedVehicleID)
	assert.Equal(t, types.ID("v1"), *b.AssignedVehicleID)
	assert.False(t, w.vehicles["v1"].Available)
	assert.Equal(t, []string{events.HandoverPickup}, rec.Types())
}

func TestPickup_ConfirmedBookingAccepted(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusConfirmed)
	w.addVehicle("v1", "h1")
	svc, _ := newTestService(w, &memHold{})

	_, err := svc.Pickup(context.Background(), pickup("b1", "v1"))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusActive, w.bookings["b1"].Status)
}

func TestPickup_TwiceIsAlreadyHandedOver(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	w.addVehicle("v1", "h1")
	w.addVehicle("v2", "h1")
	svc, _ := newTestService(w, &memHold{})
	ctx := context.Background()

	_, err := svc.Pickup(ctx, pickup("b1", "v1"))
	require.NoError(t, err)

	_, err = svc.Pickup(ctx, pickup("b1", "v2"))
	assert.ErrorIs(t, err, types.ErrAlreadyHandedOver)
	assert.True(t, w.vehicles["v2"].Available, "second attempt must not touch the vehicle")
}

func TestPickup_Rejections(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	w.addBooking("cancelled", booking.StatusCancelled)
	w.addVehicle("v1", "h1")
	w.addVehicle("far", "h9")
	svc, _ := newTestService(w, &memHold{})
	ctx := context.Background()

	_, err := svc.Pickup(ctx, PickupCommand{BookingID: "b1", VehicleID: "v1", FuelStatus: FuelFull, Actor: types.Actor{ID: "c1", Role: types.RoleCustomer}})
	assert.ErrorIs(t, err, types.ErrForbidden)

	cmd := pickup("b1", "v1")
	cmd.FuelStatus = "half"
	_, err = svc.Pickup(ctx, cmd)
	assert.True(t, types.IsValidation(err))

	_, err = svc.Pickup(ctx, pickup("b1", "missing"))
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.Pickup(ctx, pickup("b1", "far"))
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "vehicle_id", ve.Field)

	_, err = svc.Pickup(ctx, pickup("cancelled", "v1"))
	assert.True(t, types.IsInvalidTransition(err))

	assert.Equal(t, booking.StatusReserved, w.bookings["b1"].Status)
}

func TestPickup_HubTransferPermitsVehicle(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	w.addVehicle("v1", "h2")
	w.transfers[[2]types.ID{"h1", "h2"}] = true
	svc, _ := newTestService(w, &memHold{})

	_, err := svc.Pickup(context.Background(), pickup("b1", "v1"))
	require.NoError(t, err)
}

func TestPickup_ConcurrentSameVehicle(t *testing.T) {
	for name, hold := range map[string]Hold{"redis-style hold": &memHold{}, "store cas only": openHold{}} {
		t.Run(name, func(t *testing.T) {
			w := newWorld()
			w.addBooking("b1", booking.StatusReserved)
			w.addBooking("b2", booking.StatusReserved)
			w.addVehicle("v1", "h1")
			svc, _ := newTestService(w, hold)

			start := make(chan struct{})
			errs := make(chan error, 2)
			var wg sync.WaitGroup
			for _, id := range []types.ID{"b1", "b2"} {
				wg.Add(1)
				go func(id types.ID) {
					defer wg.Done()
					<-start
					_, err := svc.Pickup(context.Background(), pickup(id, "v1"))
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

			active := 0
			for _, b := range w.bookings {
				if b.Status == booking.StatusActive {
					active++
				}
			}
			assert.Equal(t, 1, active)
		})
	}
}

func TestPickup_ConcurrentSameBooking(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	w.addVehicle("v1", "h1")
	w.addVehicle("v2", "h1")
	svc, _ := newTestService(w, &memHold{})

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, v := range []types.ID{"v1", "v2"} {
		wg.Add(1)
		go func(v types.ID) {
			defer wg.Done()
			<-start
			_, err := svc.Pickup(context.Background(), pickup("b1", v))
			errs <- err
		}(v)
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
		assert.True(t, errors.Is(err, types.ErrAlreadyHandedOver), "got %v", err)
	}
	assert.Equal(t, 1, success)
	assert.Len(t, w.handovers, 1)
}

func TestReturn_ParksVehicleAtReturnHub(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	w.addVehicle("v1", "h1")
	svc, rec := newTestService(w, &memHold{})
	ctx := context.Background()

	_, err := svc.Pickup(ctx, pickup("b1", "v1"))
	require.NoError(t, err)

	h, err := svc.Return(ctx, ReturnCommand{BookingID: "b1", FuelStatus: FuelHalf, Actor: staff})
	require.NoError(t, err)
	assert.Equal(t, types.ID("h2"), h.HubID)
	assert.Equal(t, types.ID("v1"), h.VehicleID)

	v := w.vehicles["v1"]
	assert.True(t, v.Available)
	assert.Equal(t, types.ID("h2"), v.HubID)
	assert.Equal(t, booking.StatusActive, w.bookings["b1"].Status, "return handover leaves status to invoicing")
	assert.Equal(t, []string{events.HandoverPickup, events.HandoverReturn}, rec.Types())

	_, err = svc.Return(ctx, ReturnCommand{BookingID: "b1", FuelStatus: FuelFull, Actor: staff})
	assert.ErrorIs(t, err, types.ErrAlreadyHandedOver)

	list, err := svc.List(ctx, staff, "b1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReturn_Rejections(t *testing.T) {
	w := newWorld()
	w.addBooking("b1", booking.StatusReserved)
	svc, _ := newTestService(w, &memHold{})
	ctx := context.Background()

	_, err := svc.Return(ctx, ReturnCommand{BookingID: "b1", FuelStatus: FuelFull, Actor: staff})
	assert.True(t, types.IsInvalidTransition(err))

	_, err = svc.Return(ctx, ReturnCommand{BookingID: "nope", FuelStatus: FuelFull, Actor: staff})
	assert.ErrorIs(t, err, types.ErrNotFound)
}
