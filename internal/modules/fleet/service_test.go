package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetrent/internal/types"
)

type fakeInventory struct {
	hubs      map[types.ID]Hub
	vehicles  []Vehicle
	transfers map[[2]types.ID]bool
	calls     int
}

func (f *fakeInventory) GetVehicle(_ context.Context, id types.ID) (*Vehicle, error) {
	for _, v := range f.vehicles {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeInventory) GetHub(_ context.Context, id types.ID) (*Hub, error) {
	h, ok := f.hubs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &h, nil
}

func (f *fakeInventory) ListAvailable(_ context.Context, hubID, typeID types.ID) ([]Vehicle, error) {
	var out []Vehicle
	for _, v := range f.vehicles {
		if v.HubID == hubID && v.Available && (typeID == "" || v.VehicleTypeID == typeID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeInventory) CountFleet(_ context.Context, hubID, typeID types.ID) (int, error) {
	n := 0
	for _, v := range f.vehicles {
		if v.HubID == hubID && v.VehicleTypeID == typeID {
			n++
		}
	}
	return n, nil
}

func (f *fakeInventory) TransferAllowed(_ context.Context, from, to types.ID) (bool, error) {
	f.calls++
	return f.transfers[[2]types.ID{from, to}], nil
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		hubs: map[types.ID]Hub{"blr": {ID: "blr", Name: "Bengaluru Central"}, "mys": {ID: "mys", Name: "Mysuru"}},
		vehicles: []Vehicle{
			{ID: "v1", VehicleTypeID: "suv", HubID: "blr", Available: true},
			{ID: "v2", VehicleTypeID: "suv", HubID: "blr", Available: false},
			{ID: "v3", VehicleTypeID: "hatch", HubID: "blr", Available: true},
		},
		transfers: map[[2]types.ID]bool{{"blr", "mys"}: true},
	}
}

func TestService_ListAvailable(t *testing.T) {
	svc := NewService(newFakeInventory())

	all, err := svc.ListAvailable(context.Background(), "blr", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	suvs, err := svc.ListAvailable(context.Background(), "blr", "suv")
	require.NoError(t, err)
	require.Len(t, suvs, 1)
	assert.Equal(t, types.ID("v1"), suvs[0].ID)

	_, err = svc.ListAvailable(context.Background(), "goa", "")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.ListAvailable(context.Background(), "", "")
	assert.True(t, types.IsValidation(err))
}

func TestService_HubPermitted(t *testing.T) {
	inv := newFakeInventory()
	svc := NewService(inv)
	ctx := context.Background()

	ok, err := svc.HubPermitted(ctx, "blr", "blr")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, inv.calls, "same hub must not hit the store")

	ok, _ = svc.HubPermitted(ctx, "blr", "mys")
	assert.True(t, ok)

	ok, _ = svc.HubPermitted(ctx, "mys", "blr")
	assert.False(t, ok)
}

func TestService_FleetSize(t *testing.T) {
	svc := NewService(newFakeInventory())
	n, err := svc.FleetSize(context.Background(), "blr", "suv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
