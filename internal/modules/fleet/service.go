// README: Fleet service answers inventory questions for booking and handover.
package fleet

import (
	"context"

	"fleetrent/internal/types"
)

type Inventory interface {
	GetVehicle(ctx context.Context, id types.ID) (*Vehicle, error)
	GetHub(ctx context.Context, id types.ID) (*Hub, error)
	ListAvailable(ctx context.Context, hubID, vehicleTypeID types.ID) ([]Vehicle, error)
	CountFleet(ctx context.Context, hubID, vehicleTypeID types.ID) (int, error)
	TransferAllowed(ctx context.Context, bookingHubID, vehicleHubID types.ID) (bool, error)
}

type Service struct {
	inv Inventory
}

func NewService(inv Inventory) *Service {
	return &Service{inv: inv}
}

func (s *Service) Vehicle(ctx context.Context, id types.ID) (*Vehicle, error) {
	return s.inv.GetVehicle(ctx, id)
}

func (s *Service) Hub(ctx context.Context, id types.ID) (*Hub, error) {
	return s.inv.GetHub(ctx, id)
}

func (s *Service) ListAvailable(ctx context.Context, hubID, vehicleTypeID types.ID) ([]Vehicle, error) {
	if hubID == "" {
		return nil, types.Invalid("hub_id", "required")
	}
	if _, err := s.inv.GetHub(ctx, hubID); err != nil {
		return nil, err
	}
	return s.inv.ListAvailable(ctx, hubID, vehicleTypeID)
}

func (s *Service) FleetSize(ctx context.Context, hubID, vehicleTypeID types.ID) (int, error) {
	return s.inv.CountFleet(ctx, hubID, vehicleTypeID)
}

// HubPermitted reports whether a vehicle stationed at vehicleHubID may serve a
// booking picked up at bookingHubID.
func (s *Service) HubPermitted(ctx context.Context, bookingHubID, vehicleHubID types.ID) (bool, error) {
	if bookingHubID == vehicleHubID {
		return true, nil
	}
	return s.inv.TransferAllowed(ctx, bookingHubID, vehicleHubID)
}
