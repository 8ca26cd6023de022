// README: Pricing service loads rate plans and addons, then runs the calculator.
package pricing

import (
	"context"

	"fleetrent/internal/types"
)

type Catalog interface {
	RatePlan(ctx context.Context, vehicleTypeID types.ID) (RatePlan, error)
	Addons(ctx context.Context, ids []types.ID) ([]Addon, error)
	ListAddons(ctx context.Context) ([]Addon, error)
}

type Service struct {
	catalog Catalog
}

func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if err := types.Validate(req); err != nil {
		return Quote{}, err
	}
	plan, err := s.catalog.RatePlan(ctx, req.VehicleTypeID)
	if err != nil {
		return Quote{}, err
	}
	addons, err := s.catalog.Addons(ctx, req.AddonIDs)
	if err != nil {
		return Quote{}, err
	}
	return Calculate(req.PickupAt.UTC(), req.ReturnAt.UTC(), plan, addons)
}

func (s *Service) RatePlan(ctx context.Context, vehicleTypeID types.ID) (RatePlan, error) {
	return s.catalog.RatePlan(ctx, vehicleTypeID)
}

func (s *Service) ListAddons(ctx context.Context) ([]Addon, error) {
	return s.catalog.ListAddons(ctx)
}

func (s *Service) Addons(ctx context.Context, ids []types.ID) ([]Addon, error) {
	return s.catalog.Addons(ctx, ids)
}
