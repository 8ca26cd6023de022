// README: Booking service implements creation and guarded lifecycle transitions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fleetrent/internal/events"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/modules/pricing"
	"fleetrent/internal/types"
)

// pickupGrace tolerates clock skew between the booking form and the server.
const pickupGrace = 5 * time.Minute

type Repository interface {
	Create(ctx context.Context, b *Booking, ev *Event) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	UpdateStatus(ctx context.Context, t Transition) (bool, error)
	CountOverlapping(ctx context.Context, hubID, vehicleTypeID types.ID, from, to time.Time) (int, error)
	HasPickupHandover(ctx context.Context, bookingID types.ID) (bool, error)
}

type Quoter interface {
	Quote(ctx context.Context, req pricing.QuoteRequest) (pricing.Quote, error)
}

type Inventory interface {
	Hub(ctx context.Context, id types.ID) (*fleet.Hub, error)
	FleetSize(ctx context.Context, hubID, vehicleTypeID types.ID) (int, error)
}

type Service struct {
	repo      Repository
	quoter    Quoter
	inventory Inventory
	events    events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, quoter Quoter, inventory Inventory, pub events.Publisher) *Service {
	return &Service{
		repo:      repo,
		quoter:    quoter,
		inventory: inventory,
		events:    pub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateCommand struct {
	Actor         types.Actor
	VehicleTypeID types.ID `validate:"required"`
	PickupHubID   types.ID `validate:"required"`
	ReturnHubID   types.ID
	PickupAt      time.Time `validate:"required"`
	ReturnAt      time.Time `validate:"required"`
	AddonIDs      []types.ID `validate:"max=1"`
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, pricing.Quote, error) {
	if cmd.Actor.ID == "" {
		return nil, pricing.Quote{}, types.Invalid("customer_id", "required")
	}
	if err := types.Validate(cmd); err != nil {
		return nil, pricing.Quote{}, err
	}
	now := s.now()
	pickup, ret := cmd.PickupAt.UTC(), cmd.ReturnAt.UTC()
	if pickup.Before(now.Add(-pickupGrace)) {
		return nil, pricing.Quote{}, types.Invalid("pickup_at", "in the past")
	}
	if ret.Before(pickup) {
		return nil, pricing.Quote{}, types.Invalid("return_at", "before pickup_at")
	}
	returnHub := cmd.ReturnHubID
	if returnHub == "" {
		returnHub = cmd.PickupHubID
	}
	for _, hubID := range []types.ID{cmd.PickupHubID, returnHub} {
		if _, err := s.inventory.Hub(ctx, hubID); err != nil {
			return nil, pricing.Quote{}, err
		}
	}

	quote, err := s.quoter.Quote(ctx, pricing.QuoteRequest{
		VehicleTypeID: cmd.VehicleTypeID,
		PickupAt:      pickup,
		ReturnAt:      ret,
		AddonIDs:      cmd.AddonIDs,
	})
	if err != nil {
		return nil, pricing.Quote{}, err
	}

	fleetSize, err := s.inventory.FleetSize(ctx, cmd.PickupHubID, cmd.VehicleTypeID)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	booked, err := s.repo.CountOverlapping(ctx, cmd.PickupHubID, cmd.VehicleTypeID, pickup, ret)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	if booked >= fleetSize {
		return nil, pricing.Quote{}, types.ErrVehicleUnavailable
	}

	b := &Booking{
		ID:              types.NewID(),
		CustomerID:      cmd.Actor.ID,
		VehicleTypeID:   cmd.VehicleTypeID,
		PickupHubID:     cmd.PickupHubID,
		ReturnHubID:     returnHub,
		PickupAt:        pickup,
		ReturnAt:        ret,
		AddonIDs:        cmd.AddonIDs,
		Status:          StatusReserved,
		StatusVersion:   0,
		EstimatedAmount: quote.Total,
		CreatedAt:       now,
	}
	ev := Transition{BookingID: b.ID, From: StatusNone, To: StatusReserved, Actor: cmd.Actor, At: now}.Event()
	if err := s.repo.Create(ctx, b, ev); err != nil {
		return nil, pricing.Quote{}, err
	}

	slog.InfoContext(ctx, "booking reserved",
		"booking_id", b.ID, "customer_id", b.CustomerID, "vehicle_type_id", b.VehicleTypeID, "total", quote.Total.String())
	events.Emit(ctx, s.events, events.BookingReserved, b)
	return b, quote, nil
}

// Get returns the booking when the actor owns it or is staff. Other callers see ErrNotFound.
func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b.CustomerID) {
		return nil, fmt.Errorf("booking %s: %w", id, types.ErrNotFound)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, actor types.Actor, f Filter) ([]Booking, error) {
	if !actor.IsStaff() {
		if actor.ID == "" {
			return nil, types.ErrForbidden
		}
		f.CustomerID = actor.ID
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Confirm(ctx context.Context, actor types.Actor, id types.ID) (*Booking, error) {
	if !actor.IsStaff() {
		return nil, types.ErrForbidden
	}
	return s.Transition(ctx, actor, id, StatusConfirmed, "")
}

func (s *Service) Cancel(ctx context.Context, actor types.Actor, id types.ID, reason string) (*Booking, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	handedOver, err := s.repo.HasPickupHandover(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if handedOver {
		return nil, &types.InvalidTransitionError{From: string(b.Status), To: string(StatusCancelled)}
	}
	return s.transition(ctx, actor, b, StatusCancelled, reason)
}

// Transition moves a booking to the target status when the lifecycle table allows it.
func (s *Service) Transition(ctx context.Context, actor types.Actor, id types.ID, to Status, reason string) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, b, to, reason)
}

func (s *Service) transition(ctx context.Context, actor types.Actor, b *Booking, to Status, reason string) (*Booking, error) {
	if err := CheckTransition(b.Status, to); err != nil {
		return nil, err
	}
	t := Transition{
		BookingID: b.ID,
		From:      b.Status,
		To:        to,
		Version:   b.StatusVersion,
		Reason:    reason,
		Actor:     actor,
		At:        s.now(),
	}
	ok, err := s.repo.UpdateStatus(ctx, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.lostRace(ctx, b.ID, to)
	}

	slog.InfoContext(ctx, "booking transition",
		"booking_id", b.ID, "from", t.From, "to", t.To, "actor", actor.Role)

	updated, err := s.repo.Get(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if key := routingKey(to); key != "" {
		events.Emit(ctx, s.events, key, updated)
	}
	return updated, nil
}

// lostRace explains a failed compare-and-swap from the row's current state.
func (s *Service) lostRace(ctx context.Context, id types.ID, to Status) error {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return errors.Join(types.ErrConflict, err)
	}
	if to == StatusCancelled && cur.Status.Holding() {
		handedOver, err := s.repo.HasPickupHandover(ctx, id)
		if err == nil && handedOver {
			return &types.InvalidTransitionError{From: string(cur.Status), To: string(to)}
		}
	}
	if !CanTransition(cur.Status, to) {
		return &types.InvalidTransitionError{From: string(cur.Status), To: string(to)}
	}
	return types.ErrConflict
}

func routingKey(to Status) string {
	switch to {
	case StatusConfirmed:
		return events.BookingConfirmed
	case StatusCancelled:
		return events.BookingCancelled
	}
	return ""
}
