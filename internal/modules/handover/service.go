// README: Handover processor binds a vehicle to a booking at pickup and parks it again at return.
package handover

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fleetrent/internal/events"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/types"
)

type Repository interface {
	CommitPickup(ctx context.Context, c PickupCommit) error
	CommitReturn(ctx context.Context, c ReturnCommit) error
	List(ctx context.Context, bookingID types.ID) ([]Handover, error)
}

type Bookings interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*booking.Booking, error)
}

type Fleet interface {
	Vehicle(ctx context.Context, id types.ID) (*fleet.Vehicle, error)
	Hub(ctx context.Context, id types.ID) (*fleet.Hub, error)
	HubPermitted(ctx context.Context, bookingHubID, vehicleHubID types.ID) (bool, error)
}

// Hold serialises pickups of one vehicle for a short window.
type Hold interface {
	Acquire(ctx context.Context, vehicleID types.ID) (release func(context.Context), err error)
}

type Service struct {
	repo     Repository
	bookings Bookings
	fleet    Fleet
	hold     Hold
	events   events.Publisher
	now      func() time.Time
}

func NewService(repo Repository, bookings Bookings, fleet Fleet, hold Hold, pub events.Publisher) *Service {
	return &Service{
		repo:     repo,
		bookings: bookings,
		fleet:    fleet,
		hold:     hold,
		events:   pub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Pickup(ctx context.Context, cmd PickupCommand) (*Handover, error) {
	if !cmd.Actor.IsStaff() {
		return nil, types.ErrForbidden
	}
	b, err := s.bookings.Get(ctx, cmd.Actor, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case booking.StatusActive:
		return nil, types.ErrAlreadyHandedOver
	case booking.StatusReserved, booking.StatusConfirmed:
	default:
		return nil, &types.InvalidTransitionError{From: string(b.Status), To: string(booking.StatusActive)}
	}
	if !cmd.FuelStatus.Valid() {
		return nil, types.Invalid("fuel_status", "must be one of full, 3/4, 1/2, 1/4, empty")
	}
	if cmd.VehicleID == "" {
		return nil, types.Invalid("vehicle_id", "required")
	}

	v, err := s.fleet.Vehicle(ctx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	permitted, err := s.fleet.HubPermitted(ctx, b.PickupHubID, v.HubID)
	if err != nil {
		return nil, err
	}
	if !permitted {
		return nil, types.Invalid("vehicle_id", "vehicle is not stationed at the pickup hub")
	}
	if !v.Available {
		return nil, s.unavailable(ctx, cmd)
	}

	release, err := s.hold.Acquire(ctx, v.ID)
	if err != nil {
		if errors.Is(err, types.ErrVehicleUnavailable) {
			return nil, s.unavailable(ctx, cmd)
		}
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	now := s.now()
	h := Handover{
		ID:          types.NewID(),
		BookingID:   b.ID,
		VehicleID:   v.ID,
		ProcessedBy: cmd.Actor.ID,
		FuelStatus:  cmd.FuelStatus,
		HubID:       v.HubID,
		Direction:   DirectionPickup,
		CreatedAt:   now,
	}
	err = s.repo.CommitPickup(ctx, PickupCommit{
		Handover:       h,
		VehicleVersion: v.Version,
		Transition: booking.Transition{
			BookingID: b.ID,
			From:      b.Status,
			To:        booking.StatusActive,
			Version:   b.StatusVersion,
			VehicleID: &v.ID,
			Actor:     cmd.Actor,
			At:        now,
		},
	})
	switch {
	case errors.Is(err, errBookingMoved):
		return nil, s.bookingMoved(ctx, cmd)
	case errors.Is(err, types.ErrVehicleUnavailable):
		return nil, s.unavailable(ctx, cmd)
	case err != nil:
		return nil, err
	}

	slog.InfoContext(ctx, "booking transition",
		"booking_id", b.ID, "from", b.Status, "to", booking.StatusActive, "actor", cmd.Actor.Role, "vehicle_id", v.ID)
	events.Emit(ctx, s.events, events.HandoverPickup, h)
	return &h, nil
}

func (s *Service) Return(ctx context.Context, cmd ReturnCommand) (*Handover, error) {
	if !cmd.Actor.IsStaff() {
		return nil, types.ErrForbidden
	}
	b, err := s.bookings.Get(ctx, cmd.Actor, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusActive || b.AssignedVehicleID == nil {
		return nil, &types.InvalidTransitionError{From: string(b.Status), To: string(booking.StatusReturned)}
	}
	if !cmd.FuelStatus.Valid() {
		return nil, types.Invalid("fuel_status", "must be one of full, 3/4, 1/2, 1/4, empty")
	}
	hubID := cmd.ReturnHubID
	if hubID == "" {
		hubID = b.ReturnHubID
	}
	if _, err := s.fleet.Hub(ctx, hubID); err != nil {
		return nil, err
	}

	existing, err := s.repo.List(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	for _, h := range existing {
		if h.Direction == DirectionReturn {
			return nil, types.ErrAlreadyHandedOver
		}
	}

	h := Handover{
		ID:          types.NewID(),
		BookingID:   b.ID,
		VehicleID:   *b.AssignedVehicleID,
		ProcessedBy: cmd.Actor.ID,
		FuelStatus:  cmd.FuelStatus,
		HubID:       hubID,
		Direction:   DirectionReturn,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CommitReturn(ctx, ReturnCommit{Handover: h}); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "vehicle returned", "booking_id", b.ID, "vehicle_id", h.VehicleID, "hub_id", hubID)
	events.Emit(ctx, s.events, events.HandoverReturn, h)
	return &h, nil
}

func (s *Service) List(ctx context.Context, actor types.Actor, bookingID types.ID) ([]Handover, error) {
	if _, err := s.bookings.Get(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, bookingID)
}

// unavailable reports ErrAlreadyHandedOver when the contended pickup turns out
// to be our own booking, else ErrVehicleUnavailable.
func (s *Service) unavailable(ctx context.Context, cmd PickupCommand) error {
	cur, err := s.bookings.Get(ctx, cmd.Actor, cmd.BookingID)
	if err == nil && cur.Status == booking.StatusActive {
		return types.ErrAlreadyHandedOver
	}
	return types.ErrVehicleUnavailable
}

func (s *Service) bookingMoved(ctx context.Context, cmd PickupCommand) error {
	cur, err := s.bookings.Get(ctx, cmd.Actor, cmd.BookingID)
	if err != nil {
		return errors.Join(types.ErrConflict, err)
	}
	switch cur.Status {
	case booking.StatusActive:
		return types.ErrAlreadyHandedOver
	case booking.StatusReserved, booking.StatusConfirmed:
		return types.ErrConflict
	}
	return &types.InvalidTransitionError{From: string(cur.Status), To: string(booking.StatusActive)}
}
