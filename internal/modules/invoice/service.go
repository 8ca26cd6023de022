// README: Invoice generator computes final charges from the actual pickup and return times.
package invoice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fleetrent/internal/events"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/modules/handover"
	"fleetrent/internal/modules/offer"
	"fleetrent/internal/modules/pricing"
	"fleetrent/internal/types"
)

type Repository interface {
	Get(ctx context.Context, id types.ID) (*Invoice, error)
	GetByBooking(ctx context.Context, bookingID types.ID) (*Invoice, error)
	PickupHandover(ctx context.Context, bookingID types.ID) (*handover.Handover, error)
	ReturnHandover(ctx context.Context, bookingID types.ID) (*handover.Handover, error)
	Save(ctx context.Context, c SaveCommit) error
}

type Bookings interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*booking.Booking, error)
}

type Pricing interface {
	RatePlan(ctx context.Context, vehicleTypeID types.ID) (pricing.RatePlan, error)
	Addons(ctx context.Context, ids []types.ID) ([]pricing.Addon, error)
}

type Fleet interface {
	Vehicle(ctx context.Context, id types.ID) (*fleet.Vehicle, error)
}

type Offers interface {
	SelectFor(ctx context.Context, at time.Time) (*offer.Offer, error)
}

type Service struct {
	repo     Repository
	bookings Bookings
	pricing  Pricing
	fleet    Fleet
	offers   Offers
	events   events.Publisher
	currency string
	now      func() time.Time
}

type Deps struct {
	Repo     Repository
	Bookings Bookings
	Pricing  Pricing
	Fleet    Fleet
	Offers   Offers
	Events   events.Publisher
	Currency string
}

func NewService(d Deps) *Service {
	return &Service{
		repo:     d.Repo,
		bookings: d.Bookings,
		pricing:  d.Pricing,
		fleet:    d.Fleet,
		offers:   d.Offers,
		events:   d.Events,
		currency: d.Currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate prices the rental from the pickup handover to ActualReturnAt and
// stores the invoice. The booking must already have a return handover. An unpaid invoice for the booking is recomputed in place.
func (s *Service) Generate(ctx context.Context, cmd GenerateCommand) (*Invoice, error) {
	if !cmd.Actor.IsStaff() {
		return nil, types.ErrForbidden
	}
	if cmd.ActualReturnAt.IsZero() {
		return nil, types.Invalid("actual_return_at", "required")
	}
	b, err := s.bookings.Get(ctx, cmd.Actor, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusActive && b.Status != booking.StatusReturned {
		return nil, &types.InvalidTransitionError{From: string(b.Status), To: string(booking.StatusReturned)}
	}

	picked, err := s.repo.PickupHandover(ctx, b.ID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, &types.InvalidTransitionError{From: string(b.Status), To: string(booking.StatusReturned)}
	}
	if err != nil {
		return nil, err
	}
	// The return handover is what releases the vehicle; billing without it
	// would leave the vehicle rented.
	if _, err := s.repo.ReturnHandover(ctx, b.ID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, &types.InvalidTransitionError{From: string(b.Status), To: string(booking.StatusReturned)}
		}
		return nil, err
	}
	pickupAt := picked.CreatedAt.UTC()
	returnAt := cmd.ActualReturnAt.UTC()
	if returnAt.Before(pickupAt) {
		return nil, types.Invalid("actual_return_at", "before the pickup handover")
	}

	vehicle, err := s.fleet.Vehicle(ctx, picked.VehicleID)
	if err != nil {
		return nil, err
	}
	plan, err := s.pricing.RatePlan(ctx, vehicle.VehicleTypeID)
	if err != nil {
		return nil, err
	}
	addons, err := s.pricing.Addons(ctx, b.AddonIDs)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.Calculate(pickupAt, returnAt, plan, addons)
	if err != nil {
		return nil, err
	}
	applied, err := s.offers.SelectFor(ctx, returnAt)
	if err != nil {
		return nil, err
	}

	inv := Invoice{
		BookingID:      b.ID,
		PickupAt:       pickupAt,
		ActualReturnAt: returnAt,
		Breakdown:      quote.Breakdown,
		RentalAmount:   quote.RentalAmount,
		AddonAmount:    quote.AddonAmount,
		Currency:       s.currency,
		PaymentStatus:  PaymentPending,
		CreatedAt:      s.now(),
	}
	if applied != nil {
		inv.OfferID = &applied.ID
		inv.DiscountAmount = Discount(quote.Total, applied.DiscountPercent)
	}
	inv.TotalAmount = quote.Total.Sub(inv.DiscountAmount)

	commit := SaveCommit{}
	existing, err := s.repo.GetByBooking(ctx, b.ID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		inv.ID = types.NewID()
	case err != nil:
		return nil, err
	case existing.Paid():
		return nil, types.ErrAlreadyPaid
	default:
		inv.ID = existing.ID
		inv.CreatedAt = existing.CreatedAt
		inv.Version = existing.Version + 1
		v := existing.Version
		commit.Replace = &v
	}
	if b.Status == booking.StatusActive {
		commit.Transition = &booking.Transition{
			BookingID: b.ID,
			From:      booking.StatusActive,
			To:        booking.StatusReturned,
			Version:   b.StatusVersion,
			Actor:     cmd.Actor,
			At:        s.now(),
		}
	}
	commit.Invoice = inv
	if err := s.repo.Save(ctx, commit); err != nil {
		return nil, err
	}

	if commit.Transition != nil {
		slog.InfoContext(ctx, "booking transition",
			"booking_id", b.ID, "from", booking.StatusActive, "to", booking.StatusReturned, "actor", cmd.Actor.Role)
	}
	slog.InfoContext(ctx, "invoice generated",
		"invoice_id", inv.ID, "booking_id", b.ID, "total", inv.TotalAmount.String(), "version", inv.Version)
	events.Emit(ctx, s.events, events.InvoiceGenerated, inv)
	return &inv, nil
}

func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.bookings.Get(ctx, actor, inv.BookingID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetByBooking(ctx context.Context, actor types.Actor, bookingID types.ID) (*Invoice, error) {
	if _, err := s.bookings.Get(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	return s.repo.GetByBooking(ctx, bookingID)
}
