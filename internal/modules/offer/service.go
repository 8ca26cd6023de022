// README: Offer service creates offers and resolves the one applicable on a date.
package offer

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/types"
)

type Repository interface {
	Create(ctx context.Context, o *Offer) error
	ValidOn(ctx context.Context, at time.Time) ([]Offer, error)
	List(ctx context.Context) ([]Offer, error)
}

type Cache interface {
	Get(ctx context.Context, date time.Time) (*Offer, bool, error)
	Set(ctx context.Context, date time.Time, o *Offer) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

// NewService builds the service; cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

var hundred = decimal.NewFromInt(100)

func (s *Service) Create(ctx context.Context, actor types.Actor, cmd CreateCommand) (*Offer, error) {
	if actor.Role != types.RoleAdmin {
		return nil, types.ErrForbidden
	}
	if err := types.Validate(cmd); err != nil {
		return nil, err
	}
	if !cmd.DiscountPercent.IsPositive() || cmd.DiscountPercent.GreaterThan(hundred) {
		return nil, types.Invalid("discount_percent", "must be in (0, 100]")
	}
	if DateOf(cmd.EndsOn).Before(DateOf(cmd.StartsOn)) {
		return nil, types.Invalid("ends_on", "must not be before starts_on")
	}
	o := &Offer{
		ID:              types.NewID(),
		Name:            cmd.Name,
		DiscountPercent: cmd.DiscountPercent,
		StartsOn:        DateOf(cmd.StartsOn),
		EndsOn:          DateOf(cmd.EndsOn),
		Active:          true,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "offer cache invalidate failed", "err", err)
		}
	}
	slog.InfoContext(ctx, "offer created", "offer_id", o.ID, "discount_percent", o.DiscountPercent.String())
	return o, nil
}

func (s *Service) List(ctx context.Context) ([]Offer, error) {
	return s.repo.List(ctx)
}

// SelectFor returns the offer applicable on the UTC date of at, or nil.
// Cache failures fall back to the store.
func (s *Service) SelectFor(ctx context.Context, at time.Time) (*Offer, error) {
	if s.cache != nil {
		if o, ok, err := s.cache.Get(ctx, at); err == nil && ok {
			return o, nil
		} else if err != nil {
			slog.WarnContext(ctx, "offer cache read failed", "err", err)
		}
	}
	offers, err := s.repo.ValidOn(ctx, at)
	if err != nil {
		return nil, err
	}
	selected := Select(offers, at)
	if s.cache != nil {
		if err := s.cache.Set(ctx, at, selected); err != nil {
			slog.WarnContext(ctx, "offer cache write failed", "err", err)
		}
	}
	return selected, nil
}
