// README: Promotional offers applied to invoices by date.
package offer

import (
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/types"
)

// Offer is valid on every UTC calendar date in [StartsOn, EndsOn].
type Offer struct {
	ID              types.ID        `json:"id"`
	Name            string          `json:"name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	StartsOn        time.Time       `json:"starts_on"`
	EndsOn          time.Time       `json:"ends_on"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

type CreateCommand struct {
	Name            string          `validate:"required,max=120"`
	DiscountPercent decimal.Decimal
	StartsOn        time.Time `validate:"required"`
	EndsOn          time.Time `validate:"required"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (o Offer) ValidOn(at time.Time) bool {
	d := DateOf(at)
	return o.Active && !d.Before(DateOf(o.StartsOn)) && !d.After(DateOf(o.EndsOn))
}
