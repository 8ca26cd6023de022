// README: Pure tiered rate calculation shared by quoting and invoicing.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/types"
)

const day = 24 * time.Hour

// RentalDays returns the number of started 24h periods between pickup and return.
// The difference is an absolute duration, so DST shifts in local time do not
// change the result.
func RentalDays(pickup, ret time.Time) (int, error) {
	d := ret.Sub(pickup)
	if d < 0 {
		return 0, types.Invalid("return_at", "must not be before pickup_at")
	}
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days, nil
}

// Decompose splits totalDays greedily into 30-day months, 7-day weeks and days.
func Decompose(totalDays int) Breakdown {
	months := totalDays / DaysPerMonth
	r := totalDays % DaysPerMonth
	return Breakdown{
		Months:    months,
		Weeks:     r / DaysPerWeek,
		Days:      r % DaysPerWeek,
		TotalDays: totalDays,
	}
}

// Calculate prices a rental. Addons are charged for every rental day, not per tier.
func Calculate(pickup, ret time.Time, plan RatePlan, addons []Addon) (Quote, error) {
	if plan.Daily.IsNegative() || plan.Weekly.IsNegative() || plan.Monthly.IsNegative() {
		return Quote{}, types.Invalid("rate_plan", "rates must not be negative")
	}
	totalDays, err := RentalDays(pickup, ret)
	if err != nil {
		return Quote{}, err
	}
	b := Decompose(totalDays)

	rental := plan.Monthly.Mul(decimal.NewFromInt(int64(b.Months))).
		Add(plan.Weekly.Mul(decimal.NewFromInt(int64(b.Weeks)))).
		Add(plan.Daily.Mul(decimal.NewFromInt(int64(b.Days))))

	perDay := decimal.Zero
	for _, a := range addons {
		if a.PricePerDay.IsNegative() {
			return Quote{}, types.Invalid("addon", "price must not be negative")
		}
		perDay = perDay.Add(a.PricePerDay)
	}
	addon := perDay.Mul(decimal.NewFromInt(int64(totalDays)))

	rental = types.Round2(rental)
	addon = types.Round2(addon)
	return Quote{
		Breakdown:    b,
		RentalAmount: rental,
		AddonAmount:  addon,
		Total:        rental.Add(addon),
	}, nil
}
