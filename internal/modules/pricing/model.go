// README: Rate plans, addons and the tiered month/week/day quote breakdown.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/types"
)

const (
	DaysPerMonth = 30
	DaysPerWeek  = 7
)

// RatePlan holds the independently configured rates of one vehicle type.
// Monthly is not derived from daily.
type RatePlan struct {
	VehicleTypeID types.ID
	Name          string
	Daily         decimal.Decimal
	Weekly        decimal.Decimal
	Monthly       decimal.Decimal
}

// Addon is an optional extra billed per rental day.
type Addon struct {
	ID          types.ID
	Name        string
	PricePerDay decimal.Decimal
}

type Breakdown struct {
	Months    int `json:"months"`
	Weeks     int `json:"weeks"`
	Days      int `json:"days"`
	TotalDays int `json:"total_days"`
}

type Quote struct {
	Breakdown
	RentalAmount decimal.Decimal `json:"rental_amount"`
	AddonAmount  decimal.Decimal `json:"addon_amount"`
	Total        decimal.Decimal `json:"total"`
}

type QuoteRequest struct {
	VehicleTypeID types.ID  `validate:"required"`
	PickupAt      time.Time `validate:"required"`
	ReturnAt      time.Time `validate:"required"`
	AddonIDs      []types.ID
}
