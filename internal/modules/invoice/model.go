// README: Invoice produced at return time and the discount arithmetic applied to it.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/pricing"
	"fleetrent/internal/types"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Invoice is immutable once PaymentStatus is success.
type Invoice struct {
	ID             types.ID  `json:"id"`
	BookingID      types.ID  `json:"booking_id"`
	PickupAt       time.Time `json:"pickup_at"`
	ActualReturnAt time.Time `json:"actual_return_at"`
	pricing.Breakdown
	RentalAmount    decimal.Decimal `json:"rental_amount"`
	AddonAmount     decimal.Decimal `json:"addon_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	OfferID         *types.ID       `json:"offer_id,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	ProviderOrderID *string         `json:"provider_order_id,omitempty"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

func (i *Invoice) Total() types.Money {
	return types.Money{Amount: i.TotalAmount, Currency: i.Currency}
}

func (i *Invoice) Paid() bool {
	return i.PaymentStatus == PaymentSuccess
}

type GenerateCommand struct {
	BookingID      types.ID
	ActualReturnAt time.Time
	Actor          types.Actor
}

// SaveCommit is applied in one transaction: insert or replace the invoice and
// optionally move the booking to returned.
type SaveCommit struct {
	Invoice Invoice
	// Replace carries the version of the invoice being recomputed, nil for a first invoice.
	Replace    *int
	Transition *booking.Transition
}

var hundred = decimal.NewFromInt(100)

// Discount returns round2(subtotal * pct / 100).
func Discount(subtotal, pct decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() {
		return decimal.Zero
	}
	return types.Round2(subtotal.Mul(pct).Div(hundred))
}
