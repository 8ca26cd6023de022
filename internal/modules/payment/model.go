// README: Payment order and verification shapes exchanged with the gateway boundary.
package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/modules/booking"
	"fleetrent/internal/types"
)

// Order is what the client needs to open the provider checkout.
type Order struct {
	InvoiceID   types.ID        `json:"invoice_id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	AmountMinor int64           `json:"amount_minor"`
	Currency    string          `json:"currency"`
	KeyID       string          `json:"key_id"`

	// Settled is set when the invoice had nothing to collect and was paid without a provider order.
	Settled       bool   `json:"settled"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type VerifyCommand struct {
	InvoiceID         types.ID `validate:"required"`
	ProviderOrderID   string   `validate:"required"`
	ProviderPaymentID string   `validate:"required"`
	ProviderSignature string   `validate:"required"`
	Actor             types.Actor
}

type Receipt struct {
	InvoiceID     types.ID `json:"invoice_id"`
	TransactionID string   `json:"transaction_id"`
}

// Settlement marks the invoice paid and completes the booking in one transaction.
type Settlement struct {
	InvoiceID     types.ID
	TransactionID string
	At            time.Time
	Transition    booking.Transition
}
