// README: Common money value object used across modules.
package types

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Money is an amount in major currency units (e.g. rupees, not paise).
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: Round2(amount), Currency: currency}
}

// MinorUnits converts to the smallest currency unit. Only the payment
// gateway boundary deals in minor units.
func (m Money) MinorUnits() int64 {
	return m.Amount.Mul(hundred).Round(0).IntPart()
}

func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
