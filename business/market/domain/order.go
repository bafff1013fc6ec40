package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderResult reports a filled (or simulated) market order.
type OrderResult struct {
	Venue     string
	Pair      Pair
	Side      Side
	Amount    decimal.Decimal // base units actually submitted
	Price     decimal.Decimal // quote price at submission
	OrderID   string
	Simulated bool
	Timestamp time.Time
}

// Notional returns the quote-currency value of the order.
func (o OrderResult) Notional() decimal.Decimal {
	return o.Amount.Mul(o.Price)
}
