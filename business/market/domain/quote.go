package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a venue's view of a pair at one instant. Price is quoted in
// quote-currency units per base unit. TakerFee is a fraction (0.001 is
// 0.1%). WithdrawFee is charged in base-asset units on transfer out.
type Quote struct {
	Venue       string
	Pair        Pair
	Price       decimal.Decimal
	TakerFee    decimal.Decimal
	WithdrawFee decimal.Decimal
	// Precision is the number of decimal places the venue accepts for
	// order amounts in the base asset.
	Precision int32
	Timestamp time.Time
}

// Age returns how old the quote is.
func (q Quote) Age() time.Duration {
	return time.Since(q.Timestamp)
}

// RoundAmount floors amount to the venue's precision. Rounding never
// goes up, an order must not exceed available funds.
func (q Quote) RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundFloor(q.Precision)
}

// VenueResult is one venue's outcome within a snapshot: a quote or the
// error that prevented one.
type VenueResult struct {
	Venue string
	Quote *Quote
	Err   error
}

// Ok reports whether the venue produced a usable quote.
func (r VenueResult) Ok() bool {
	return r.Err == nil && r.Quote != nil
}

// Snapshot is one polling cycle's view of all venues. Results keep the
// configured venue order so downstream comparisons are deterministic.
type Snapshot struct {
	Pair      Pair
	Results   []VenueResult
	Timestamp time.Time
}

// NewSnapshot creates a snapshot stamped now.
func NewSnapshot(pair Pair, results []VenueResult) Snapshot {
	return Snapshot{Pair: pair, Results: results, Timestamp: time.Now()}
}

// Quotes returns the usable quotes in venue order.
func (s Snapshot) Quotes() []Quote {
	quotes := make([]Quote, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Ok() {
			quotes = append(quotes, *r.Quote)
		}
	}
	return quotes
}

// Failed returns the venue results that carry errors, in venue order.
func (s Snapshot) Failed() []VenueResult {
	failed := make([]VenueResult, 0)
	for _, r := range s.Results {
		if !r.Ok() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Lookup returns the quote for venue, if it produced one.
func (s Snapshot) Lookup(venue string) (Quote, bool) {
	for _, r := range s.Results {
		if r.Venue == venue && r.Ok() {
			return *r.Quote, true
		}
	}
	return Quote{}, false
}
