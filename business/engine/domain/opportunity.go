// Package domain contains the core domain types for the engine context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	marketDomain "github.com/crossarb/crossarb/business/market/domain"
)

// Opportunity is one evaluated (buy venue, sell venue) direction for a
// pair. All per-unit figures are in quote currency; Amount is in base
// units, already floored to the buy venue's precision. Never cached
// across poll cycles, the prices it was computed from are only valid
// for the cycle that sampled them.
type Opportunity struct {
	Pair      marketDomain.Pair
	BuyVenue  string
	SellVenue string

	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal

	// Per-unit breakdown.
	BuyCost          decimal.Decimal // buy price + taker fee + withdrawal
	SellRevenue      decimal.Decimal // sell price - taker fee
	GrossPerUnit     decimal.Decimal // sellRevenue - buyPrice
	NetPerUnit       decimal.Decimal // sellRevenue - buyCost
	SlippageCost     decimal.Decimal // |grossPerUnit| * slippageRate
	NetAfterSlippage decimal.Decimal

	// Scaled to the tradable amount.
	Amount          decimal.Decimal
	ScaledProfit    decimal.Decimal
	ScaledProfitPct decimal.Decimal

	Timestamp time.Time
}

// IsProfitable reports whether the opportunity clears zero after fees
// and slippage.
func (o *Opportunity) IsProfitable() bool {
	return o.ScaledProfit.Sign() > 0
}

// Qualifies reports whether the opportunity clears both zero and the
// configured percentage threshold.
func (o *Opportunity) Qualifies(thresholdPct decimal.Decimal) bool {
	return o.IsProfitable() && o.ScaledProfitPct.GreaterThanOrEqual(thresholdPct)
}

// Direction describes the trade as "buy@binance -> sell@kraken".
func (o *Opportunity) Direction() string {
	return fmt.Sprintf("buy@%s -> sell@%s", o.BuyVenue, o.SellVenue)
}

// Summary renders a one-line human readable description.
func (o *Opportunity) Summary() string {
	return fmt.Sprintf("%s %s: net %s %s (%.4f%%) on %s %s",
		o.Pair, o.Direction(),
		o.ScaledProfit.StringFixed(4), o.Pair.Quote,
		o.ScaledProfitPct.InexactFloat64(),
		o.Amount, o.Pair.Base)
}
