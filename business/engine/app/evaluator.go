// Package app contains application services and port definitions for the engine context.
package app

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/business/engine/domain"
	marketApp "github.com/crossarb/crossarb/business/market/app"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
)

// EvaluatorConfig holds the profitability model parameters.
type EvaluatorConfig struct {
	Investment   decimal.Decimal // quote-currency budget per trade
	SlippageRate decimal.Decimal // fraction of gross profit reserved
}

// Evaluator computes fee- and slippage-adjusted profitability over a
// quote snapshot. It is a pure function of its inputs: the same
// snapshot always yields the same result, and nothing is memoized
// across cycles.
type Evaluator struct {
	config   EvaluatorConfig
	registry *marketApp.Registry
}

// NewEvaluator creates an Evaluator. The registry supplies per-venue
// amount rounding.
func NewEvaluator(cfg EvaluatorConfig, registry *marketApp.Registry) *Evaluator {
	return &Evaluator{config: cfg, registry: registry}
}

// BestOpportunity evaluates every ordered venue pair with both quotes
// present and returns the one with the strictly highest scaled profit
// percentage. Exact ties resolve to the first candidate in snapshot
// venue order. Returns NO_VALID_OPPORTUNITY when no pair could be
// evaluated, or ZERO_TRADE_AMOUNT when every candidate rounded to a
// zero amount.
func (e *Evaluator) BestOpportunity(snap marketDomain.Snapshot) (*domain.Opportunity, error) {
	quotes := snap.Quotes()
	if len(quotes) < 2 {
		return nil, apperror.New(apperror.CodeNoValidOpportunity,
			apperror.WithContext(fmt.Sprintf("%d of %d venues produced quotes", len(quotes), len(snap.Results))))
	}

	var best *domain.Opportunity
	sawZeroAmount := false

	for _, buy := range quotes {
		for _, sell := range quotes {
			if buy.Venue == sell.Venue {
				continue
			}

			opp, err := e.evaluateDirection(snap.Pair, buy, sell)
			if err != nil {
				if apperror.GetCode(err) == apperror.CodeZeroTradeAmount {
					sawZeroAmount = true
				}
				continue
			}

			// Strictly greater keeps the first candidate on ties.
			if best == nil || opp.ScaledProfitPct.GreaterThan(best.ScaledProfitPct) {
				best = opp
			}
		}
	}

	if best == nil {
		if sawZeroAmount {
			return nil, apperror.New(apperror.CodeZeroTradeAmount,
				apperror.WithContext(fmt.Sprintf("investment %s too small for venue lot sizes", e.config.Investment)))
		}
		return nil, apperror.New(apperror.CodeNoValidOpportunity)
	}

	return best, nil
}

// EvaluateDirection computes the opportunity for one fixed (buy, sell)
// direction out of the snapshot. Used by verification, where only the
// winning direction is re-checked.
func (e *Evaluator) EvaluateDirection(snap marketDomain.Snapshot, buyVenue, sellVenue string) (*domain.Opportunity, error) {
	buy, ok := snap.Lookup(buyVenue)
	if !ok {
		return nil, apperror.New(apperror.CodeNoValidOpportunity,
			apperror.WithContext(fmt.Sprintf("no quote from buy venue %s", buyVenue)))
	}
	sell, ok := snap.Lookup(sellVenue)
	if !ok {
		return nil, apperror.New(apperror.CodeNoValidOpportunity,
			apperror.WithContext(fmt.Sprintf("no quote from sell venue %s", sellVenue)))
	}

	return e.evaluateDirection(snap.Pair, buy, sell)
}

func (e *Evaluator) evaluateDirection(pair marketDomain.Pair, buy, sell marketDomain.Quote) (*domain.Opportunity, error) {
	if buy.Price.Sign() <= 0 || sell.Price.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeNoValidOpportunity,
			apperror.WithContext("non-positive price"))
	}

	one := decimal.NewFromInt(1)

	// Per-unit economics in quote currency. The withdrawal fee is in
	// base units and converts at the buy price.
	buyCost := buy.Price.Mul(one.Add(buy.TakerFee)).Add(buy.WithdrawFee.Mul(buy.Price))
	sellRevenue := sell.Price.Mul(one.Sub(sell.TakerFee))
	grossPerUnit := sellRevenue.Sub(buy.Price)
	netPerUnit := sellRevenue.Sub(buyCost)
	slippageCost := grossPerUnit.Abs().Mul(e.config.SlippageRate)
	netAfterSlippage := netPerUnit.Sub(slippageCost)

	// Scale to the amount the budget buys, floored at the buy venue.
	amount := e.roundAtVenue(buy.Venue, pair, e.config.Investment.Div(buy.Price))
	if amount.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeZeroTradeAmount,
			apperror.WithVenue(buy.Venue))
	}

	scaledProfit := netAfterSlippage.Mul(amount)
	notional := buy.Price.Mul(amount)
	scaledProfitPct := scaledProfit.Div(notional).Mul(decimal.NewFromInt(100))

	return &domain.Opportunity{
		Pair:             pair,
		BuyVenue:         buy.Venue,
		SellVenue:        sell.Venue,
		BuyPrice:         buy.Price,
		SellPrice:        sell.Price,
		BuyCost:          buyCost,
		SellRevenue:      sellRevenue,
		GrossPerUnit:     grossPerUnit,
		NetPerUnit:       netPerUnit,
		SlippageCost:     slippageCost,
		NetAfterSlippage: netAfterSlippage,
		Amount:           amount,
		ScaledProfit:     scaledProfit,
		ScaledProfitPct:  scaledProfitPct,
		Timestamp:        time.Now(),
	}, nil
}

// roundAtVenue floors amount via the venue's gateway. An unknown venue
// leaves the amount unchanged, matching gateway behavior for missing
// precision metadata.
func (e *Evaluator) roundAtVenue(venue string, pair marketDomain.Pair, amount decimal.Decimal) decimal.Decimal {
	gw, ok := e.registry.Lookup(venue)
	if !ok {
		return amount
	}
	return gw.RoundAmount(pair, amount)
}
