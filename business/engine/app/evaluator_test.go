package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	marketApp "github.com/crossarb/crossarb/business/market/app"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
)

// stubGateway satisfies VenueGateway for evaluator and controller tests.
type stubGateway struct {
	name      string
	precision int32
}

func (s *stubGateway) Name() string { return s.name }

func (s *stubGateway) FetchQuote(context.Context, marketDomain.Pair) (*marketDomain.Quote, error) {
	return nil, apperror.Fetch(apperror.CodeVenueUnavailable, s.name, nil)
}

func (s *stubGateway) RoundAmount(_ marketDomain.Pair, amount decimal.Decimal) decimal.Decimal {
	return amount.RoundFloor(s.precision)
}

func (s *stubGateway) PlaceMarketOrder(context.Context, marketDomain.Pair, marketDomain.Side, decimal.Decimal) (*marketDomain.OrderResult, error) {
	return nil, apperror.New(apperror.CodeOrderRejected, apperror.WithVenue(s.name))
}

func (s *stubGateway) CanTrade() bool { return true }

func stubRegistry(t *testing.T, names ...string) *marketApp.Registry {
	t.Helper()
	gws := make([]marketApp.VenueGateway, 0, len(names))
	for _, n := range names {
		gws = append(gws, &stubGateway{name: n, precision: 8})
	}
	r, err := marketApp.NewRegistry(gws...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func quote(venue, price, takerFee, withdrawFee string) marketDomain.Quote {
	return marketDomain.Quote{
		Venue:       venue,
		Price:       decimal.RequireFromString(price),
		TakerFee:    decimal.RequireFromString(takerFee),
		WithdrawFee: decimal.RequireFromString(withdrawFee),
		Precision:   8,
		Timestamp:   time.Now(),
	}
}

func snapshotOf(pair string, quotes ...marketDomain.Quote) marketDomain.Snapshot {
	results := make([]marketDomain.VenueResult, 0, len(quotes))
	for i := range quotes {
		q := quotes[i]
		q.Pair = marketDomain.MustParsePair(pair)
		results = append(results, marketDomain.VenueResult{Venue: q.Venue, Quote: &q})
	}
	return marketDomain.NewSnapshot(marketDomain.MustParsePair(pair), results)
}

func newEvaluator(t *testing.T, investment, slippage string, venues ...string) *Evaluator {
	t.Helper()
	return NewEvaluator(EvaluatorConfig{
		Investment:   decimal.RequireFromString(investment),
		SlippageRate: decimal.RequireFromString(slippage),
	}, stubRegistry(t, venues...))
}

func TestBestOpportunityWorkedExample(t *testing.T) {
	// Buy at 100 (fee 0.1%, withdrawal 0.0005 base), sell at 102
	// (fee 0.1%), slippage reserve 0.5% of gross, budget 1000.
	ev := newEvaluator(t, "1000", "0.005", "binance", "kraken")
	snap := snapshotOf("BTC/USDT",
		quote("binance", "100", "0.001", "0.0005"),
		quote("kraken", "102", "0.001", "0"),
	)

	opp, err := ev.BestOpportunity(snap)
	if err != nil {
		t.Fatal(err)
	}

	if opp.BuyVenue != "binance" || opp.SellVenue != "kraken" {
		t.Fatalf("direction = %s, want buy@binance -> sell@kraken", opp.Direction())
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"buy_cost", opp.BuyCost, "100.15"},
		{"sell_revenue", opp.SellRevenue, "101.898"},
		{"gross_per_unit", opp.GrossPerUnit, "1.898"},
		{"net_per_unit", opp.NetPerUnit, "1.748"},
		{"slippage_cost", opp.SlippageCost, "0.00949"},
		{"net_after_slippage", opp.NetAfterSlippage, "1.73851"},
		{"amount", opp.Amount, "10"},
		{"scaled_profit", opp.ScaledProfit, "17.3851"},
		{"scaled_profit_pct", opp.ScaledProfitPct, "1.73851"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	// Clears a 1% threshold.
	if !opp.Qualifies(decimal.NewFromInt(1)) {
		t.Error("opportunity should clear a 1% threshold")
	}
}

func TestBestOpportunityDeterministic(t *testing.T) {
	ev := newEvaluator(t, "1000", "0.005", "binance", "kraken")
	snap := snapshotOf("BTC/USDT",
		quote("binance", "100", "0.001", "0.0005"),
		quote("kraken", "102", "0.001", "0"),
	)

	first, err := ev.BestOpportunity(snap)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := ev.BestOpportunity(snap)
		if err != nil {
			t.Fatal(err)
		}
		if again.Direction() != first.Direction() || !again.ScaledProfit.Equal(first.ScaledProfit) {
			t.Fatalf("run %d: %s %s differs from first %s %s",
				i, again.Direction(), again.ScaledProfit, first.Direction(), first.ScaledProfit)
		}
	}
}

func TestBestOpportunityNoSpreadIsUnprofitable(t *testing.T) {
	ev := newEvaluator(t, "1000", "0.005", "binance", "kraken")
	snap := snapshotOf("BTC/USDT",
		quote("binance", "100", "0.001", "0.0005"),
		quote("kraken", "100", "0.001", "0.0005"),
	)

	opp, err := ev.BestOpportunity(snap)
	if err != nil {
		t.Fatal(err)
	}
	if opp.IsProfitable() {
		t.Errorf("fees alone should make a zero spread unprofitable, got %s", opp.ScaledProfit)
	}
	if opp.NetPerUnit.Sign() >= 0 {
		t.Errorf("net per unit = %s, want negative", opp.NetPerUnit)
	}
}

func TestBestOpportunityZeroAmountGuard(t *testing.T) {
	registry, err := marketApp.NewRegistry(
		&stubGateway{name: "binance", precision: 0},
		&stubGateway{name: "kraken", precision: 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	ev := NewEvaluator(EvaluatorConfig{
		Investment:   decimal.RequireFromString("50"), // buys 0.5 units, floors to 0
		SlippageRate: decimal.Zero,
	}, registry)

	snap := snapshotOf("BTC/USDT",
		quote("binance", "100", "0.001", "0"),
		quote("kraken", "102", "0.001", "0"),
	)

	_, err = ev.BestOpportunity(snap)
	if got := apperror.GetCode(err); got != apperror.CodeZeroTradeAmount {
		t.Fatalf("BestOpportunity = %s, want %s", got, apperror.CodeZeroTradeAmount)
	}
}

func TestBestOpportunityPartialFailureTolerated(t *testing.T) {
	ev := newEvaluator(t, "1000", "0.005", "binance", "kraken")

	pair := marketDomain.MustParsePair("BTC/USDT")
	good := quote("binance", "100", "0.001", "0")
	good.Pair = pair
	snap := marketDomain.NewSnapshot(pair, []marketDomain.VenueResult{
		{Venue: "binance", Quote: &good},
		{Venue: "kraken", Err: apperror.Fetch(apperror.CodeVenueUnavailable, "kraken", nil)},
	})

	_, err := ev.BestOpportunity(snap)
	if got := apperror.GetCode(err); got != apperror.CodeNoValidOpportunity {
		t.Fatalf("single-quote snapshot = %s, want %s", got, apperror.CodeNoValidOpportunity)
	}
}

func TestBestOpportunityTieBreaksOnVenueOrder(t *testing.T) {
	// Zero fees and zero spread make both directions an exact tie at
	// zero profit; the first direction in venue order must win.
	ev := newEvaluator(t, "1000", "0", "binance", "kraken")
	snap := snapshotOf("BTC/USDT",
		quote("binance", "100", "0", "0"),
		quote("kraken", "100", "0", "0"),
	)

	opp, err := ev.BestOpportunity(snap)
	if err != nil {
		t.Fatal(err)
	}
	if opp.BuyVenue != "binance" || opp.SellVenue != "kraken" {
		t.Errorf("tie resolved to %s, want buy@binance -> sell@kraken", opp.Direction())
	}
}

func TestFeeMonotonicity(t *testing.T) {
	base := func(takerBuy, withdraw, slippage string) decimal.Decimal {
		ev := newEvaluator(t, "1000", slippage, "binance", "kraken")
		snap := snapshotOf("BTC/USDT",
			quote("binance", "100", takerBuy, withdraw),
			quote("kraken", "102", "0.001", "0"),
		)
		opp, err := ev.BestOpportunity(snap)
		if err != nil {
			t.Fatal(err)
		}
		return opp.NetAfterSlippage
	}

	reference := base("0.001", "0.0005", "0.005")

	if higher := base("0.002", "0.0005", "0.005"); higher.GreaterThan(reference) {
		t.Errorf("raising taker fee increased profit: %s > %s", higher, reference)
	}
	if higher := base("0.001", "0.001", "0.005"); higher.GreaterThan(reference) {
		t.Errorf("raising withdrawal fee increased profit: %s > %s", higher, reference)
	}
	if higher := base("0.001", "0.0005", "0.01"); higher.GreaterThan(reference) {
		t.Errorf("raising slippage rate increased profit: %s > %s", higher, reference)
	}
}

func TestEvaluateDirectionMissingQuote(t *testing.T) {
	ev := newEvaluator(t, "1000", "0.005", "binance", "kraken")
	snap := snapshotOf("BTC/USDT", quote("binance", "100", "0.001", "0"))

	_, err := ev.EvaluateDirection(snap, "binance", "kraken")
	if got := apperror.GetCode(err); got != apperror.CodeNoValidOpportunity {
		t.Fatalf("EvaluateDirection = %s, want %s", got, apperror.CodeNoValidOpportunity)
	}
}
