package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/business/engine/domain"
	marketApp "github.com/crossarb/crossarb/business/market/app"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
	"github.com/crossarb/crossarb/internal/logger"
)

// scriptedGateway returns canned quotes in sequence (the last repeats)
// and records every order it is asked to place.
type scriptedGateway struct {
	mu        sync.Mutex
	name      string
	precision int32
	canTrade  bool
	quotes    []marketDomain.Quote
	calls     int

	orders   []marketDomain.Side
	failSide map[marketDomain.Side]error

	// onFetch and onOrder run outside the gateway lock with the
	// zero-based call index; tests use them to inject operator
	// commands while a cycle is in flight.
	onFetch func(call int)
	onOrder func(side marketDomain.Side)
}

func (s *scriptedGateway) Name() string   { return s.name }
func (s *scriptedGateway) CanTrade() bool { return s.canTrade }

func (s *scriptedGateway) FetchQuote(_ context.Context, pair marketDomain.Pair) (*marketDomain.Quote, error) {
	s.mu.Lock()

	if len(s.quotes) == 0 {
		s.mu.Unlock()
		return nil, apperror.Fetch(apperror.CodeVenueUnavailable, s.name, nil)
	}
	idx := s.calls
	if idx >= len(s.quotes) {
		idx = len(s.quotes) - 1
	}
	call := s.calls
	s.calls++

	q := s.quotes[idx]
	q.Venue = s.name
	q.Pair = pair
	q.Precision = s.precision
	q.Timestamp = time.Now()
	hook := s.onFetch
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return &q, nil
}

func (s *scriptedGateway) fetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedGateway) RoundAmount(_ marketDomain.Pair, amount decimal.Decimal) decimal.Decimal {
	return amount.RoundFloor(s.precision)
}

func (s *scriptedGateway) PlaceMarketOrder(_ context.Context, pair marketDomain.Pair, side marketDomain.Side, amount decimal.Decimal) (*marketDomain.OrderResult, error) {
	s.mu.Lock()
	hook := s.onOrder
	if err, ok := s.failSide[side]; ok {
		s.mu.Unlock()
		return nil, err
	}
	s.orders = append(s.orders, side)
	s.mu.Unlock()

	if hook != nil {
		hook(side)
	}
	return &marketDomain.OrderResult{
		Venue:     s.name,
		Pair:      pair,
		Side:      side,
		Amount:    amount,
		OrderID:   "order-1",
		Timestamp: time.Now(),
	}, nil
}

func (s *scriptedGateway) placedOrders() []marketDomain.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]marketDomain.Side, len(s.orders))
	copy(out, s.orders)
	return out
}

// recordingReporter captures everything the controller reports.
type recordingReporter struct {
	mu     sync.Mutex
	states []domain.ExecutionState
}

func (r *recordingReporter) Start(context.Context) error                { return nil }
func (r *recordingReporter) ReportSnapshot(marketDomain.Snapshot)       {}
func (r *recordingReporter) ReportOpportunity(*domain.Opportunity)      {}
func (r *recordingReporter) ReportActivity(domain.ActivityEntry)        {}
func (r *recordingReporter) Stop() error                                { return nil }

func (r *recordingReporter) ReportState(state domain.ExecutionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingReporter) stateHistory() []domain.ExecutionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ExecutionState, len(r.states))
	copy(out, r.states)
	return out
}

// profitableQuotes yields a binance/kraken spread that clears a 1%
// threshold: the worked numbers from the evaluator tests.
func profitableQuotes() (marketDomain.Quote, marketDomain.Quote) {
	buy := marketDomain.Quote{
		Price:       decimal.RequireFromString("100"),
		TakerFee:    decimal.RequireFromString("0.001"),
		WithdrawFee: decimal.RequireFromString("0.0005"),
	}
	sell := marketDomain.Quote{
		Price:    decimal.RequireFromString("102"),
		TakerFee: decimal.RequireFromString("0.001"),
	}
	return buy, sell
}

func flatQuote() marketDomain.Quote {
	return marketDomain.Quote{
		Price:    decimal.RequireFromString("100"),
		TakerFee: decimal.RequireFromString("0.001"),
	}
}

type controllerHarness struct {
	controller *Controller
	reporter   *recordingReporter
	buyGw      *scriptedGateway
	sellGw     *scriptedGateway
}

func newHarness(t *testing.T, cfg ControllerConfig, buyGw, sellGw *scriptedGateway) *controllerHarness {
	t.Helper()

	registry, err := marketApp.NewRegistry(buyGw, sellGw)
	if err != nil {
		t.Fatal(err)
	}

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	aggregator := marketApp.NewAggregator(registry, time.Second, log)
	evaluator := NewEvaluator(EvaluatorConfig{
		Investment:   decimal.RequireFromString("1000"),
		SlippageRate: decimal.RequireFromString("0.005"),
	}, registry)

	reporter := &recordingReporter{}
	controller := NewController(cfg, aggregator, evaluator, registry,
		domain.NewActivityLog(100), reporter, log)

	return &controllerHarness{
		controller: controller,
		reporter:   reporter,
		buyGw:      buyGw,
		sellGw:     sellGw,
	}
}

func defaultConfig(simulate bool) ControllerConfig {
	return ControllerConfig{
		Pair:               marketDomain.MustParsePair("BTC/USDT"),
		ProfitThresholdPct: decimal.NewFromInt(1),
		Simulate:           simulate,
	}
}

func activityContains(t *testing.T, c *Controller, substr string) bool {
	t.Helper()
	for _, e := range c.Activity().Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestArmTransitionsToMonitoring(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{buyQ}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{sellQ}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := h.controller.State(); got != domain.StateMonitoring {
		t.Fatalf("state after arm = %s, want %s", got, domain.StateMonitoring)
	}

	// A second arm is invalid outside Idle.
	err := h.controller.Arm(context.Background())
	if got := apperror.GetCode(err); got != apperror.CodeInvalidState {
		t.Errorf("second arm = %s, want %s", got, apperror.CodeInvalidState)
	}
}

func TestArmRealModeRequiresCredentials(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	h := newHarness(t, cfg,
		&scriptedGateway{name: "binance", precision: 8, canTrade: false, quotes: []marketDomain.Quote{buyQ}},
		&scriptedGateway{name: "kraken", precision: 8, canTrade: true, quotes: []marketDomain.Quote{sellQ}},
	)

	err := h.controller.Arm(context.Background())
	if got := apperror.GetCode(err); got != apperror.CodeCredentialsRequired {
		t.Fatalf("arm without credentials = %s, want %s", got, apperror.CodeCredentialsRequired)
	}
	if got := h.controller.State(); got != domain.StateIdle {
		t.Errorf("state after rejected arm = %s, want %s", got, domain.StateIdle)
	}
}

func TestSimulatedExecutionSettles(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{buyQ}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{sellQ}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	// Single-shot arm: settled cycles return to Idle.
	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after simulated cycle = %s, want %s", got, domain.StateIdle)
	}

	states := h.reporter.stateHistory()
	want := []domain.ExecutionState{
		domain.StateMonitoring, domain.StateVerifying, domain.StateCommitting,
		domain.StateSettled, domain.StateIdle,
	}
	if len(states) != len(want) {
		t.Fatalf("state history = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state history = %v, want %v", states, want)
		}
	}

	if !activityContains(t, h.controller, "simulated execution") {
		t.Error("activity log missing simulated execution entry")
	}
	if len(h.buyGw.placedOrders()) != 0 || len(h.sellGw.placedOrders()) != 0 {
		t.Error("simulation must not place real orders")
	}
}

func TestContinuousModeResumesMonitoring(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(true)
	cfg.Continuous = true

	h := newHarness(t, cfg,
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{buyQ}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{sellQ}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateMonitoring {
		t.Fatalf("state after continuous settle = %s, want %s", got, domain.StateMonitoring)
	}
}

func TestBelowThresholdStaysMonitoring(t *testing.T) {
	flat := flatQuote()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{flat}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{flat}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateMonitoring {
		t.Fatalf("state = %s, want %s", got, domain.StateMonitoring)
	}

	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateVerifying || s == domain.StateCommitting {
			t.Fatalf("unqualified opportunity must not reach %s", s)
		}
	}
}

func TestVerificationFailureResumesMonitoring(t *testing.T) {
	// Profitable on the first fetch, flat on the re-verification fetch.
	buyQ, sellQ := profitableQuotes()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{buyQ, flatQuote()}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{sellQ, flatQuote()}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateMonitoring {
		t.Fatalf("state after failed verification = %s, want %s", got, domain.StateMonitoring)
	}
	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateCommitting {
			t.Fatal("failed verification must never reach committing")
		}
	}
	if !activityContains(t, h.controller, "re-verification failed") {
		t.Error("activity log missing re-verification entry")
	}
}

func TestRealModeTwoLegCommit(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	h := newHarness(t, cfg,
		&scriptedGateway{name: "binance", precision: 8, canTrade: true, quotes: []marketDomain.Quote{buyQ}},
		&scriptedGateway{name: "kraken", precision: 8, canTrade: true, quotes: []marketDomain.Quote{sellQ}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after commit = %s, want %s", got, domain.StateIdle)
	}

	buyOrders := h.buyGw.placedOrders()
	sellOrders := h.sellGw.placedOrders()
	if len(buyOrders) != 1 || buyOrders[0] != marketDomain.SideBuy {
		t.Fatalf("buy venue orders = %v, want one buy", buyOrders)
	}
	if len(sellOrders) != 1 || sellOrders[0] != marketDomain.SideSell {
		t.Fatalf("sell venue orders = %v, want one sell", sellOrders)
	}
}

func TestBuyLegFailureAborts(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	buyGw := &scriptedGateway{
		name: "binance", precision: 8, canTrade: true,
		quotes:   []marketDomain.Quote{buyQ},
		failSide: map[marketDomain.Side]error{marketDomain.SideBuy: apperror.New(apperror.CodeOrderRejected)},
	}
	sellGw := &scriptedGateway{name: "kraken", precision: 8, canTrade: true, quotes: []marketDomain.Quote{sellQ}}

	h := newHarness(t, cfg, buyGw, sellGw)
	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after buy failure = %s, want %s (re-arm required)", got, domain.StateIdle)
	}
	if len(sellGw.placedOrders()) != 0 {
		t.Fatal("sell leg must not fire after a failed buy leg")
	}

	sawAborted := false
	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateAborted {
			sawAborted = true
		}
	}
	if !sawAborted {
		t.Error("state history missing aborted")
	}
	if !activityContains(t, h.controller, string(apperror.CodeBuyLegFailed)) {
		t.Error("activity log missing buy leg failure")
	}
}

func TestSellLegFailureIsCritical(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	buyGw := &scriptedGateway{name: "binance", precision: 8, canTrade: true, quotes: []marketDomain.Quote{buyQ}}
	sellGw := &scriptedGateway{
		name: "kraken", precision: 8, canTrade: true,
		quotes:   []marketDomain.Quote{sellQ},
		failSide: map[marketDomain.Side]error{marketDomain.SideSell: apperror.New(apperror.CodeOrderRejected)},
	}

	h := newHarness(t, cfg, buyGw, sellGw)
	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after sell failure = %s, want %s", got, domain.StateIdle)
	}
	if len(buyGw.placedOrders()) != 1 {
		t.Fatalf("buy orders = %v, want exactly one", buyGw.placedOrders())
	}

	var manual *domain.ActivityEntry
	for _, e := range h.controller.Activity().Entries() {
		if e.ManualFollowUp {
			entry := e
			manual = &entry
		}
	}
	if manual == nil {
		t.Fatal("sell leg failure must leave a manual follow-up entry")
	}
	if manual.Severity != apperror.SeverityCritical {
		t.Errorf("manual entry severity = %s, want %s", manual.Severity, apperror.SeverityCritical)
	}
}

func TestStopBetweenCyclesReturnsToIdle(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{buyQ}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{sellQ}},
	)

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.Stop()

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after stop = %s, want %s", got, domain.StateIdle)
	}

	// A cycle after the stop is a no-op: no orders, no state churn.
	h.controller.RunCycle(context.Background())
	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after post-stop cycle = %s, want %s", got, domain.StateIdle)
	}
	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateCommitting {
			t.Fatal("stop must prevent any order path")
		}
	}
}

func TestMinimumRoundedAmountAcrossVenues(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	// Buy venue allows 8 decimals, sell venue only whole units.
	buyGw := &scriptedGateway{name: "binance", precision: 8, canTrade: true, quotes: []marketDomain.Quote{buyQ}}
	sellGw := &scriptedGateway{name: "kraken", precision: 0, canTrade: true, quotes: []marketDomain.Quote{sellQ}}

	h := newHarness(t, cfg, buyGw, sellGw)
	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state = %s, want %s", got, domain.StateIdle)
	}
	if len(buyGw.placedOrders()) != 1 || len(sellGw.placedOrders()) != 1 {
		t.Fatalf("orders: buy=%v sell=%v, want one each", buyGw.placedOrders(), sellGw.placedOrders())
	}
}

func TestStopDuringCollectPreventsCommit(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	buyGw := &scriptedGateway{name: "binance", precision: 8, canTrade: true, quotes: []marketDomain.Quote{buyQ}}
	sellGw := &scriptedGateway{name: "kraken", precision: 8, canTrade: true, quotes: []marketDomain.Quote{sellQ}}
	h := newHarness(t, cfg, buyGw, sellGw)

	// The operator stops while the monitoring collect is still in
	// flight, well before any commit decision.
	buyGw.onFetch = func(int) { h.controller.Stop() }

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after mid-collect stop = %s, want %s", got, domain.StateIdle)
	}
	if buy, sell := buyGw.placedOrders(), sellGw.placedOrders(); len(buy) != 0 || len(sell) != 0 {
		t.Fatalf("stop before committing must place no orders, got buy=%v sell=%v", buy, sell)
	}
	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateVerifying || s == domain.StateCommitting {
			t.Fatalf("stopped cycle still advanced to %s", s)
		}
	}
}

func TestStopDuringVerificationPreventsCommit(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"

	buyGw := &scriptedGateway{name: "binance", precision: 8, canTrade: true, quotes: []marketDomain.Quote{buyQ}}
	sellGw := &scriptedGateway{name: "kraken", precision: 8, canTrade: true, quotes: []marketDomain.Quote{sellQ}}
	h := newHarness(t, cfg, buyGw, sellGw)

	// The stop lands during the re-verification fetch, after the
	// opportunity already qualified once.
	buyGw.onFetch = func(call int) {
		if call == 1 {
			h.controller.Stop()
		}
	}

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after mid-verify stop = %s, want %s", got, domain.StateIdle)
	}
	if buy, sell := buyGw.placedOrders(), sellGw.placedOrders(); len(buy) != 0 || len(sell) != 0 {
		t.Fatalf("stop before committing must place no orders, got buy=%v sell=%v", buy, sell)
	}
	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateCommitting {
			t.Fatal("stopped cycle must never reach committing")
		}
	}
}

func TestStopDuringCommitHonoredAfterSettle(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	cfg := defaultConfig(false)
	cfg.BuyVenue = "binance"
	cfg.SellVenue = "kraken"
	cfg.Continuous = true

	buyGw := &scriptedGateway{name: "binance", precision: 8, canTrade: true, quotes: []marketDomain.Quote{buyQ}}
	sellGw := &scriptedGateway{name: "kraken", precision: 8, canTrade: true, quotes: []marketDomain.Quote{sellQ}}
	h := newHarness(t, cfg, buyGw, sellGw)

	// A stop while the buy leg is in flight must not interrupt the
	// two-leg submission; it takes effect once the commit settles.
	buyGw.onOrder = func(marketDomain.Side) { h.controller.Stop() }

	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.controller.RunCycle(context.Background())

	if buy, sell := buyGw.placedOrders(), sellGw.placedOrders(); len(buy) != 1 || len(sell) != 1 {
		t.Fatalf("commit must run both legs to completion, got buy=%v sell=%v", buy, sell)
	}

	sawSettled := false
	for _, s := range h.reporter.stateHistory() {
		if s == domain.StateSettled {
			sawSettled = true
		}
	}
	if !sawSettled {
		t.Error("state history missing settled")
	}

	// Continuous mode would resume monitoring; the pending stop wins.
	if got := h.controller.State(); got != domain.StateIdle {
		t.Fatalf("state after stop-during-commit = %s, want %s", got, domain.StateIdle)
	}
}

func TestVerificationRequotesOnlyWinningVenues(t *testing.T) {
	buyQ, sellQ := profitableQuotes()
	buyGw := &scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{buyQ}}
	sellGw := &scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{sellQ}}
	bystander := &scriptedGateway{name: "uniswap", precision: 8, quotes: []marketDomain.Quote{flatQuote()}}

	registry, err := marketApp.NewRegistry(buyGw, sellGw, bystander)
	if err != nil {
		t.Fatal(err)
	}

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	aggregator := marketApp.NewAggregator(registry, time.Second, log)
	evaluator := NewEvaluator(EvaluatorConfig{
		Investment:   decimal.RequireFromString("1000"),
		SlippageRate: decimal.RequireFromString("0.005"),
	}, registry)
	reporter := &recordingReporter{}
	controller := NewController(defaultConfig(true), aggregator, evaluator, registry,
		domain.NewActivityLog(100), reporter, log)

	if err := controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}
	controller.RunCycle(context.Background())

	if got := controller.State(); got != domain.StateIdle {
		t.Fatalf("state after simulated cycle = %s, want %s", got, domain.StateIdle)
	}

	// Monitoring queried all three; re-verification re-quotes only the
	// winning direction.
	if got := bystander.fetchCalls(); got != 1 {
		t.Errorf("losing venue fetched %d times, want 1", got)
	}
	if got := buyGw.fetchCalls(); got != 2 {
		t.Errorf("buy venue fetched %d times, want 2", got)
	}
	if got := sellGw.fetchCalls(); got != 2 {
		t.Errorf("sell venue fetched %d times, want 2", got)
	}
}
