package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crossarb/crossarb/business/engine/domain"
	marketApp "github.com/crossarb/crossarb/business/market/app"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
	"github.com/crossarb/crossarb/internal/logger"
)

const controllerTracer = "execution_controller"

// ControllerConfig holds the decision parameters for one controller
// instance.
type ControllerConfig struct {
	Pair marketDomain.Pair

	// BuyVenue and SellVenue pin a fixed direction. Both empty means
	// discovery mode across all ordered venue pairs.
	BuyVenue  string
	SellVenue string

	ProfitThresholdPct decimal.Decimal
	Simulate           bool

	// Continuous resumes Monitoring after Settled instead of returning
	// to Idle. Aborted always returns to Idle.
	Continuous bool
}

// Controller drives the arm/monitor/verify/commit state machine. One
// instance owns one (pair, buy venue, sell venue, investment)
// configuration; its state field has a single writer, the poll cycle,
// plus the stop path at safe points.
type Controller struct {
	config     ControllerConfig
	aggregator *marketApp.Aggregator
	evaluator  *Evaluator
	registry   *marketApp.Registry
	activity   *domain.ActivityLog
	reporter   Reporter
	log        logger.LoggerInterface
	tracer     trace.Tracer

	mu          sync.RWMutex
	state       domain.ExecutionState
	lastOpp     *domain.Opportunity
	cycleActive bool

	stopRequested atomic.Bool

	cycleCounter metric.Int64Counter
	oppCounter   metric.Int64Counter
	abortCounter metric.Int64Counter
	legCounter   metric.Int64Counter
}

// NewController creates a controller in the Idle state.
func NewController(
	cfg ControllerConfig,
	aggregator *marketApp.Aggregator,
	evaluator *Evaluator,
	registry *marketApp.Registry,
	activity *domain.ActivityLog,
	reporter Reporter,
	log logger.LoggerInterface,
) *Controller {
	meter := otel.Meter(controllerTracer)
	cycles, _ := meter.Int64Counter("engine_poll_cycles_total",
		metric.WithDescription("Poll cycles executed"))
	opps, _ := meter.Int64Counter("engine_opportunities_total",
		metric.WithDescription("Evaluated opportunities by qualification"))
	aborts, _ := meter.Int64Counter("engine_aborts_total",
		metric.WithDescription("Aborted commits by error code"))
	legs, _ := meter.Int64Counter("engine_order_legs_total",
		metric.WithDescription("Order legs by side and outcome"))

	return &Controller{
		config:       cfg,
		aggregator:   aggregator,
		evaluator:    evaluator,
		registry:     registry,
		activity:     activity,
		reporter:     reporter,
		log:          log,
		tracer:       otel.Tracer(controllerTracer),
		state:        domain.StateIdle,
		cycleCounter: cycles,
		oppCounter:   opps,
		abortCounter: aborts,
		legCounter:   legs,
	}
}

// State returns the current execution state.
func (c *Controller) State() domain.ExecutionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastOpportunity returns the most recently evaluated opportunity.
func (c *Controller) LastOpportunity() *domain.Opportunity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastOpp
}

// Activity returns the controller's activity log.
func (c *Controller) Activity() *domain.ActivityLog {
	return c.activity
}

// Arm enables monitoring. In real mode every venue that could carry a
// leg must be able to trade; otherwise the request is rejected and the
// state stays Idle.
func (c *Controller) Arm(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateIdle {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("cannot arm from %s", c.state)))
	}

	if !c.config.Simulate {
		if err := c.checkTradable(); err != nil {
			c.appendActivity(apperror.SeverityError, "arm rejected: "+err.Error())
			return err
		}
	}

	c.stopRequested.Store(false)
	c.transitionLocked(ctx, domain.StateMonitoring, "armed")
	return nil
}

// checkTradable verifies order-placement capability for real mode.
func (c *Controller) checkTradable() error {
	venues := []string{c.config.BuyVenue, c.config.SellVenue}
	if c.config.BuyVenue == "" && c.config.SellVenue == "" {
		venues = c.registry.Names()
	}

	tradable := 0
	for _, name := range venues {
		if name == "" {
			continue
		}
		gw, ok := c.registry.Lookup(name)
		if !ok {
			return apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext(fmt.Sprintf("unknown venue %s", name)))
		}
		if !gw.CanTrade() {
			if c.config.BuyVenue != "" || c.config.SellVenue != "" {
				return apperror.New(apperror.CodeCredentialsRequired,
					apperror.WithVenue(name))
			}
			continue
		}
		tradable++
	}

	// Discovery mode needs at least two venues that can carry a leg.
	if c.config.BuyVenue == "" && c.config.SellVenue == "" && tradable < 2 {
		return apperror.New(apperror.CodeCredentialsRequired,
			apperror.WithContext("fewer than two venues can place orders"))
	}
	return nil
}

// Stop requests a return to Idle. Between cycles it takes effect
// immediately. While a cycle is in flight it only flags the request;
// the cycle honors the flag at its next safe checkpoint and never
// mid-commit.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.StateIdle {
		return
	}
	if c.cycleActive || !c.state.CanStop() {
		c.stopRequested.Store(true)
		return
	}
	c.stopRequested.Store(false)
	c.transitionLocked(context.Background(), domain.StateIdle, "stopped")
}

// consumeStopLocked clears a pending stop request, transitioning to
// Idle when one was set. Callers hold c.mu.
func (c *Controller) consumeStopLocked(ctx context.Context) bool {
	if !c.stopRequested.CompareAndSwap(true, false) {
		return false
	}
	c.transitionLocked(ctx, domain.StateIdle, "stopped")
	return true
}

// advance is a cycle checkpoint: it moves the state machine from one
// pipeline state to the next, unless a stop claimed the cycle first or
// the state no longer matches. Returning false ends the cycle.
func (c *Controller) advance(ctx context.Context, from, to domain.ExecutionState, reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumeStopLocked(ctx) {
		return false
	}
	if c.state != from {
		return false
	}
	c.transitionLocked(ctx, to, reason)
	return true
}

// beginCycle claims the cycle while Monitoring. The flag keeps Stop
// from touching the state field while the pipeline is in flight.
func (c *Controller) beginCycle(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateMonitoring {
		return false
	}
	if c.consumeStopLocked(ctx) {
		return false
	}
	c.cycleActive = true
	return true
}

// endCycle releases the cycle and honors a stop that arrived while it
// was in flight.
func (c *Controller) endCycle(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cycleActive = false
	if c.state.CanStop() {
		c.consumeStopLocked(ctx)
	}
}

// RunCycle executes one poll cycle: collect, evaluate, and when a
// qualifying opportunity survives re-verification, commit. The
// scheduler guarantees cycles never overlap.
func (c *Controller) RunCycle(ctx context.Context) {
	if !c.beginCycle(ctx) {
		return
	}
	defer c.endCycle(ctx)

	ctx, span := c.tracer.Start(ctx, "controller.cycle",
		trace.WithAttributes(attribute.String("pair", c.config.Pair.String())))
	defer span.End()

	c.cycleCounter.Add(ctx, 1)

	snap := c.aggregator.Collect(ctx, c.config.Pair)
	c.reporter.ReportSnapshot(snap)

	opp, err := c.evaluate(snap)
	if err != nil {
		// Benign: missing quotes or zero-amount keep us monitoring.
		c.appendActivity(apperror.GetSeverity(err), "no opportunity: "+err.Error())
		c.log.Debug(ctx, "evaluation yielded no opportunity", "error", err)
		return
	}

	c.setLastOpportunity(opp)
	c.reporter.ReportOpportunity(opp)
	c.oppCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("qualified", opp.Qualifies(c.config.ProfitThresholdPct))))

	if !opp.Qualifies(c.config.ProfitThresholdPct) {
		c.appendActivity(apperror.SeverityInfo, fmt.Sprintf(
			"checked %s: %s%% below threshold %s%%",
			opp.Direction(), opp.ScaledProfitPct.StringFixed(4),
			c.config.ProfitThresholdPct))
		return
	}

	if !c.advance(ctx, domain.StateMonitoring, domain.StateVerifying,
		"opportunity qualifies: "+opp.Summary()) {
		return
	}

	verified, ok := c.verify(ctx, opp)
	if !ok {
		// A failed re-verification is a normal monitoring outcome.
		c.advance(ctx, domain.StateVerifying, domain.StateMonitoring,
			"verification did not hold, resuming monitoring")
		return
	}

	if !c.advance(ctx, domain.StateVerifying, domain.StateCommitting,
		"verified: "+verified.Summary()) {
		return
	}
	c.commit(ctx, verified)
}

// evaluate runs discovery or the pinned direction over a snapshot.
func (c *Controller) evaluate(snap marketDomain.Snapshot) (*domain.Opportunity, error) {
	if c.config.BuyVenue != "" && c.config.SellVenue != "" {
		return c.evaluator.EvaluateDirection(snap, c.config.BuyVenue, c.config.SellVenue)
	}
	return c.evaluator.BestOpportunity(snap)
}

// verify re-fetches fresh quotes for just the winning direction and
// re-runs the evaluator. This closes the race window between detection
// and action.
func (c *Controller) verify(ctx context.Context, opp *domain.Opportunity) (*domain.Opportunity, bool) {
	ctx, span := c.tracer.Start(ctx, "controller.verify",
		trace.WithAttributes(
			attribute.String("buy_venue", opp.BuyVenue),
			attribute.String("sell_venue", opp.SellVenue),
		))
	defer span.End()

	snap, err := c.aggregator.CollectVenues(ctx, c.config.Pair, opp.BuyVenue, opp.SellVenue)
	if err != nil {
		c.appendActivity(apperror.SeverityError, "re-verification impossible: "+err.Error())
		return nil, false
	}
	c.reporter.ReportSnapshot(snap)

	fresh, err := c.evaluator.EvaluateDirection(snap, opp.BuyVenue, opp.SellVenue)
	if err != nil {
		c.appendActivity(apperror.SeverityInfo, "re-verification lost quotes: "+err.Error())
		return nil, false
	}

	c.setLastOpportunity(fresh)
	c.reporter.ReportOpportunity(fresh)

	if !fresh.Qualifies(c.config.ProfitThresholdPct) {
		c.appendActivity(apperror.SeverityInfo, fmt.Sprintf(
			"re-verification failed: %s%% no longer qualifies", fresh.ScaledProfitPct.StringFixed(4)))
		return nil, false
	}
	return fresh, true
}

// commit drives the two-leg submission. Simulation settles immediately
// with no order calls. Each leg fires at most once.
func (c *Controller) commit(ctx context.Context, opp *domain.Opportunity) {
	ctx, span := c.tracer.Start(ctx, "controller.commit",
		trace.WithAttributes(attribute.Bool("simulate", c.config.Simulate)))
	defer span.End()

	if c.config.Simulate {
		c.appendActivity(apperror.SeverityInfo, "simulated execution: "+opp.Summary())
		c.log.Info(ctx, "simulated execution",
			"pair", opp.Pair.String(), "direction", opp.Direction(),
			"amount", opp.Amount, "profit", opp.ScaledProfit)
		c.settle(ctx)
		return
	}

	buyGw, ok := c.registry.Lookup(opp.BuyVenue)
	if !ok {
		c.abort(ctx, apperror.Commit(apperror.CodeInvalidTradeAmount,
			fmt.Sprintf("buy venue %s not registered", opp.BuyVenue), nil))
		return
	}
	sellGw, ok := c.registry.Lookup(opp.SellVenue)
	if !ok {
		c.abort(ctx, apperror.Commit(apperror.CodeInvalidTradeAmount,
			fmt.Sprintf("sell venue %s not registered", opp.SellVenue), nil))
		return
	}

	// Both venues must be able to absorb the amount: trade the smaller
	// of the two rounded values.
	amount := decimal.Min(
		buyGw.RoundAmount(opp.Pair, opp.Amount),
		sellGw.RoundAmount(opp.Pair, opp.Amount),
	)
	if amount.Sign() <= 0 {
		c.abort(ctx, apperror.Commit(apperror.CodeInvalidTradeAmount,
			fmt.Sprintf("amount %s rounds to zero across venues", opp.Amount), nil))
		return
	}

	buyOrder, err := buyGw.PlaceMarketOrder(ctx, opp.Pair, marketDomain.SideBuy, amount)
	if err != nil {
		// No funds left the account beyond the failed call.
		c.legCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("side", "buy"), attribute.String("outcome", "failed")))
		c.abort(ctx, apperror.Commit(apperror.CodeBuyLegFailed,
			fmt.Sprintf("buy %s %s on %s", amount, opp.Pair.Base, opp.BuyVenue), err))
		return
	}
	c.legCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("side", "buy"), attribute.String("outcome", "filled")))
	c.appendActivity(apperror.SeverityInfo, fmt.Sprintf(
		"buy leg filled on %s: %s %s (order %s)",
		opp.BuyVenue, amount, opp.Pair.Base, buyOrder.OrderID))

	sellOrder, err := sellGw.PlaceMarketOrder(ctx, opp.Pair, marketDomain.SideSell, amount)
	if err != nil {
		c.legCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("side", "sell"), attribute.String("outcome", "failed")))
		// The dangerous failure mode: the buy filled, so the account
		// now holds an un-hedged base position on the buy venue.
		commitErr := apperror.Commit(apperror.CodeSellLegFailed,
			fmt.Sprintf("sell %s %s on %s after buy leg filled", amount, opp.Pair.Base, opp.SellVenue), err)
		c.activity.AppendManual(fmt.Sprintf(
			"MANUAL INTERVENTION: sell leg failed on %s; %s %s bought on %s is un-hedged (%v)",
			opp.SellVenue, amount, opp.Pair.Base, opp.BuyVenue, err))
		c.reporter.ReportActivity(c.latestActivity())
		c.log.Error(ctx, "sell leg failed after buy leg filled",
			"sell_venue", opp.SellVenue, "buy_venue", opp.BuyVenue,
			"amount", amount, "manual_intervention", true, "error", err)
		c.abortWithoutLog(ctx, commitErr)
		return
	}

	c.legCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("side", "sell"), attribute.String("outcome", "filled")))
	c.appendActivity(apperror.SeverityInfo, fmt.Sprintf(
		"sell leg filled on %s: %s %s (order %s)",
		opp.SellVenue, amount, opp.Pair.Base, sellOrder.OrderID))
	c.log.Info(ctx, "two-leg execution complete",
		"pair", opp.Pair.String(), "direction", opp.Direction(),
		"amount", amount,
		"buy_order", buyOrder.OrderID, "sell_order", sellOrder.OrderID)

	c.settle(ctx)
}

// settle finishes a successful decision cycle. A stop that arrived
// during the commit is honored here, after the legs completed.
func (c *Controller) settle(ctx context.Context) {
	c.setState(ctx, domain.StateSettled, "execution settled")

	if c.config.Continuous && !c.stopRequested.Load() {
		c.setState(ctx, domain.StateMonitoring, "continuous mode, resuming monitoring")
		return
	}
	c.stopRequested.Store(false)
	c.setState(ctx, domain.StateIdle, "single-shot arm complete")
}

// abort terminates the decision cycle. Aborted always returns to Idle;
// re-arming is an explicit operator action.
func (c *Controller) abort(ctx context.Context, err *apperror.AppError) {
	c.appendActivity(err.Severity, "aborted: "+err.Error())
	c.log.Error(ctx, "commit aborted", "code", err.Code, "error", err)
	c.abortWithoutLog(ctx, err)
}

func (c *Controller) abortWithoutLog(ctx context.Context, err *apperror.AppError) {
	c.abortCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", string(err.Code))))
	c.setState(ctx, domain.StateAborted, string(err.Code))
	c.setState(ctx, domain.StateIdle, "re-arm required")
	c.stopRequested.Store(false)
}

func (c *Controller) setState(ctx context.Context, state domain.ExecutionState, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitionLocked(ctx, state, reason)
}

func (c *Controller) transitionLocked(ctx context.Context, state domain.ExecutionState, reason string) {
	if c.state == state {
		return
	}
	if !c.state.CanTransitionTo(state) {
		c.log.Warn(ctx, "state transition rejected",
			"from", c.state, "to", state, "reason", reason)
		return
	}
	from := c.state
	c.state = state

	c.log.Info(ctx, "state transition", "from", from, "to", state, "reason", reason)
	c.activity.Append(apperror.SeverityInfo, fmt.Sprintf("%s -> %s: %s", from, state, reason))
	c.reporter.ReportState(state)
	c.reporter.ReportActivity(c.latestActivity())
}

func (c *Controller) setLastOpportunity(opp *domain.Opportunity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOpp = opp
}

func (c *Controller) appendActivity(severity apperror.Severity, message string) {
	c.activity.Append(severity, message)
	c.reporter.ReportActivity(c.latestActivity())
}

func (c *Controller) latestActivity() domain.ActivityEntry {
	entries := c.activity.Entries()
	if len(entries) == 0 {
		return domain.ActivityEntry{}
	}
	return entries[len(entries)-1]
}
