// Package binance implements the Binance venue gateway over the
// official spot REST API, with an optional bookTicker stream.
package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gbinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crossarb/crossarb/business/market/app"
	"github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
	"github.com/crossarb/crossarb/internal/circuitbreaker"
	"github.com/crossarb/crossarb/internal/logger"
	"github.com/crossarb/crossarb/internal/ratelimit"
)

const (
	tracerName = "github.com/crossarb/crossarb/business/market/infra/binance"
	venueName  = "binance"
)

// Ensure Gateway implements VenueGateway.
var _ app.VenueGateway = (*Gateway)(nil)

// Config holds configuration for the Binance gateway.
type Config struct {
	APIKey            string
	APISecret         string
	WebSocketURL      string        // stream base URL (empty = default)
	StreamEnabled     bool          // keep a bookTicker stream as the price source
	StaleTimeout      time.Duration // streamed price older than this falls back to REST
	RequestsPerMinute int

	// Engine-wide conservative fallbacks, used when the venue cannot
	// tell us its real fees.
	DefaultTakerFee    decimal.Decimal
	DefaultWithdrawFee decimal.Decimal
}

// symbolMeta is the per-symbol metadata learned from exchange info.
type symbolMeta struct {
	precision int32
	known     bool
}

// Gateway implements the Binance venue adapter.
type Gateway struct {
	config  Config
	logger  logger.LoggerInterface
	client  *gbinance.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[decimal.Decimal]
	stream  *stream

	metaMu sync.RWMutex
	meta   map[string]symbolMeta

	feeMu sync.RWMutex
	fees  map[string]decimal.Decimal

	tracer trace.Tracer
}

// NewGateway creates the Binance gateway. Public market data works
// without credentials; order placement and real fee lookup need them.
func NewGateway(cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 5 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 1200
	}

	client := gbinance.NewClient(cfg.APIKey, cfg.APISecret)

	cbCfg := circuitbreaker.DefaultConfig("binance-rest")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	g := &Gateway{
		config:  cfg,
		logger:  log,
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[decimal.Decimal](cbCfg),
		meta:    make(map[string]symbolMeta),
		fees:    make(map[string]decimal.Decimal),
		tracer:  otel.Tracer(tracerName),
	}

	if cfg.StreamEnabled {
		s, err := newStream(cfg.WebSocketURL, log)
		if err != nil {
			return nil, err
		}
		g.stream = s
	}

	return g, nil
}

// Name returns the venue identifier.
func (g *Gateway) Name() string { return venueName }

// CanTrade reports whether order placement is possible.
func (g *Gateway) CanTrade() bool {
	return g.config.APIKey != "" && g.config.APISecret != ""
}

// Connect starts the bookTicker stream when streaming is enabled.
func (g *Gateway) Connect(ctx context.Context, pair domain.Pair) error {
	if g.stream == nil {
		return nil
	}
	return g.stream.Connect(ctx, pair.Symbol())
}

// Close shuts down the stream if one is running.
func (g *Gateway) Close() error {
	if g.stream != nil {
		return g.stream.Close()
	}
	return nil
}

// FetchQuote returns the current price, fees and precision for pair.
// A fresh streamed price is preferred; REST is the fallback.
func (g *Gateway) FetchQuote(ctx context.Context, pair domain.Pair) (*domain.Quote, error) {
	ctx, span := g.tracer.Start(ctx, "binance.fetch_quote",
		trace.WithAttributes(attribute.String("pair", pair.String())),
	)
	defer span.End()

	symbol := pair.Symbol()

	price, source, err := g.currentPrice(ctx, symbol)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("source", source))

	meta := g.loadMeta(ctx, symbol)

	return &domain.Quote{
		Venue:       venueName,
		Pair:        pair,
		Price:       price,
		TakerFee:    g.takerFee(ctx, symbol),
		WithdrawFee: g.withdrawFee(ctx, pair.Base),
		Precision:   meta.precision,
		Timestamp:   time.Now(),
	}, nil
}

func (g *Gateway) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, string, error) {
	if g.stream != nil {
		if price, ts, ok := g.stream.LastPrice(symbol); ok && time.Since(ts) <= g.config.StaleTimeout {
			return price, "stream", nil
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return decimal.Zero, "", apperror.Fetch(apperror.CodeVenueUnavailable, venueName, err)
	}

	price, err := g.breaker.Execute(func() (decimal.Decimal, error) {
		prices, err := g.client.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		if len(prices) == 0 {
			return decimal.Zero, fmt.Errorf("no price returned for %s", symbol)
		}
		return decimal.NewFromString(prices[0].Price)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return decimal.Zero, "", apperror.New(apperror.CodeCircuitOpen,
				apperror.WithVenue(venueName), apperror.WithCause(err))
		}
		return decimal.Zero, "", mapAPIError(err)
	}

	return price, "rest", nil
}

// loadMeta fetches and caches lot-size precision for symbol. Missing
// metadata degrades to "unknown", which leaves amounts unrounded.
func (g *Gateway) loadMeta(ctx context.Context, symbol string) symbolMeta {
	g.metaMu.RLock()
	meta, ok := g.meta[symbol]
	g.metaMu.RUnlock()
	if ok {
		return meta
	}

	info, err := g.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		g.logger.Warn(ctx, "exchange info unavailable, amounts stay unrounded",
			"venue", venueName, "symbol", symbol, "error", err)
		return symbolMeta{}
	}

	meta = symbolMeta{}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		if f := s.LotSizeFilter(); f != nil {
			meta = symbolMeta{precision: stepSizePrecision(f.StepSize), known: true}
		}
	}

	g.metaMu.Lock()
	g.meta[symbol] = meta
	g.metaMu.Unlock()
	return meta
}

// stepSizePrecision converts a lot step size ("0.00100000") into the
// number of meaningful decimal places.
func stepSizePrecision(step string) int32 {
	step = strings.TrimRight(step, "0")
	if i := strings.Index(step, "."); i >= 0 {
		return int32(len(step) - i - 1)
	}
	return 0
}

// takerFee resolves the fee chain: learned per-pair fee, then the
// engine-wide conservative default. Fallbacks are logged, never silent.
func (g *Gateway) takerFee(ctx context.Context, symbol string) decimal.Decimal {
	g.feeMu.RLock()
	fee, ok := g.fees[symbol]
	g.feeMu.RUnlock()
	if ok {
		return fee
	}

	if g.CanTrade() {
		details, err := g.client.NewTradeFeeService().Symbol(symbol).Do(ctx)
		if err == nil && len(details) > 0 {
			if fee, ferr := decimal.NewFromString(details[0].TakerCommission); ferr == nil {
				g.feeMu.Lock()
				g.fees[symbol] = fee
				g.feeMu.Unlock()
				return fee
			}
		}
		if err != nil {
			g.logger.Warn(ctx, "trade fee lookup failed, using fallback fee",
				"venue", venueName, "symbol", symbol,
				"fallback", g.config.DefaultTakerFee, "error", err)
		}
	} else {
		g.logger.Debug(ctx, "no credentials for fee lookup, using fallback fee",
			"venue", venueName, "symbol", symbol, "fallback", g.config.DefaultTakerFee)
	}

	return g.config.DefaultTakerFee
}

// withdrawFee returns the configured fallback. The spot API exposes
// withdrawal fees only through SAPI endpoints that need extra
// permissions, so the conservative default applies.
func (g *Gateway) withdrawFee(ctx context.Context, baseAsset string) decimal.Decimal {
	g.logger.Debug(ctx, "using fallback withdrawal fee",
		"venue", venueName, "asset", baseAsset, "fallback", g.config.DefaultWithdrawFee)
	return g.config.DefaultWithdrawFee
}

// RoundAmount floors amount to the learned lot-size precision. Unknown
// precision leaves the amount unchanged.
func (g *Gateway) RoundAmount(pair domain.Pair, amount decimal.Decimal) decimal.Decimal {
	g.metaMu.RLock()
	meta, ok := g.meta[pair.Symbol()]
	g.metaMu.RUnlock()

	if !ok || !meta.known {
		return amount
	}
	return amount.RoundFloor(meta.precision)
}

// PlaceMarketOrder submits a market order. Fire once per decision, no
// retries here.
func (g *Gateway) PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, amount decimal.Decimal) (*domain.OrderResult, error) {
	ctx, span := g.tracer.Start(ctx, "binance.place_market_order",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("side", string(side)),
			attribute.String("amount", amount.String()),
		),
	)
	defer span.End()

	if !g.CanTrade() {
		return nil, apperror.New(apperror.CodeCredentialsRequired, apperror.WithVenue(venueName))
	}
	if amount.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidTradeAmount,
			apperror.WithVenue(venueName),
			apperror.WithContext(fmt.Sprintf("amount %s", amount)))
	}

	orderSide := gbinance.SideTypeBuy
	if side == domain.SideSell {
		orderSide = gbinance.SideTypeSell
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithVenue(venueName), apperror.WithCause(err))
	}

	resp, err := g.client.NewCreateOrderService().
		Symbol(pair.Symbol()).
		Side(orderSide).
		Type(gbinance.OrderTypeMarket).
		Quantity(amount.String()).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, mapOrderError(err)
	}

	price := decimal.Zero
	if len(resp.Fills) > 0 {
		if p, perr := decimal.NewFromString(resp.Fills[0].Price); perr == nil {
			price = p
		}
	}

	g.logger.Info(ctx, "market order placed",
		"venue", venueName, "symbol", pair.Symbol(), "side", side,
		"amount", amount, "order_id", resp.OrderID)

	return &domain.OrderResult{
		Venue:     venueName,
		Pair:      pair,
		Side:      side,
		Amount:    amount,
		Price:     price,
		OrderID:   fmt.Sprintf("%d", resp.OrderID),
		Timestamp: time.Now(),
	}, nil
}

// mapAPIError translates Binance API errors into the fetch taxonomy.
func mapAPIError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1121: // invalid symbol
			return apperror.Fetch(apperror.CodePairNotSupported, venueName, err)
		case -1003, -1015: // too many requests / too many orders
			return apperror.Fetch(apperror.CodeVenueRateLimited, venueName, err)
		case -1002, -1022, -2014, -2015: // unauthorized / bad signature / bad key
			return apperror.Fetch(apperror.CodeVenueAuthFailed, venueName, err)
		}
	}
	return apperror.Fetch(apperror.CodeVenueUnavailable, venueName, err)
}

// mapOrderError translates order submission failures into the commit
// taxonomy.
func mapOrderError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1013: // filter failure, bad quantity
			return apperror.New(apperror.CodeInvalidTradeAmount,
				apperror.WithVenue(venueName), apperror.WithCause(err))
		case -2010, -2011: // new order rejected / cancel rejected
			return apperror.New(apperror.CodeOrderRejected,
				apperror.WithVenue(venueName), apperror.WithCause(err))
		case -2014, -2015, -1022:
			return apperror.New(apperror.CodeCredentialsRequired,
				apperror.WithVenue(venueName), apperror.WithCause(err))
		}
	}
	return apperror.New(apperror.CodeOrderRejected,
		apperror.WithVenue(venueName), apperror.WithCause(err))
}
