// Package kraken implements the Kraken venue gateway over the public
// and private REST API.
package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crossarb/crossarb/business/market/app"
	"github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
	"github.com/crossarb/crossarb/internal/httpclient"
	"github.com/crossarb/crossarb/internal/logger"
	"github.com/crossarb/crossarb/internal/ratelimit"
)

const (
	tracerName     = "github.com/crossarb/crossarb/business/market/infra/kraken"
	venueName      = "kraken"
	defaultBaseURL = "https://api.kraken.com"
)

// Ensure Gateway implements VenueGateway.
var _ app.VenueGateway = (*Gateway)(nil)

// Config holds configuration for the Kraken gateway.
type Config struct {
	APIKey            string
	APISecret         string // base64, as issued by Kraken
	BaseURL           string
	RequestsPerMinute int

	DefaultTakerFee    decimal.Decimal
	DefaultWithdrawFee decimal.Decimal
}

// pairMeta is per-pair metadata learned from AssetPairs: the response
// key Kraken wants back, lot precision, and the base taker fee tier.
type pairMeta struct {
	restName  string
	precision int32
	hasPrec   bool
	takerFee  decimal.Decimal
	hasFee    bool
}

// Gateway implements the Kraken venue adapter.
type Gateway struct {
	config  Config
	logger  logger.LoggerInterface
	client  httpclient.Client
	limiter *ratelimit.Limiter

	metaMu sync.RWMutex
	meta   map[string]pairMeta

	tracer trace.Tracer
}

// NewGateway creates the Kraken gateway.
func NewGateway(cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(venueName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		config:  cfg,
		logger:  log,
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		meta:    make(map[string]pairMeta),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Name returns the venue identifier.
func (g *Gateway) Name() string { return venueName }

// CanTrade reports whether order placement is possible.
func (g *Gateway) CanTrade() bool {
	return g.config.APIKey != "" && g.config.APISecret != ""
}

// krakenSymbol maps a pair onto Kraken's asset naming (BTC is XBT).
func krakenSymbol(pair domain.Pair) string {
	base := pair.Base
	if base == "BTC" {
		base = "XBT"
	}
	quote := pair.Quote
	if quote == "BTC" {
		quote = "XBT"
	}
	return base + quote
}

// FetchQuote returns price, fees and precision for pair. The taker fee
// comes from the public AssetPairs fee schedule; only when that lookup
// fails does the configured fallback apply.
func (g *Gateway) FetchQuote(ctx context.Context, pair domain.Pair) (*domain.Quote, error) {
	ctx, span := g.tracer.Start(ctx, "kraken.fetch_quote",
		trace.WithAttributes(attribute.String("pair", pair.String())),
	)
	defer span.End()

	symbol := krakenSymbol(pair)
	meta := g.loadMeta(ctx, symbol)

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperror.Fetch(apperror.CodeVenueUnavailable, venueName, err)
	}

	var tick tickerResponse
	resp, err := g.client.NewRequest().
		SetQueryParam("pair", symbol).
		SetResult(&tick).
		Get(ctx, "/0/public/Ticker")
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Fetch(apperror.CodeVenueUnavailable, venueName, err)
	}
	if resp.IsError() {
		return nil, g.mapHTTPStatus(resp.StatusCode)
	}
	if len(tick.Error) > 0 {
		return nil, mapKrakenError(tick.Error)
	}

	price, err := lastPrice(tick.Result)
	if err != nil {
		return nil, apperror.Fetch(apperror.CodeVenueUnavailable, venueName, err)
	}

	takerFee := g.config.DefaultTakerFee
	if meta.hasFee {
		takerFee = meta.takerFee
	} else {
		g.logger.Warn(ctx, "fee schedule unavailable, using fallback fee",
			"venue", venueName, "pair", pair.String(), "fallback", takerFee)
	}

	precision := int32(0)
	if meta.hasPrec {
		precision = meta.precision
	}

	return &domain.Quote{
		Venue:       venueName,
		Pair:        pair,
		Price:       price,
		TakerFee:    takerFee,
		WithdrawFee: g.config.DefaultWithdrawFee,
		Precision:   precision,
		Timestamp:   time.Now(),
	}, nil
}

func lastPrice(result map[string]tickerInfo) (decimal.Decimal, error) {
	for _, info := range result {
		if len(info.Last) == 0 {
			continue
		}
		return decimal.NewFromString(info.Last[0])
	}
	return decimal.Zero, fmt.Errorf("ticker result empty")
}

// loadMeta fetches and caches AssetPairs metadata for symbol. Failures
// degrade to empty metadata; fetch itself can still proceed.
func (g *Gateway) loadMeta(ctx context.Context, symbol string) pairMeta {
	g.metaMu.RLock()
	meta, ok := g.meta[symbol]
	g.metaMu.RUnlock()
	if ok {
		return meta
	}

	var pairs assetPairsResponse
	resp, err := g.client.NewRequest().
		SetQueryParam("pair", symbol).
		SetResult(&pairs).
		Get(ctx, "/0/public/AssetPairs")
	if err != nil || resp.IsError() || len(pairs.Error) > 0 {
		g.logger.Warn(ctx, "asset pair metadata unavailable",
			"venue", venueName, "symbol", symbol, "error", err)
		return pairMeta{}
	}

	meta = pairMeta{}
	for restName, info := range pairs.Result {
		meta.restName = restName
		meta.precision = info.LotDecimals
		meta.hasPrec = true
		for _, tier := range info.FeesTaker {
			// The zero-volume tier is the base fee, in percent.
			if len(tier) == 2 && tier[0] == 0 {
				meta.takerFee = decimal.NewFromFloat(tier[1]).Div(decimal.NewFromInt(100))
				meta.hasFee = true
			}
		}
		break
	}

	g.metaMu.Lock()
	g.meta[symbol] = meta
	g.metaMu.Unlock()
	return meta
}

// RoundAmount floors amount to the pair's lot precision when known.
func (g *Gateway) RoundAmount(pair domain.Pair, amount decimal.Decimal) decimal.Decimal {
	g.metaMu.RLock()
	meta, ok := g.meta[krakenSymbol(pair)]
	g.metaMu.RUnlock()

	if !ok || !meta.hasPrec {
		return amount
	}
	return amount.RoundFloor(meta.precision)
}

// PlaceMarketOrder submits a market order through the private API.
func (g *Gateway) PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, amount decimal.Decimal) (*domain.OrderResult, error) {
	ctx, span := g.tracer.Start(ctx, "kraken.place_market_order",
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

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithVenue(venueName), apperror.WithCause(err))
	}

	const path = "/0/private/AddOrder"
	nonce := strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)

	form := url.Values{}
	form.Set("nonce", nonce)
	form.Set("pair", krakenSymbol(pair))
	form.Set("type", string(side))
	form.Set("ordertype", "market")
	form.Set("volume", amount.String())

	sign, err := g.sign(path, nonce, form.Encode())
	if err != nil {
		return nil, apperror.New(apperror.CodeCredentialsRequired,
			apperror.WithVenue(venueName), apperror.WithCause(err))
	}

	var result addOrderResponse
	resp, err := g.client.NewRequest().
		SetHeader("API-Key", g.config.APIKey).
		SetHeader("API-Sign", sign).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode()).
		SetResult(&result).
		Post(ctx, path)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithVenue(venueName), apperror.WithCause(err))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithVenue(venueName),
			apperror.WithContext(fmt.Sprintf("http status %d", resp.StatusCode)))
	}
	if len(result.Error) > 0 {
		return nil, mapOrderError(result.Error)
	}

	orderID := ""
	if len(result.Result.TxIDs) > 0 {
		orderID = result.Result.TxIDs[0]
	}

	g.logger.Info(ctx, "market order placed",
		"venue", venueName, "pair", pair.String(), "side", side,
		"amount", amount, "order_id", orderID,
		"descr", result.Result.Descr.Order)

	return &domain.OrderResult{
		Venue:     venueName,
		Pair:      pair,
		Side:      side,
		Amount:    amount,
		OrderID:   orderID,
		Timestamp: time.Now(),
	}, nil
}

// sign computes the API-Sign header: HMAC-SHA512 of the URI path plus
// SHA256(nonce + body), keyed with the base64-decoded secret.
func (g *Gateway) sign(path, nonce, body string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(g.config.APISecret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	inner := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(inner[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (g *Gateway) mapHTTPStatus(status int) error {
	switch status {
	case 429:
		return apperror.Fetch(apperror.CodeVenueRateLimited, venueName, nil)
	case 401, 403:
		return apperror.Fetch(apperror.CodeVenueAuthFailed, venueName, nil)
	}
	return apperror.New(apperror.CodeVenueUnavailable,
		apperror.WithVenue(venueName),
		apperror.WithContext(fmt.Sprintf("http status %d", status)))
}

// mapKrakenError translates Kraken error strings ("EQuery:Unknown
// asset pair") into the fetch taxonomy.
func mapKrakenError(errs []string) error {
	joined := strings.Join(errs, "; ")
	first := ""
	if len(errs) > 0 {
		first = errs[0]
	}

	switch {
	case strings.Contains(first, "Unknown asset pair"), strings.Contains(first, "Unknown asset"):
		return apperror.New(apperror.CodePairNotSupported,
			apperror.WithVenue(venueName), apperror.WithContext(joined))
	case strings.Contains(first, "Rate limit"), strings.Contains(first, "Too many requests"):
		return apperror.New(apperror.CodeVenueRateLimited,
			apperror.WithVenue(venueName), apperror.WithContext(joined))
	case strings.Contains(first, "Invalid key"), strings.Contains(first, "Invalid signature"),
		strings.Contains(first, "Permission denied"), strings.Contains(first, "Invalid nonce"):
		return apperror.New(apperror.CodeVenueAuthFailed,
			apperror.WithVenue(venueName), apperror.WithContext(joined))
	}
	return apperror.New(apperror.CodeVenueUnavailable,
		apperror.WithVenue(venueName), apperror.WithContext(joined))
}

// mapOrderError translates AddOrder failures into the commit taxonomy.
func mapOrderError(errs []string) error {
	joined := strings.Join(errs, "; ")
	first := ""
	if len(errs) > 0 {
		first = errs[0]
	}

	switch {
	case strings.Contains(first, "Invalid key"), strings.Contains(first, "Invalid signature"),
		strings.Contains(first, "Permission denied"):
		return apperror.New(apperror.CodeCredentialsRequired,
			apperror.WithVenue(venueName), apperror.WithContext(joined))
	case strings.Contains(first, "volume minimum not met"), strings.Contains(first, "Invalid order"):
		return apperror.New(apperror.CodeInvalidTradeAmount,
			apperror.WithVenue(venueName), apperror.WithContext(joined))
	}
	return apperror.New(apperror.CodeOrderRejected,
		apperror.WithVenue(venueName), apperror.WithContext(joined))
}
