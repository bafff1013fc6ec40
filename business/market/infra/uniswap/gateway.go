// Package uniswap implements a read-only venue gateway over the
// Uniswap V3 QuoterV2 contract. It quotes prices but cannot place
// orders; execution there would need a signer and swap routing.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crossarb/crossarb/business/market/app"
	"github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
	"github.com/crossarb/crossarb/internal/circuitbreaker"
	"github.com/crossarb/crossarb/internal/logger"
)

const (
	tracerName = "github.com/crossarb/crossarb/business/market/infra/uniswap"
	meterName  = "github.com/crossarb/crossarb/business/market/infra/uniswap"
	venueName  = "uniswap"
)

// Ensure Gateway implements VenueGateway.
var _ app.VenueGateway = (*Gateway)(nil)

// Config holds configuration for the Uniswap gateway.
type Config struct {
	QuoterAddress  string
	DefaultFeeTier int
}

type gatewayMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Gateway implements the read-only Uniswap venue adapter.
type Gateway struct {
	client    *ethclient.Client
	quoter    common.Address
	quoterABI abi.ABI
	feeTiers  []int

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// NewGateway creates the Uniswap gateway on an already-dialed client.
func NewGateway(client *ethclient.Client, cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}

	feeTiers := []int{FeeTier005, FeeTier030, FeeTier100}
	if cfg.DefaultFeeTier > 0 {
		feeTiers = append([]int{cfg.DefaultFeeTier}, feeTiers...)
	}

	g := &Gateway{
		client:    client,
		quoter:    common.HexToAddress(cfg.QuoterAddress),
		quoterABI: parsedABI,
		feeTiers:  feeTiers,
		logger:    log,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("uniswap-quoter")),
		tracer:    otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	g.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	g.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	g.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	return err
}

// Name returns the venue identifier.
func (g *Gateway) Name() string { return venueName }

// CanTrade reports false: this venue only quotes.
func (g *Gateway) CanTrade() bool { return false }

// FetchQuote probes the pool with one base unit and derives the spot
// price from the returned amount. The taker fee is the winning pool's
// fee tier; there is no withdrawal fee on-chain.
func (g *Gateway) FetchQuote(ctx context.Context, pair domain.Pair) (*domain.Quote, error) {
	ctx, span := g.tracer.Start(ctx, "uniswap.fetch_quote",
		trace.WithAttributes(attribute.String("pair", pair.String())),
	)
	defer span.End()

	start := time.Now()
	g.metrics.quotesTotal.Add(ctx, 1)

	tokenIn, ok := mainnetTokens[pair.Base]
	if !ok {
		return nil, apperror.New(apperror.CodePairNotSupported,
			apperror.WithVenue(venueName),
			apperror.WithContext(fmt.Sprintf("no token mapping for %s", pair.Base)))
	}
	tokenOut, ok := mainnetTokens[pair.Quote]
	if !ok {
		return nil, apperror.New(apperror.CodePairNotSupported,
			apperror.WithVenue(venueName),
			apperror.WithContext(fmt.Sprintf("no token mapping for %s", pair.Quote)))
	}

	// One whole base token as the probe amount.
	amountIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenIn.decimals)), nil)

	var best *QuoteResult
	var bestFeeTier int
	for _, feeTier := range g.feeTiers {
		quote, err := g.quoteFeeTier(ctx, tokenIn.address, tokenOut.address, amountIn, feeTier)
		if err != nil {
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", feeTier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}
		if best == nil || quote.AmountOut.Cmp(best.AmountOut) > 0 {
			best = quote
			bestFeeTier = feeTier
		}
	}

	g.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if best == nil {
		g.metrics.quoteErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "no valid quote")
		return nil, apperror.New(apperror.CodeVenueUnavailable,
			apperror.WithVenue(venueName),
			apperror.WithContext("no pool answered for token pair"))
	}

	price := decimal.NewFromBigInt(best.AmountOut, -tokenOut.decimals)

	span.SetAttributes(
		attribute.String("price", price.String()),
		attribute.Int("fee_tier", bestFeeTier),
	)
	span.SetStatus(codes.Ok, "quote received")

	g.logger.Debug(ctx, "uniswap quote",
		"pair", pair.String(),
		"price", price.String(),
		"fee_tier", bestFeeTier,
		"gas_estimate", best.GasEstimate.String(),
	)

	return &domain.Quote{
		Venue:       venueName,
		Pair:        pair,
		Price:       price,
		TakerFee:    feeTierFraction(bestFeeTier),
		WithdrawFee: decimal.Zero,
		Precision:   tokenIn.decimals,
		Timestamp:   time.Now(),
	}, nil
}

// feeTierFraction converts a fee tier (hundredths of a bip) to a
// fraction: 3000 -> 0.003.
func feeTierFraction(feeTier int) decimal.Decimal {
	return decimal.New(int64(feeTier), -6)
}

func (g *Gateway) quoteFeeTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, feeTier int) (*QuoteResult, error) {
	callData, err := g.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := g.cb.Execute(func() ([]byte, error) {
		return g.client.CallContract(ctx, ethereum.CallMsg{
			To:   &g.quoter,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithVenue(venueName),
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", feeTier)))
	}

	outputs, err := g.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

// RoundAmount floors amount to the base token's decimals.
func (g *Gateway) RoundAmount(pair domain.Pair, amount decimal.Decimal) decimal.Decimal {
	tok, ok := mainnetTokens[pair.Base]
	if !ok {
		return amount
	}
	return amount.RoundFloor(tok.decimals)
}

// PlaceMarketOrder always fails: the gateway holds no signer.
func (g *Gateway) PlaceMarketOrder(_ context.Context, pair domain.Pair, side domain.Side, amount decimal.Decimal) (*domain.OrderResult, error) {
	return nil, apperror.New(apperror.CodeOrderRejected,
		apperror.WithVenue(venueName),
		apperror.WithContext(fmt.Sprintf("venue is quote-only, cannot %s %s %s", side, amount, pair)))
}
