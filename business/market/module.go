// Package market implements the market data bounded context: venue
// gateways and the quote aggregator.
package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/crossarb/crossarb/business/market/app"
	marketDI "github.com/crossarb/crossarb/business/market/di"
	"github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/business/market/infra/binance"
	"github.com/crossarb/crossarb/business/market/infra/kraken"
	"github.com/crossarb/crossarb/business/market/infra/uniswap"
	"github.com/crossarb/crossarb/internal/config"
	"github.com/crossarb/crossarb/internal/di"
	"github.com/crossarb/crossarb/internal/logger"
	"github.com/crossarb/crossarb/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers the venue registry and aggregator with the
// DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		registry, err := buildRegistry(sr, cfg, log)
		if err != nil {
			panic("failed to build venue registry: " + err.Error())
		}
		return registry
	})

	di.RegisterToken(c, marketDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := marketDI.GetRegistry(sr)

		return app.NewAggregator(registry, cfg.Venues.Timeout, log)
	})

	return nil
}

// buildRegistry constructs one gateway per enabled venue, preserving
// the configured order. That order is also the evaluator's tie-break
// order.
func buildRegistry(sr di.ServiceRegistry, cfg *config.Config, log logger.LoggerInterface) (*app.Registry, error) {
	gateways := make([]app.VenueGateway, 0, len(cfg.Venues.Enabled))

	for _, name := range cfg.Venues.Enabled {
		switch name {
		case "binance":
			gw, err := binance.NewGateway(binance.Config{
				APIKey:             cfg.Venues.Binance.APIKey,
				APISecret:          cfg.Venues.Binance.APISecret,
				WebSocketURL:       cfg.Venues.Binance.WebSocketURL,
				StreamEnabled:      cfg.Venues.Binance.StreamEnabled,
				StaleTimeout:       cfg.Venues.Binance.StaleTimeout,
				RequestsPerMinute:  cfg.Venues.Binance.RequestsPerMinute,
				DefaultTakerFee:    cfg.Engine.DefaultTakerFeeDecimal(),
				DefaultWithdrawFee: cfg.Engine.DefaultWithdrawFeeDecimal(),
			}, log)
			if err != nil {
				return nil, fmt.Errorf("binance gateway: %w", err)
			}
			gateways = append(gateways, gw)

		case "kraken":
			gw, err := kraken.NewGateway(kraken.Config{
				APIKey:             cfg.Venues.Kraken.APIKey,
				APISecret:          cfg.Venues.Kraken.APISecret,
				BaseURL:            cfg.Venues.Kraken.BaseURL,
				RequestsPerMinute:  cfg.Venues.Kraken.RequestsPerMinute,
				DefaultTakerFee:    cfg.Engine.DefaultTakerFeeDecimal(),
				DefaultWithdrawFee: cfg.Engine.DefaultWithdrawFeeDecimal(),
			}, log)
			if err != nil {
				return nil, fmt.Errorf("kraken gateway: %w", err)
			}
			gateways = append(gateways, gw)

		case "uniswap":
			ethClient, _ := sr.Get("ethClient").(*ethclient.Client)
			if ethClient == nil {
				return nil, fmt.Errorf("uniswap enabled but no ethereum client configured")
			}
			gw, err := uniswap.NewGateway(ethClient, uniswap.Config{
				QuoterAddress:  cfg.Venues.Ethereum.QuoterAddress,
				DefaultFeeTier: cfg.Venues.Ethereum.DefaultFeeTier,
			}, log)
			if err != nil {
				return nil, fmt.Errorf("uniswap gateway: %w", err)
			}
			gateways = append(gateways, gw)

		default:
			return nil, fmt.Errorf("unknown venue %q", name)
		}
	}

	return app.NewRegistry(gateways...)
}

// Startup connects streaming gateways. Stream failures degrade to REST
// polling, so they are logged, not fatal.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	pair, err := domain.ParsePair(cfg.Engine.Pair)
	if err != nil {
		return err
	}

	registry := marketDI.GetRegistry(mono.Services())
	for _, gw := range registry.All() {
		connector, ok := gw.(interface {
			Connect(context.Context, domain.Pair) error
		})
		if !ok {
			continue
		}
		if err := connector.Connect(ctx, pair); err != nil {
			log.Warn(ctx, "venue stream connection failed, REST fallback stays active",
				"venue", gw.Name(), "error", err)
		}
	}

	log.Info(ctx, "market module started", "venues", registry.Names())
	return nil
}
