// Package engine implements the arbitrage bounded context: evaluation,
// the execution controller and its poll scheduler.
package engine

import (
	"context"

	"github.com/crossarb/crossarb/business/engine/app"
	engineDI "github.com/crossarb/crossarb/business/engine/di"
	"github.com/crossarb/crossarb/business/engine/domain"
	"github.com/crossarb/crossarb/business/engine/infra"
	marketDI "github.com/crossarb/crossarb/business/market/di"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/config"
	"github.com/crossarb/crossarb/internal/di"
	"github.com/crossarb/crossarb/internal/logger"
	"github.com/crossarb/crossarb/internal/monolith"
)

// activityLimit bounds the in-memory activity log.
const activityLimit = 200

// Module implements the engine bounded context.
type Module struct{}

// RegisterServices registers the evaluator, controller, scheduler and
// reporter with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, engineDI.ActivityLog, func(di.ServiceRegistry) *domain.ActivityLog {
		return domain.NewActivityLog(activityLimit)
	})

	di.RegisterToken(c, engineDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Engine.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, engineDI.Evaluator, func(sr di.ServiceRegistry) *app.Evaluator {
		cfg := sr.Get("config").(*config.Config)
		registry := marketDI.GetRegistry(sr)

		return app.NewEvaluator(app.EvaluatorConfig{
			Investment:   cfg.Engine.InvestmentDecimal(),
			SlippageRate: cfg.Engine.SlippageRateDecimal(),
		}, registry)
	})

	di.RegisterToken(c, engineDI.Controller, func(sr di.ServiceRegistry) *app.Controller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pair, err := marketDomain.ParsePair(cfg.Engine.Pair)
		if err != nil {
			panic("invalid trading pair: " + err.Error())
		}

		return app.NewController(app.ControllerConfig{
			Pair:               pair,
			BuyVenue:           cfg.Engine.BuyVenue,
			SellVenue:          cfg.Engine.SellVenue,
			ProfitThresholdPct: cfg.Engine.ProfitThresholdDecimal(),
			Simulate:           cfg.Engine.Simulate,
			Continuous:         cfg.Engine.Continuous,
		},
			marketDI.GetAggregator(sr),
			engineDI.GetEvaluator(sr),
			marketDI.GetRegistry(sr),
			engineDI.GetActivityLog(sr),
			engineDI.GetReporter(sr),
			log,
		)
	})

	di.RegisterToken(c, engineDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewScheduler(engineDI.GetController(sr), cfg.Engine.PollInterval, log)
	})

	return nil
}

// Startup starts the reporter and, when not in simulation, logs the
// live-trading warning before the first cycle can run.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	reporter := engineDI.GetReporter(mono.Services())
	if err := reporter.Start(ctx); err != nil {
		return err
	}

	if !cfg.Engine.Simulate {
		log.Warn(ctx, "live trading enabled, orders will be placed with real funds",
			"pair", cfg.Engine.Pair)
	}

	log.Info(ctx, "engine module started",
		"pair", cfg.Engine.Pair,
		"investment", cfg.Engine.Investment,
		"threshold_pct", cfg.Engine.ProfitThresholdPct,
		"poll_interval", cfg.Engine.PollInterval,
		"simulate", cfg.Engine.Simulate,
	)
	return nil
}
