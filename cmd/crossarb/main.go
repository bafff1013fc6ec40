// Package main is the entry point for the cross-exchange arbitrage engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/crossarb/crossarb/business/engine"
	engineDI "github.com/crossarb/crossarb/business/engine/di"
	"github.com/crossarb/crossarb/business/market"
	marketDI "github.com/crossarb/crossarb/business/market/di"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apm"
	"github.com/crossarb/crossarb/internal/config"
	"github.com/crossarb/crossarb/internal/health"
	"github.com/crossarb/crossarb/internal/logger"
	"github.com/crossarb/crossarb/internal/metrics"
	"github.com/crossarb/crossarb/internal/monolith"
	"github.com/crossarb/crossarb/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("crossarb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, cancel, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Engine.TUIMode = tuiMode

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// The TUI owns the terminal; drop log output.
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting cross-exchange arbitrage engine",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(cfg.Telemetry.HealthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else if !tuiMode {
		log.Info(ctx, "health server started", "port", cfg.Telemetry.HealthPort)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Market first: the engine resolves the registry and aggregator.
	modules := []monolith.Module{
		&market.Module{},
		&engine.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		// TUI first, module startup in the background so the terminal
		// takes over immediately.
		startFunc := func() error {
			return mono.StartModules(ctx, modules...)
		}
		return runTUI(ctx, cancel, startFunc, mono)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	registerVenueChecks(healthServer, mono)

	return runCLI(ctx, mono, log)
}

// registerVenueChecks exposes per-venue quote reachability through the
// health endpoint.
func registerVenueChecks(server *health.Server, mono monolith.Monolith) {
	registry := marketDI.GetRegistry(mono.Services())
	pair, err := marketDomain.ParsePair(mono.Config().Engine.Pair)
	if err != nil {
		return
	}

	for _, gw := range registry.All() {
		gw := gw
		server.RegisterCheck("venue:"+gw.Name(), func(ctx context.Context) (bool, string) {
			if _, err := gw.FetchQuote(ctx, pair); err != nil {
				return false, err.Error()
			}
			return true, "quote ok"
		})
	}
}

func runCLI(ctx context.Context, mono monolith.Monolith, log *logger.Logger) error {
	controller := engineDI.GetController(mono.Services())
	scheduler := engineDI.GetScheduler(mono.Services())
	reporter := engineDI.GetReporter(mono.Services())
	cfg := mono.Config()

	// CLI mode arms immediately; the TUI waits for the operator.
	if err := controller.Arm(ctx); err != nil {
		return fmt.Errorf("failed to arm controller: %w", err)
	}
	log.Info(ctx, "controller armed, polling",
		"pair", cfg.Engine.Pair, "interval", cfg.Engine.PollInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := scheduler.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()

	log.Info(ctx, "shutting down")
	controller.Stop()
	if stopErr := reporter.Stop(); stopErr != nil {
		log.Error(ctx, "error stopping reporter", "error", stopErr)
	}
	return err
}

func runTUI(ctx context.Context, cancel context.CancelFunc, startFunc func() error, mono monolith.Monolith) error {
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		controller := engineDI.GetController(mono.Services())
		scheduler := engineDI.GetScheduler(mono.Services())

		ui.OnArm = func() {
			if err := controller.Arm(ctx); err != nil {
				ui.Send(ui.ErrorMsg{Error: err})
			}
		}
		ui.OnStop = func() {
			controller.Stop()
		}
		ui.OnQuit = cancel

		err := scheduler.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		errCh <- err
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
