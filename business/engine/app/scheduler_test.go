package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/logger"
)

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	flat := flatQuote()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{flat}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{flat}},
	)
	if err := h.controller.Arm(context.Background()); err != nil {
		t.Fatal(err)
	}

	scheduler := NewScheduler(h.controller, 10*time.Millisecond,
		logger.New(io.Discard, logger.LevelError, "test", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx)
	}()

	// Let a few cycles fire before canceling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	if h.buyGw.calls == 0 {
		t.Error("scheduler never drove a cycle")
	}
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	flat := flatQuote()
	h := newHarness(t, defaultConfig(true),
		&scriptedGateway{name: "binance", precision: 8, quotes: []marketDomain.Quote{flat}},
		&scriptedGateway{name: "kraken", precision: 8, quotes: []marketDomain.Quote{flat}},
	)

	scheduler := NewScheduler(h.controller, 0,
		logger.New(io.Discard, logger.LevelError, "test", nil))
	if scheduler.interval != 5*time.Second {
		t.Fatalf("default interval = %s, want 5s", scheduler.interval)
	}
}
