package app

import (
	"context"
	"time"

	"github.com/crossarb/crossarb/internal/logger"
)

// Scheduler drives the controller's poll cycles at a fixed interval.
// Cycles never overlap: the next tick fires only after the current
// cycle returns, so a slow cycle stretches the effective interval
// instead of stacking work.
type Scheduler struct {
	controller *Controller
	interval   time.Duration
	log        logger.LoggerInterface
}

// NewScheduler creates a scheduler over controller.
func NewScheduler(controller *Controller, interval time.Duration, log logger.LoggerInterface) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		controller: controller,
		interval:   interval,
		log:        log,
	}
}

// Run blocks until ctx is canceled, executing one cycle per tick. The
// wait between cycles is the engine's single suspension point.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(ctx, "scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scheduler stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			// RunCycle is synchronous; ticks that fire while it runs
			// coalesce into at most one pending tick.
			s.controller.RunCycle(ctx)
		}
	}
}
