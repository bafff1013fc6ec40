package app

import (
	"context"

	"github.com/crossarb/crossarb/business/engine/domain"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
)

// Reporter is the interface the engine pushes state through to the
// console or TUI layer.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportState announces a state machine transition.
	ReportState(state domain.ExecutionState)

	// ReportSnapshot delivers the per-venue quotes of a poll cycle.
	ReportSnapshot(snap marketDomain.Snapshot)

	// ReportOpportunity delivers the latest evaluated opportunity.
	ReportOpportunity(opp *domain.Opportunity)

	// ReportActivity delivers a new activity log entry.
	ReportActivity(entry domain.ActivityEntry)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
