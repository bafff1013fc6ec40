// Package infra contains infrastructure adapters for the engine context.
package infra

import (
	"context"

	"github.com/crossarb/crossarb/business/engine/domain"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/pkg/ui"
)

// TUIReporter implements app.Reporter by forwarding every report as a
// Bubble Tea message. The program itself is started by main; Send is a
// no-op until it runs.
type TUIReporter struct{}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start initializes the TUI reporter.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportState forwards a state transition to the TUI.
func (r *TUIReporter) ReportState(state domain.ExecutionState) {
	ui.Send(ui.StateMsg{State: state})
}

// ReportSnapshot forwards collected quotes to the TUI.
func (r *TUIReporter) ReportSnapshot(snap marketDomain.Snapshot) {
	ui.Send(ui.SnapshotMsg{Snapshot: snap})
}

// ReportOpportunity forwards an evaluated opportunity to the TUI.
func (r *TUIReporter) ReportOpportunity(opp *domain.Opportunity) {
	if opp == nil {
		return
	}
	ui.Send(ui.OpportunityMsg{Opportunity: opp})
}

// ReportActivity forwards an activity log entry to the TUI.
func (r *TUIReporter) ReportActivity(entry domain.ActivityEntry) {
	ui.Send(ui.ActivityMsg{Entry: entry})
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	return nil
}
