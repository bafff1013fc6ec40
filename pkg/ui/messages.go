// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import (
	"time"

	engineDomain "github.com/crossarb/crossarb/business/engine/domain"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
)

// Message types for TUI updates

// StateMsg is sent when the execution controller changes state.
type StateMsg struct {
	State engineDomain.ExecutionState
}

// SnapshotMsg is sent after every venue quote collection cycle.
type SnapshotMsg struct {
	Snapshot marketDomain.Snapshot
}

// OpportunityMsg is sent when an opportunity has been evaluated.
type OpportunityMsg struct {
	Opportunity *engineDomain.Opportunity
}

// ActivityMsg is sent for every new activity log entry.
type ActivityMsg struct {
	Entry engineDomain.ActivityEntry
}

// ConnectionStatusMsg is sent when a venue connection changes.
type ConnectionStatusMsg struct {
	Venue     string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
