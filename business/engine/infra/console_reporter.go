// Package infra contains infrastructure adapters for the engine context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/crossarb/crossarb/business/engine/domain"
	marketDomain "github.com/crossarb/crossarb/business/market/domain"
)

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Cross-Exchange Arbitrage Engine")
	fmt.Fprintln(r.out, "===============================")
	return nil
}

// ReportState outputs controller state transitions.
func (r *ConsoleReporter) ReportState(state domain.ExecutionState) {
	fmt.Fprintf(r.out, "[%s] state: %s\n",
		time.Now().Format("15:04:05"), strings.ToUpper(state.String()))
}

// ReportSnapshot outputs the collected quotes of one poll cycle.
func (r *ConsoleReporter) ReportSnapshot(snap marketDomain.Snapshot) {
	for _, res := range snap.Results {
		if res.Ok() {
			fmt.Fprintf(r.out, "[%s] %-10s %s = %s (taker %s%%)\n",
				snap.Timestamp.Format("15:04:05"), res.Venue,
				snap.Pair.String(), res.Quote.Price.StringFixed(2),
				res.Quote.TakerFee.Shift(2).StringFixed(3))
		} else {
			fmt.Fprintf(r.out, "[%s] %-10s unavailable: %v\n",
				snap.Timestamp.Format("15:04:05"), res.Venue, res.Err)
		}
	}
}

// ReportOpportunity outputs an evaluated opportunity to the console.
func (r *ConsoleReporter) ReportOpportunity(opp *domain.Opportunity) {
	if opp == nil {
		return
	}

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	if opp.IsProfitable() {
		fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY")
	} else {
		fmt.Fprintln(r.out, "EVALUATED DIRECTION (not profitable)")
	}
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:           %s\n", opp.Pair.String())
	fmt.Fprintf(r.out, "Direction:      %s\n", opp.Direction())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Buy  (%s):  $%s\n", opp.BuyVenue, opp.BuyPrice.StringFixed(2))
	fmt.Fprintf(r.out, "  Sell (%s):  $%s\n", opp.SellVenue, opp.SellPrice.StringFixed(2))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PER UNIT")
	fmt.Fprintf(r.out, "  Buy cost:       $%s\n", opp.BuyCost.StringFixed(4))
	fmt.Fprintf(r.out, "  Sell revenue:   $%s\n", opp.SellRevenue.StringFixed(4))
	fmt.Fprintf(r.out, "  Net:            $%s\n", opp.NetPerUnit.StringFixed(4))
	fmt.Fprintf(r.out, "  Slippage cost:  $%s\n", opp.SlippageCost.StringFixed(4))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRADE")
	fmt.Fprintf(r.out, "  Amount:         %s %s\n", opp.Amount.String(), opp.Pair.Base)
	fmt.Fprintf(r.out, "  Profit:         $%s (%s%%)\n",
		opp.ScaledProfit.StringFixed(2), opp.ScaledProfitPct.StringFixed(4))
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportActivity outputs activity log entries, flagging any that need
// operator follow-up.
func (r *ConsoleReporter) ReportActivity(entry domain.ActivityEntry) {
	marker := ""
	if entry.ManualFollowUp {
		marker = " !!!"
	}
	fmt.Fprintf(r.out, "[%s] %-8s %s%s\n",
		entry.Timestamp.Format("15:04:05"), entry.Severity, entry.Message, marker)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Engine stopped")
	return nil
}
