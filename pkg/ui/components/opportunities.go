// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents an evaluated opportunity in the list.
type OpportunityRow struct {
	Timestamp string
	Direction string
	Amount    decimal.Decimal
	ProfitPct decimal.Decimal
	Profit    decimal.Decimal
	Qualified bool
}

// OpportunitiesComponent renders the opportunity history, newest first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
	}
}

// Add adds a new opportunity to the top of the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the view window toward older entries.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset < len(o.rows)-1 {
		o.offset++
	}
}

// ScrollDown moves the view window toward newer entries.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset > 0 {
		o.offset--
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	goodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("OPPORTUNITIES"))
	sb.WriteString("\n\n")

	if len(o.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No opportunities evaluated yet..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-8s  %-26s  %10s  %9s  %10s\n",
		"Time", "Direction", "Amount", "Net %", "Profit"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 70)) + "\n")

	visible := o.rows
	if o.offset > 0 && o.offset < len(o.rows) {
		visible = o.rows[o.offset:]
	}
	if len(visible) > 10 {
		visible = visible[:10]
	}

	for _, row := range visible {
		style := badStyle
		if row.Qualified {
			style = goodStyle
		}
		sb.WriteString(fmt.Sprintf("  %-8s  %-26s  %10s  %s  %s\n",
			row.Timestamp,
			row.Direction,
			row.Amount.String(),
			style.Render(fmt.Sprintf("%8s%%", row.ProfitPct.StringFixed(4))),
			style.Render(fmt.Sprintf("%10s", "$"+row.Profit.StringFixed(2))),
		))
	}

	return sb.String()
}
