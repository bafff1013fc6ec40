// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// QuoteRow represents one venue's quote in the price table.
type QuoteRow struct {
	Venue    string
	Price    decimal.Decimal
	TakerFee decimal.Decimal
	Age      time.Duration
	Err      string
}

// QuotesComponent renders the per-venue quote table.
type QuotesComponent struct {
	rows []QuoteRow
	pair string
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{
		rows: make([]QuoteRow, 0),
	}
}

// Update replaces the quote data.
func (q *QuotesComponent) Update(pair string, rows []QuoteRow) {
	q.pair = pair
	q.rows = rows
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("VENUE QUOTES (%s)", q.pair)))
	sb.WriteString("\n\n")

	if len(q.rows) == 0 {
		sb.WriteString(dimStyle.Render("  Waiting for quotes..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-10s  %14s  %9s  %8s\n",
		"Venue", "Price", "Taker Fee", "Age"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 48)) + "\n")

	for _, row := range q.rows {
		if row.Err != "" {
			sb.WriteString(fmt.Sprintf("  %-10s  %s\n",
				row.Venue, errStyle.Render(row.Err)))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-10s  %14s  %8s%%  %8s\n",
			row.Venue,
			"$"+row.Price.StringFixed(2),
			row.TakerFee.Mul(decimal.NewFromInt(100)).StringFixed(3),
			row.Age.Round(time.Millisecond),
		))
	}

	return sb.String()
}
