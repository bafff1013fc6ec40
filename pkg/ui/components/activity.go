// Package components provides reusable TUI components.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ActivityRow represents one line of the activity feed.
type ActivityRow struct {
	Timestamp string
	Severity  string
	Message   string
	Manual    bool
}

// ActivityComponent renders the recent activity feed.
type ActivityComponent struct {
	rows    []ActivityRow
	maxRows int
}

// NewActivityComponent creates a new activity component.
func NewActivityComponent(maxRows int) *ActivityComponent {
	return &ActivityComponent{
		rows:    make([]ActivityRow, 0, maxRows),
		maxRows: maxRows,
	}
}

// Add appends a row, evicting the oldest past maxRows.
func (a *ActivityComponent) Add(row ActivityRow) {
	a.rows = append(a.rows, row)
	if len(a.rows) > a.maxRows {
		a.rows = a.rows[len(a.rows)-a.maxRows:]
	}
}

// HasManual reports whether any visible entry needs operator action.
func (a *ActivityComponent) HasManual() bool {
	for _, row := range a.rows {
		if row.Manual {
			return true
		}
	}
	return false
}

// View renders the activity component.
func (a *ActivityComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	criticalStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("ACTIVITY"))
	sb.WriteString("\n\n")

	if len(a.rows) == 0 {
		sb.WriteString(dimStyle.Render("  Waiting for activity..."))
		return sb.String()
	}

	for _, row := range a.rows {
		line := "  [" + row.Timestamp + "] " + row.Message
		switch {
		case row.Manual:
			sb.WriteString(criticalStyle.Render(line))
		case row.Severity == "critical", row.Severity == "error":
			sb.WriteString(errStyle.Render(line))
		case row.Severity == "warning":
			sb.WriteString(warnStyle.Render(line))
		default:
			sb.WriteString(dimStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
