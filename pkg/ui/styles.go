// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
)

// Styles
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	PositiveValue = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	NegativeValue = lipgloss.NewStyle().
			Foreground(ColorDanger)

	MutedValue = lipgloss.NewStyle().
			Foreground(ColorMuted)

	WarningValue = lipgloss.NewStyle().
			Foreground(ColorWarning)

	CriticalValue = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorDanger)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	// State badges for the execution state machine.
	StateIdleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Bold(true)

	StateArmedStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StateCommitStyle = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StateAbortStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)
)
