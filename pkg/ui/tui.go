// Package ui provides the Bubble Tea TUI for the arbitrage engine.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	engineDomain "github.com/crossarb/crossarb/business/engine/domain"
	"github.com/crossarb/crossarb/pkg/ui/components"
)

// ConnectionInfo holds a venue connection state and latency.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	quotes        *components.QuotesComponent
	opportunities *components.OpportunitiesComponent
	activity      *components.ActivityComponent

	keys     KeyMap
	quitting bool
	width    int
	height   int

	state       engineDomain.ExecutionState
	connections map[string]*ConnectionInfo
	lastUpdate  time.Time
	cycleCount  uint64
	errors      []ErrorEntry
}

// New creates a new TUI model.
func New() Model {
	return Model{
		quotes:        components.NewQuotesComponent(),
		opportunities: components.NewOpportunitiesComponent(50),
		activity:      components.NewActivityComponent(8),
		keys:          DefaultKeyMap(),
		state:         engineDomain.StateIdle,
		connections:   make(map[string]*ConnectionInfo),
		errors:        make([]ErrorEntry, 0, 3),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd drives periodic refresh so ages and elapsed times stay live.
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if OnQuit != nil {
				go OnQuit()
			}
			return m, tea.Quit
		case "a":
			// Callbacks run off the update loop; they land back as
			// StateMsg / ActivityMsg via Send.
			if OnArm != nil {
				go OnArm()
			}
			return m, nil
		case "s":
			if OnStop != nil {
				go OnStop()
			}
			return m, nil
		case "c":
			m.opportunities.Clear()
			return m, nil
		case "up", "k":
			m.opportunities.ScrollUp()
			return m, nil
		case "down", "j":
			m.opportunities.ScrollDown()
			return m, nil
		case "e":
			m.errors = make([]ErrorEntry, 0, 3)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tickCmd()

	case StateMsg:
		m.state = msg.State
		m.lastUpdate = time.Now()

	case SnapshotMsg:
		rows := make([]components.QuoteRow, 0, len(msg.Snapshot.Results))
		for _, res := range msg.Snapshot.Results {
			row := components.QuoteRow{Venue: res.Venue}
			if res.Ok() {
				row.Price = res.Quote.Price
				row.TakerFee = res.Quote.TakerFee
				row.Age = res.Quote.Age()
			} else if res.Err != nil {
				row.Err = res.Err.Error()
			}
			rows = append(rows, row)
		}
		m.quotes.Update(msg.Snapshot.Pair.String(), rows)
		m.cycleCount++
		m.lastUpdate = time.Now()

	case OpportunityMsg:
		if msg.Opportunity != nil {
			opp := msg.Opportunity
			m.opportunities.Add(components.OpportunityRow{
				Timestamp: opp.Timestamp.Format("15:04:05"),
				Direction: opp.Direction(),
				Amount:    opp.Amount,
				ProfitPct: opp.ScaledProfitPct,
				Profit:    opp.ScaledProfit,
				Qualified: opp.IsProfitable(),
			})
			m.lastUpdate = time.Now()
		}

	case ActivityMsg:
		m.activity.Add(components.ActivityRow{
			Timestamp: msg.Entry.Timestamp.Format("15:04:05"),
			Severity:  string(msg.Entry.Severity),
			Message:   msg.Entry.Message,
			Manual:    msg.Entry.ManualFollowUp,
		})
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.connections[msg.Venue] = &ConnectionInfo{
			Connected: msg.Connected,
			Latency:   msg.Latency,
			LastSeen:  time.Now(),
		}
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Cross-Exchange Arbitrage "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.quotes.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.activity.View())
	rightContent.WriteString("\n")
	rightContent.WriteString(m.opportunities.View())
	rightCol := rightContent.String()

	if m.width > 110 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 76
		}
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}

	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(NegativeValue.Render("  • " + err.Message + " "))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.activity.HasManual() {
		b.WriteString(CriticalValue.Render("  ⚠ MANUAL INTERVENTION REQUIRED, see activity log"))
		b.WriteString("\n\n")
	}

	b.WriteString(HelpStyle.Render("a: arm • s: stop • c: clear • ↑↓: scroll • q: quit"))

	return b.String()
}

// renderStatusBar shows the controller state, cycle count and venue
// connection status on one line.
func (m Model) renderStatusBar() string {
	var parts []string

	parts = append(parts, "State: "+m.stateStyle().Render(strings.ToUpper(m.state.String())))

	if m.cycleCount > 0 {
		parts = append(parts, fmt.Sprintf("Cycles: %d", m.cycleCount))
	}

	for name, info := range m.connections {
		var style lipgloss.Style
		var icon, status string
		if info != nil && info.Connected {
			style = PositiveValue
			icon = "●"
			if info.Latency > 0 {
				status = fmt.Sprintf("%s (%dms)", name, info.Latency.Milliseconds())
			} else {
				status = name
			}
		} else {
			style = NegativeValue
			icon = "○"
			status = name + " (disconnected)"
		}
		parts = append(parts, style.Render(icon+" "+status))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

func (m Model) stateStyle() lipgloss.Style {
	switch m.state {
	case engineDomain.StateMonitoring, engineDomain.StateVerifying:
		return StateArmedStyle
	case engineDomain.StateCommitting, engineDomain.StateSettled:
		return StateCommitStyle
	case engineDomain.StateAborted:
		return StateAbortStyle
	default:
		return StateIdleStyle
	}
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// Operator action callbacks, set by main before Run.
var (
	OnArm  func()
	OnStop func()
	OnQuit func()
)

// Run starts the Bubble Tea program and blocks until it exits.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
