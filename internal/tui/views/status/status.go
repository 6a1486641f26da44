package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shogun-panel/panel/internal/tui/client"
	"github.com/shogun-panel/panel/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected bool
	Panes     int
	Server    *client.Status
	Width     int
}

func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := max(m.Width, 40)

	var conn string
	if m.Connected {
		conn = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		conn = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	parts := []string{conn, fmt.Sprintf("%d panes", m.Panes)}
	if s := m.Server; s != nil {
		for _, b := range []client.BroadcasterStatus{s.Shogun, s.Monitor} {
			parts = append(parts, lipgloss.NewStyle().Foreground(theme.HealthColor(string(b.Health.Status))).Render(
				fmt.Sprintf("%s: %s %dms", b.Name, b.Health.Status, b.IntervalMS),
			))
		}
		parts = append(parts, fmt.Sprintf("workers %d/%d", s.InFlight, s.Workers))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(strings.Join(parts, sep))
}
