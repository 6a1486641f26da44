// Package theme provides the Lip Gloss color palette and reusable styles
// for the panel TUI. It is a leaf package with no internal imports to avoid
// import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Agent role colors.
var (
	ColorShogun   = lipgloss.Color("#f59e0b")
	ColorKaro     = lipgloss.Color("#a855f7")
	ColorAshigaru = lipgloss.Color("#3b82f6")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// Event kind colors.
var (
	ColorEventWS      = lipgloss.Color("#2563eb")
	ColorEventCommand = lipgloss.Color("#7c3aed")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// AgentColor returns the color for a pane id such as "karo" or "ashigaru3".
func AgentColor(id string) lipgloss.Color {
	switch {
	case strings.HasPrefix(id, "shogun"):
		return ColorShogun
	case strings.HasPrefix(id, "karo"):
		return ColorKaro
	case strings.HasPrefix(id, "ashigaru"):
		return ColorAshigaru
	default:
		return ColorDefault
	}
}

// HealthColor returns the color for a capture health status.
func HealthColor(status string) lipgloss.Color {
	switch status {
	case "healthy":
		return ColorHealthy
	case "degraded":
		return ColorWarning
	case "failed":
		return ColorDanger
	default:
		return ColorDimmed
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
