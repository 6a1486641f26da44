// Package dashboard renders dashboard.md with glamour.
package dashboard

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/shogun-panel/panel/internal/tui/theme"
)

// Model caches the rendered markdown for the current width.
type Model struct {
	markdown string
	rendered string
	width    int
	err      error
	loaded   bool
}

func New() Model {
	return Model{}
}

// SetMarkdown replaces the source and renders it at width.
func (m *Model) SetMarkdown(md string, width int) {
	m.markdown = md
	m.loaded = true
	m.render(width)
}

// SetError records a fetch failure.
func (m *Model) SetError(err error) {
	m.err = err
	m.loaded = true
}

// Resize re-renders the markdown when the width changed.
func (m *Model) Resize(width int) {
	if width != m.width && m.markdown != "" {
		m.render(width)
	}
}

func (m *Model) render(width int) {
	m.width = width
	m.err = nil
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		m.err = err
		return
	}
	out, err := r.Render(m.markdown)
	if err != nil {
		m.err = err
		return
	}
	m.rendered = strings.TrimRight(out, "\n")
}

// View renders the dashboard overlay, clipped to height lines.
func (m Model) View(width, height int) string {
	title := theme.StyleHeader.Render(" DASHBOARD ")
	help := theme.StyleDimmed.Render("r:refresh  esc:close")

	var body string
	switch {
	case !m.loaded:
		body = theme.StyleDimmed.Render("  Loading...")
	case m.err != nil:
		body = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("  " + m.err.Error())
	default:
		body = m.rendered
		if lines := strings.Split(body, "\n"); height > 4 && len(lines) > height-4 {
			body = strings.Join(lines[:height-4], "\n")
		}
	}

	return lipgloss.NewStyle().
		Width(max(width-2, 20)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body, help))
}
