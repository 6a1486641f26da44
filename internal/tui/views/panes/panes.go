// Package panes renders the agent pane list shown beside the output view.
package panes

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shogun-panel/panel/internal/tui/theme"
)

// Item is one row of the list.
type Item struct {
	ID     string
	Lines  int
	Unseen bool // received output since it was last selected
}

// View renders items as a fixed-width column with the selected row marked.
func View(items []Item, selected, width, height int) string {
	width = max(width, 12)
	lines := []string{theme.StyleHeader.Render("AGENTS")}

	if len(items) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("no panes"))
	}
	for i, it := range items {
		prefix := "  "
		if i == selected {
			prefix = "> "
		}
		marker := " "
		if it.Unseen {
			marker = "*"
		}
		name := it.ID
		if limit := width - 10; len([]rune(name)) > limit {
			name = string([]rune(name)[:limit-1]) + "…"
		}
		style := lipgloss.NewStyle().Foreground(theme.AgentColor(it.ID))
		if i == selected {
			style = style.Bold(true)
		}
		row := prefix + style.Render(name) + marker + theme.StyleDimmed.Render(fmt.Sprintf(" %d", it.Lines))
		lines = append(lines, row)
	}

	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
