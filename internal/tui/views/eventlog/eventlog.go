// Package eventlog keeps a bounded log of connection, command and error
// events and renders it as a scrollable overlay.
package eventlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shogun-panel/panel/internal/tui/theme"
)

const maxEntries = 200

// Event kinds.
const (
	KindWS      = "ws"
	KindCommand = "cmd"
	KindError   = "err"
	KindHealth  = "hlth"
)

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model holds the event log. Offset counts lines scrolled up from the newest.
type Model struct {
	Entries []Entry
	Offset  int
	now     func() time.Time
}

func New() Model {
	return Model{now: time.Now}
}

// Add appends an entry, drops the oldest past maxEntries and scrolls back to
// the newest entry.
func (m *Model) Add(kind, format string, args ...any) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.Entries = append(m.Entries, Entry{
		Time:    now(),
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// Last returns the newest entry, if any.
func (m Model) Last() (Entry, bool) {
	if len(m.Entries) == 0 {
		return Entry{}, false
	}
	return m.Entries[len(m.Entries)-1], true
}

func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Entries)-1, 0))
}

func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// View renders the log as an overlay panel of the given size.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	visible := max(height-6, 3)

	title := theme.StyleHeader.Render(" EVENTS ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.Entries)))
	panel := lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := max(len(m.Entries)-m.Offset, 0)
	start := max(end-visible, 0)

	lines := make([]string, 0, end-start)
	for _, e := range m.Entries[start:end] {
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(4).Render(e.Kind)
		msg := e.Message
		if limit := innerW - 23; limit > 0 && len([]rune(msg)) > limit {
			msg = string([]rune(msg)[:limit]) + "..."
		}
		lines = append(lines, ts+" "+kind+" "+msg)
	}

	more := ""
	if m.Offset > 0 {
		more = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), more, help))
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case KindWS:
		return theme.ColorEventWS
	case KindCommand:
		return theme.ColorEventCommand
	case KindError:
		return theme.ColorDanger
	case KindHealth:
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}
