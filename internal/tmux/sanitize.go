package tmux

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

const minRuleWidth = 10

// Sanitize strips terminal escapes and decorative rule lines from captured
// pane text, trims trailing whitespace on every line and drops trailing
// blank lines.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimRightFunc(ansi.Strip(line), unicode.IsSpace)
		if isRuleLine(line) {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// isRuleLine reports whether line is a horizontal separator such as the ones
// agent CLIs draw between turns.
func isRuleLine(line string) bool {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < minRuleWidth {
		return false
	}
	for _, r := range line {
		switch r {
		case '-', '─', '━', '―':
		default:
			return false
		}
	}
	return true
}

// lastLines returns at most n trailing lines of text.
func lastLines(text string, n int) string {
	if n <= 0 || text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
