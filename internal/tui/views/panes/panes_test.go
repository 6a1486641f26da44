package panes

import (
	"strings"
	"testing"
)

func TestView(t *testing.T) {
	items := []Item{
		{ID: "karo", Lines: 12},
		{ID: "ashigaru1", Lines: 3, Unseen: true},
	}
	v := View(items, 1, 24, 10)
	rows := strings.Split(v, "\n")
	if len(rows) < 3 {
		t.Fatalf("got %d rows:\n%s", len(rows), v)
	}
	if !strings.HasPrefix(rows[1], "  ") || !strings.Contains(rows[1], "karo") {
		t.Errorf("row 1 = %q", rows[1])
	}
	if !strings.HasPrefix(rows[2], "> ") || !strings.Contains(rows[2], "ashigaru1*") {
		t.Errorf("row 2 = %q", rows[2])
	}
}

func TestViewEmpty(t *testing.T) {
	if !strings.Contains(View(nil, 0, 20, 10), "no panes") {
		t.Error("empty list should say no panes")
	}
}

func TestViewTruncatesLongNames(t *testing.T) {
	v := View([]Item{{ID: "a-very-long-agent-identifier"}}, 0, 16, 10)
	if strings.Contains(v, "identifier") {
		t.Errorf("name not truncated:\n%s", v)
	}
}
