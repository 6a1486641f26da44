package mock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shogun-panel/panel/internal/tmux"
)

func TestGenerator_CaptureAllListsAgents(t *testing.T) {
	gen := NewGenerator()
	panes, err := gen.CaptureAll(context.Background())
	if err != nil {
		t.Fatalf("CaptureAll() error: %v", err)
	}
	if len(panes) != len(gen.agents) {
		t.Fatalf("got %d panes, want %d", len(panes), len(gen.agents))
	}
	seen := map[string]bool{}
	for _, p := range panes {
		if p.ID == "" {
			t.Error("pane with empty ID")
		}
		if seen[p.ID] {
			t.Errorf("duplicate pane ID %q", p.ID)
		}
		seen[p.ID] = true
		if p.Text != "" {
			t.Errorf("pane %s has text %q before the first tick", p.ID, p.Text)
		}
	}
}

func TestGenerator_AdvanceGrowsByAppending(t *testing.T) {
	gen := NewGenerator()
	for i := 0; i < 3; i++ {
		gen.Advance()
	}
	before, _ := gen.CaptureAll(context.Background())
	gen.Advance()
	after, _ := gen.CaptureAll(context.Background())

	for i := range before {
		if !strings.HasPrefix(after[i].Text, before[i].Text) {
			t.Errorf("pane %s rewrote history:\nbefore %q\nafter  %q", before[i].ID, before[i].Text, after[i].Text)
		}
	}
	// The steady agent writes on every tick.
	if after[0].Text == before[0].Text {
		t.Errorf("steady agent %s did not change", after[0].ID)
	}
}

func TestGenerator_StallGoesQuiet(t *testing.T) {
	gen := NewGenerator()
	for i := 0; i < 10; i++ {
		gen.Advance()
	}
	before, _ := gen.CaptureAll(context.Background())
	gen.Advance()
	after, _ := gen.CaptureAll(context.Background())

	for i, p := range after {
		if p.ID == "ashigaru3" && p.Text != before[i].Text {
			t.Error("stalled agent kept producing output")
		}
	}
}

func TestGenerator_FinishStops(t *testing.T) {
	gen := NewGenerator()
	for i := 0; i < 30; i++ {
		gen.Advance()
	}
	panes, _ := gen.CaptureAll(context.Background())
	for _, p := range panes {
		if p.ID == "ashigaru4" && !strings.HasSuffix(p.Text, "✓ task complete") {
			t.Errorf("finishing agent text ends with %q", p.Text[max(0, len(p.Text)-30):])
		}
	}
}

func TestGenerator_SendToShogun(t *testing.T) {
	gen := NewGenerator()
	if err := gen.SendToShogun(context.Background(), "march north"); err != nil {
		t.Fatalf("SendToShogun() error: %v", err)
	}
	text, err := gen.CaptureShogun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "> march north\n"+shogunReplyOK) {
		t.Errorf("shogun pane = %q, want echoed instruction and reply", text)
	}
}

func TestGenerator_SendSpecialKey(t *testing.T) {
	gen := NewGenerator()
	if err := gen.SendSpecialKey(context.Background(), "Escape"); err != nil {
		t.Fatalf("SendSpecialKey(Escape) error: %v", err)
	}
	if err := gen.SendSpecialKey(context.Background(), "C-c"); !errors.Is(err, tmux.ErrInvalidKey) {
		t.Fatalf("SendSpecialKey(C-c) = %v, want ErrInvalidKey", err)
	}
	text, _ := gen.CaptureShogun(context.Background())
	if !strings.HasSuffix(text, "[Escape]") {
		t.Errorf("shogun pane = %q", text)
	}
}

func TestGenerator_BoundedHistory(t *testing.T) {
	gen := NewGenerator()
	for i := 0; i < maxPaneLines; i++ {
		_ = gen.SendSpecialKey(context.Background(), "y")
	}
	text, _ := gen.CaptureShogun(context.Background())
	if n := len(strings.Split(text, "\n")); n != maxPaneLines {
		t.Errorf("shogun pane has %d lines, want %d", n, maxPaneLines)
	}
}

func TestGenerator_RunStopsOnCancel(t *testing.T) {
	gen := NewGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gen.run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}

	gen.mu.Lock()
	tick := gen.tick
	gen.mu.Unlock()
	if tick == 0 {
		t.Error("generator never advanced")
	}
}

func TestGenerator_CancelledContext(t *testing.T) {
	gen := NewGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.CaptureAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("CaptureAll() = %v, want context.Canceled", err)
	}
}
