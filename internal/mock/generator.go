// Package mock produces synthetic agent pane output so the panel can run
// without tmux.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shogun-panel/panel/internal/tmux"
)

const (
	defaultTick   = 500 * time.Millisecond
	maxPaneLines  = 200
	shogunReplyOK = "承知つかまつった。"
)

type mockAgent struct {
	id      string
	pattern string
	tools   []string
	toolIdx int
	lines   []string
	done    bool
	doneAt  int
}

// Generator fakes the shogun pane and the multiagent panes. It satisfies the
// same capture and command methods as tmux.Bridge.
type Generator struct {
	mu     sync.Mutex
	tick   int
	shogun []string
	agents []*mockAgent
}

func NewGenerator() *Generator {
	return &Generator{
		shogun: []string{"shogun ready. awaiting orders."},
		agents: []*mockAgent{
			{id: "karo", pattern: "steady", tools: []string{"Read", "Task", "Write", "Task"}},
			{id: "ashigaru1", pattern: "burst", tools: []string{"Read", "Edit", "Bash", "Edit"}},
			{id: "ashigaru2", pattern: "methodical", tools: []string{"Grep", "Read", "Read", "LSP"}},
			{id: "ashigaru3", pattern: "stall", tools: []string{"Bash", "Bash", "Read"}},
			{id: "ashigaru4", pattern: "finish", tools: []string{"Glob", "Read", "Write"}, doneAt: 20},
		},
	}
}

// Start advances the simulation on a ticker until ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	go g.run(ctx, defaultTick)
}

func (g *Generator) run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Advance()
		}
	}
}

// Advance moves the simulation forward by one tick.
func (g *Generator) Advance() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	for _, a := range g.agents {
		if a.done {
			continue
		}
		g.advanceAgent(a)
	}
}

func (g *Generator) advanceAgent(a *mockAgent) {
	if g.tick <= 1 {
		a.append(fmt.Sprintf("● %s starting", a.id))
		return
	}

	switch a.pattern {
	case "steady":
		a.useTool()
	case "burst":
		if g.tick%4 == 0 {
			for i := 0; i < 3; i++ {
				a.useTool()
			}
		}
	case "methodical":
		if g.tick%2 == 0 {
			a.useTool()
		}
	case "stall":
		// Active for a while, then goes quiet so the poller backs off.
		if g.tick < 6 {
			a.useTool()
		}
	case "finish":
		if g.tick >= a.doneAt {
			a.append("✓ task complete")
			a.done = true
			return
		}
		a.useTool()
	}
}

func (a *mockAgent) useTool() {
	tool := a.tools[a.toolIdx%len(a.tools)]
	a.toolIdx++
	a.append(fmt.Sprintf("● %s(step %d)", tool, a.toolIdx))
	a.append("  ⎿ ok")
}

func (a *mockAgent) append(line string) {
	a.lines = appendBounded(a.lines, line)
}

func appendBounded(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxPaneLines {
		lines = lines[len(lines)-maxPaneLines:]
	}
	return lines
}

// CaptureShogun returns the synthetic shogun pane.
func (g *Generator) CaptureShogun(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return strings.Join(g.shogun, "\n"), nil
}

// CaptureAll returns one capture per synthetic agent.
func (g *Generator) CaptureAll(ctx context.Context) ([]tmux.PaneCapture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]tmux.PaneCapture, 0, len(g.agents))
	for i, a := range g.agents {
		out = append(out, tmux.PaneCapture{
			ID:    a.id,
			Index: i,
			Text:  strings.Join(a.lines, "\n"),
		})
	}
	return out, nil
}

// SendToShogun echoes the instruction into the shogun pane and hands it to
// the karo agent.
func (g *Generator) SendToShogun(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, line := range strings.Split(text, "\n") {
		g.shogun = appendBounded(g.shogun, "> "+line)
	}
	g.shogun = appendBounded(g.shogun, shogunReplyOK)
	if len(g.agents) > 0 {
		g.agents[0].append("● received orders from shogun")
	}
	return nil
}

// SendSpecialKey records the key press in the shogun pane.
func (g *Generator) SendSpecialKey(ctx context.Context, key string) error {
	if !tmux.IsAllowedKey(key) {
		return fmt.Errorf("%w: %q", tmux.ErrInvalidKey, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shogun = appendBounded(g.shogun, "["+key+"]")
	return nil
}
