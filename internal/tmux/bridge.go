// Package tmux samples agent panes and injects operator input through the
// tmux command line.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrSessionNotFound = errors.New("tmux session not found")
	ErrPaneNotFound    = errors.New("tmux pane not found")
)

// CaptureErrorText replaces the content of a pane whose capture failed.
const CaptureErrorText = "Error: failed to capture pane"

const (
	sendChunkSize = 4096
	paneFormat    = "#{pane_id}\t#{pane_index}\t#{@agent_id}"
)

// Options selects the sessions and capture limits used by a Bridge.
type Options struct {
	ShogunSession      string
	MultiagentSession  string
	CaptureLines       int
	ShogunCaptureLines int
	Sanitize           bool
}

// DefaultOptions matches the stock settings file.
func DefaultOptions() Options {
	return Options{
		ShogunSession:      "shogun",
		MultiagentSession:  "multiagent",
		CaptureLines:       50,
		ShogunCaptureLines: 300,
		Sanitize:           true,
	}
}

// Pane is one row of list-panes output.
type Pane struct {
	ID      string // tmux pane id, e.g. "%3"
	Index   int
	AgentID string // @agent_id user option, may be empty
}

// Name returns the identifier used on the wire for this pane.
func (p Pane) Name() string {
	if p.AgentID != "" {
		return p.AgentID
	}
	return "pane_" + strconv.Itoa(p.Index)
}

// PaneCapture is the sampled content of one multiagent pane.
type PaneCapture struct {
	ID    string
	Index int
	Text  string
	Err   error
}

// Bridge talks to the shogun and multiagent tmux sessions.
type Bridge struct {
	run  Runner
	opts Options
}

// NewBridge creates a Bridge. A nil runner uses the local tmux binary.
func NewBridge(run Runner, opts Options) *Bridge {
	if run == nil {
		run = ExecRunner{}
	}
	return &Bridge{run: run, opts: opts}
}

func (b *Bridge) hasSession(ctx context.Context, name string) bool {
	_, err := b.run.Run(ctx, "has-session", "-t", "="+name)
	return err == nil
}

func (b *Bridge) listPanes(ctx context.Context, session string) ([]Pane, error) {
	out, err := b.run.Run(ctx, "list-panes", "-s", "-t", "="+session, "-F", paneFormat)
	if err != nil {
		return nil, err
	}
	return parsePanes(out), nil
}

// parsePanes parses the tab-separated output of list-panes.
func parsePanes(output string) []Pane {
	var panes []Pane
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			continue
		}
		p := Pane{ID: strings.TrimSpace(fields[0]), Index: idx}
		if len(fields) > 2 {
			p.AgentID = strings.TrimSpace(fields[2])
		}
		panes = append(panes, p)
	}
	return panes
}

// shogunPane resolves pane 0 of the shogun session.
func (b *Bridge) shogunPane(ctx context.Context) (Pane, error) {
	name := b.opts.ShogunSession
	if !b.hasSession(ctx, name) {
		return Pane{}, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	panes, err := b.listPanes(ctx, name)
	if err != nil {
		return Pane{}, fmt.Errorf("list %s panes: %w", name, err)
	}
	for _, p := range panes {
		if p.Index == 0 {
			return p, nil
		}
	}
	return Pane{}, fmt.Errorf("%w: %s:0.0", ErrPaneNotFound, name)
}

func (b *Bridge) capture(ctx context.Context, target string, lines int) (string, error) {
	args := []string{"capture-pane", "-p", "-J", "-t", target}
	if lines > 0 {
		args = append(args, "-S", "-"+strconv.Itoa(lines))
	}
	out, err := b.run.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	if b.opts.Sanitize {
		out = Sanitize(out)
	}
	return lastLines(out, lines), nil
}

// CaptureShogun returns the recent text of the shogun pane.
func (b *Bridge) CaptureShogun(ctx context.Context) (string, error) {
	p, err := b.shogunPane(ctx)
	if err != nil {
		return "", err
	}
	text, err := b.capture(ctx, p.ID, b.opts.ShogunCaptureLines)
	if err != nil {
		return "", fmt.Errorf("capture shogun pane: %w", err)
	}
	return text, nil
}

// CaptureAll samples every pane of the multiagent session. A missing session
// yields no panes and no error; a pane that fails to capture carries Err and
// the placeholder text.
func (b *Bridge) CaptureAll(ctx context.Context) ([]PaneCapture, error) {
	name := b.opts.MultiagentSession
	if !b.hasSession(ctx, name) {
		return []PaneCapture{}, nil
	}
	panes, err := b.listPanes(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list %s panes: %w", name, err)
	}

	out := make([]PaneCapture, 0, len(panes))
	for _, p := range panes {
		pc := PaneCapture{ID: p.Name(), Index: p.Index}
		text, err := b.capture(ctx, p.ID, b.opts.CaptureLines)
		if err != nil {
			pc.Err = err
			pc.Text = CaptureErrorText
		} else {
			pc.Text = text
		}
		out = append(out, pc)
	}
	return out, nil
}

// SendToShogun types text into the shogun pane and presses Enter.
func (b *Bridge) SendToShogun(ctx context.Context, text string) error {
	p, err := b.shogunPane(ctx)
	if err != nil {
		return err
	}
	for _, chunk := range chunkText(text, sendChunkSize) {
		if _, err := b.run.Run(ctx, "send-keys", "-t", p.ID, "-l", "--", chunk); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
	}
	if _, err := b.run.Run(ctx, "send-keys", "-t", p.ID, "Enter"); err != nil {
		return fmt.Errorf("send enter: %w", err)
	}
	return nil
}

// chunkText splits text into pieces of at most size bytes without cutting a
// UTF-8 sequence.
func chunkText(text string, size int) []string {
	var chunks []string
	for len(text) > size {
		end := size
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == 0 {
			end = size
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// SendSpecialKey sends one allowlisted key name to the shogun pane.
func (b *Bridge) SendSpecialKey(ctx context.Context, key string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	p, err := b.shogunPane(ctx)
	if err != nil {
		return err
	}
	if _, err := b.run.Run(ctx, "send-keys", "-t", p.ID, key); err != nil {
		return fmt.Errorf("send key %s: %w", key, err)
	}
	return nil
}
