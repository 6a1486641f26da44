package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shogun-panel/panel/internal/delta"
	"github.com/shogun-panel/panel/internal/executor"
)

// StreamSampler returns the full text of one pane.
type StreamSampler func(ctx context.Context) (string, error)

// StreamBroadcaster follows a single pane and publishes reset and delta
// payloads to its subscribers.
type StreamBroadcaster struct {
	hub
	sample StreamSampler
	lines  []string // guarded by hub.mu
}

func NewStreamBroadcaster(name string, sample StreamSampler, exec *executor.Executor, poller *Poller, opts ...Option) *StreamBroadcaster {
	b := &StreamBroadcaster{sample: sample}
	b.init(name, exec, poller, opts)
	return b
}

// Start launches the sense loop. It is a no-op when already running.
func (b *StreamBroadcaster) Start() {
	b.start(b.step)
}

// Lines returns the last captured content.
func (b *StreamBroadcaster) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// Status reports the broadcaster's runtime state.
func (b *StreamBroadcaster) Status() BroadcasterStatus {
	return b.status()
}

// Subscribe registers s and, when content has been captured, first sends it
// a reset with the current lines.
func (b *StreamBroadcaster) Subscribe(s Subscriber) error {
	b.mu.Lock()
	if len(b.lines) > 0 {
		data, err := json.Marshal(StreamPayload{
			Type:  MsgReset,
			Lines: b.lines,
			TS:    timestamp(b.now()),
		})
		if err == nil {
			err = s.Send(data)
		}
		if err != nil {
			b.mu.Unlock()
			return fmt.Errorf("send initial state: %w", err)
		}
	}
	total := b.addLocked(s)
	b.mu.Unlock()

	b.added(total)
	return nil
}

func (b *StreamBroadcaster) step(ctx context.Context) (bool, error) {
	text, err := capture(ctx, &b.hub, b.sample)
	if err != nil {
		return false, err
	}
	curr := delta.SplitLines(text)

	b.mu.Lock()
	res := delta.Compute(b.lines, curr)
	b.lines = curr
	if !res.Changed() {
		b.mu.Unlock()
		return false, nil
	}
	kind := messageType(res.Kind)
	data, err := json.Marshal(StreamPayload{
		Type:  kind,
		Lines: wireLines(res.Lines),
		TS:    timestamp(b.now()),
	})
	subs := b.subscribersLocked()
	b.mu.Unlock()

	if err != nil {
		return true, fmt.Errorf("encode payload: %w", err)
	}
	b.publish(ctx, kind, data, subs)
	return true, nil
}
