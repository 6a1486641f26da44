package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/shogun-panel/panel/internal/delta"
	"github.com/shogun-panel/panel/internal/executor"
	"github.com/shogun-panel/panel/internal/tmux"
)

// MonitorSampler returns the text of every pane in a group. A missing group
// is an empty result, not an error.
type MonitorSampler func(ctx context.Context) ([]tmux.PaneCapture, error)

// MonitorBroadcaster follows many panes at once and publishes
// monitor_update payloads carrying a per-pane reset or delta.
type MonitorBroadcaster struct {
	hub
	sample MonitorSampler

	// Guarded by hub.mu.
	panes map[string][]string
	floor map[string][]string
}

func NewMonitorBroadcaster(name string, sample MonitorSampler, exec *executor.Executor, poller *Poller, opts ...Option) *MonitorBroadcaster {
	b := &MonitorBroadcaster{
		sample: sample,
		panes:  make(map[string][]string),
		floor:  make(map[string][]string),
	}
	b.init(name, exec, poller, opts)
	return b
}

// Start launches the sense loop. It is a no-op when already running.
func (b *MonitorBroadcaster) Start() {
	b.start(b.step)
}

// Status reports the broadcaster's runtime state.
func (b *MonitorBroadcaster) Status() BroadcasterStatus {
	return b.status()
}

// PaneIDs returns the ids of the panes seen in the last capture.
func (b *MonitorBroadcaster) PaneIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.panes))
	for id := range b.panes {
		ids = append(ids, id)
	}
	return ids
}

// Clear records the current content of every pane as the floor below which
// new subscribers see nothing. Connected subscribers and the panes
// themselves are not affected.
func (b *MonitorBroadcaster) Clear() {
	b.mu.Lock()
	floor := make(map[string][]string, len(b.panes))
	for id, lines := range b.panes {
		floor[id] = lines
	}
	b.floor = floor
	b.mu.Unlock()
	log.Printf("%s: cleared %d panes", b.name, len(floor))
}

// Subscribe registers s and, when panes have been captured, first sends it a
// reset for every pane holding only the lines after the clear floor.
func (b *MonitorBroadcaster) Subscribe(s Subscriber) error {
	b.mu.Lock()
	if len(b.panes) > 0 {
		updates := make(map[string]PaneUpdate, len(b.panes))
		for id, lines := range b.panes {
			if f, ok := b.floor[id]; ok {
				lines = delta.CutAfter(f, lines)
			}
			updates[id] = PaneUpdate{Type: MsgReset, Lines: wireLines(lines)}
		}
		data, err := json.Marshal(MonitorPayload{
			Type:    MsgMonitorUpdate,
			Updates: updates,
			TS:      timestamp(b.now()),
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

func (b *MonitorBroadcaster) step(ctx context.Context) (bool, error) {
	captures, err := capture(ctx, &b.hub, b.sample)
	if err != nil {
		return false, err
	}

	curr := make(map[string][]string, len(captures))
	for _, pc := range captures {
		if pc.Err != nil {
			b.health.recordPaneFailure(pc.ID, pc.Err)
		} else {
			b.health.recordPaneSuccess(pc.ID)
		}
		curr[pc.ID] = delta.SplitLines(pc.Text)
	}
	b.health.forgetPanes(curr)

	b.mu.Lock()
	updates := make(map[string]PaneUpdate)
	for id, lines := range curr {
		res := delta.Compute(b.panes[id], lines)
		if res.Changed() {
			updates[id] = PaneUpdate{Type: messageType(res.Kind), Lines: wireLines(res.Lines)}
		}
	}
	b.panes = curr
	if len(updates) == 0 {
		b.mu.Unlock()
		return false, nil
	}
	data, err := json.Marshal(MonitorPayload{
		Type:    MsgMonitorUpdate,
		Updates: updates,
		TS:      timestamp(b.now()),
	})
	subs := b.subscribersLocked()
	b.mu.Unlock()

	if err != nil {
		return true, fmt.Errorf("encode payload: %w", err)
	}
	b.publish(ctx, MsgMonitorUpdate, data, subs)
	return true, nil
}
