package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shogun-panel/panel/internal/executor"
	"github.com/shogun-panel/panel/internal/tmux"
)

// fakeSub records every payload it is sent.
type fakeSub struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	sends  int
	closed bool
}

func (f *fakeSub) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.fail {
		return errors.New("connection reset")
	}
	f.msgs = append(f.msgs, data)
	return nil
}

func (f *fakeSub) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSub) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.msgs...)
}

func (f *fakeSub) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

func (f *fakeSub) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// scriptedText returns successive texts from a list, repeating the last one.
type scriptedText struct {
	mu    sync.Mutex
	texts []string
	errs  []error
	calls int
}

func (s *scriptedText) sample(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.texts)-1)
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.texts[i], err
}

func (s *scriptedText) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// scriptedPanes returns successive pane sets, repeating the last one.
type scriptedPanes struct {
	mu    sync.Mutex
	steps [][]tmux.PaneCapture
	calls int
}

func (s *scriptedPanes) sample(context.Context) ([]tmux.PaneCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.steps)-1)
	s.calls++
	return s.steps[i], nil
}

func newTestStream(t *testing.T, sample StreamSampler) *StreamBroadcaster {
	t.Helper()
	exec := executor.New(2)
	t.Cleanup(exec.Shutdown)
	b := NewStreamBroadcaster("test stream", sample, exec, NewPoller(time.Hour, time.Hour, 2))
	t.Cleanup(b.Stop)
	return b
}

func newTestMonitor(t *testing.T, sample MonitorSampler) *MonitorBroadcaster {
	t.Helper()
	exec := executor.New(2)
	t.Cleanup(exec.Shutdown)
	b := NewMonitorBroadcaster("test monitor", sample, exec, NewPoller(time.Hour, time.Hour, 2))
	t.Cleanup(b.Stop)
	return b
}

func decodeStream(t *testing.T, data []byte) StreamPayload {
	t.Helper()
	var p StreamPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return p
}

func decodeMonitor(t *testing.T, data []byte) MonitorPayload {
	t.Helper()
	var p MonitorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return p
}

func assertLines(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lines = %q, want %q", got, want)
		}
	}
}

// waitFor polls cond until it is true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
