package ws

import (
	"sync"
	"time"
)

type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailed   HealthStatus = "failed"
)

// healthFailureThreshold is the number of consecutive failures after which
// a broadcaster, or one of its panes, stops being healthy.
const healthFailureThreshold = 3

// HealthSnapshot is the capture health reported by /api/status.
type HealthSnapshot struct {
	Status          HealthStatus `json:"status"`
	CaptureFailures int          `json:"capture_failures"`
	DegradedPanes   []string     `json:"degraded_panes,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
	LastFailureAt   *time.Time   `json:"last_failure_at,omitempty"`
}

// captureHealth tracks consecutive capture failures of one broadcaster and,
// for the multi-pane variant, of its individual panes. The loop writes it
// while HTTP handlers read it, so every field is guarded by mu.
type captureHealth struct {
	mu              sync.Mutex
	captureFailures int
	lastErr         string
	lastFail        time.Time
	paneFailures    map[string]int
}

func newCaptureHealth() *captureHealth {
	return &captureHealth{paneFailures: make(map[string]int)}
}

func (h *captureHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captureFailures = 0
}

func (h *captureHealth) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.captureFailures++
	h.lastErr = err.Error()
	h.lastFail = time.Now()
}

func (h *captureHealth) recordPaneSuccess(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.paneFailures, id)
}

func (h *captureHealth) recordPaneFailure(id string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paneFailures[id]++
	h.lastErr = id + ": " + err.Error()
	h.lastFail = time.Now()
}

// forgetPanes drops failure counts for panes not in keep.
func (h *captureHealth) forgetPanes(keep map[string][]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.paneFailures {
		if _, ok := keep[id]; !ok {
			delete(h.paneFailures, id)
		}
	}
}

func (h *captureHealth) status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

// statusLocked computes the status. Caller must hold h.mu.
func (h *captureHealth) statusLocked() HealthStatus {
	if h.captureFailures >= healthFailureThreshold {
		return StatusFailed
	}
	if len(h.degradedPanesLocked()) > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *captureHealth) degradedPanesLocked() []string {
	var ids []string
	for id, n := range h.paneFailures {
		if n >= healthFailureThreshold {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *captureHealth) snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HealthSnapshot{
		Status:          h.statusLocked(),
		CaptureFailures: h.captureFailures,
		DegradedPanes:   h.degradedPanesLocked(),
		LastError:       h.lastErr,
	}
	if !h.lastFail.IsZero() {
		t := h.lastFail
		s.LastFailureAt = &t
	}
	return s
}
