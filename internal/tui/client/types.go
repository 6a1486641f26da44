// Package client provides WebSocket and HTTP clients for the shogun panel
// server. Types mirror the server wire protocol without importing server
// packages.
package client

import "time"

// UpdateType identifies how a pane update applies to the previous lines.
type UpdateType string

const (
	UpdateReset UpdateType = "reset"
	UpdateDelta UpdateType = "delta"
)

// MsgMonitorUpdate is the type of the multi-pane payload.
const MsgMonitorUpdate = "monitor_update"

// PaneUpdate is one pane's change inside a monitor update.
type PaneUpdate struct {
	Type  UpdateType `json:"type"`
	Lines []string   `json:"lines"`
}

// MonitorUpdate is the payload of /ws/monitor.
type MonitorUpdate struct {
	Type    string                `json:"type"`
	Updates map[string]PaneUpdate `json:"updates"`
	TS      float64               `json:"ts"`
}

// StreamUpdate is the payload of /ws.
type StreamUpdate struct {
	Type  UpdateType `json:"type"`
	Lines []string   `json:"lines"`
	TS    float64    `json:"ts"`
}

// PollerBounds mirrors one entry of /api/ws-config.
type PollerBounds struct {
	BaseIntervalMS int `json:"base_interval_ms"`
	MaxIntervalMS  int `json:"max_interval_ms"`
}

func (p PollerBounds) Base() time.Duration {
	return time.Duration(p.BaseIntervalMS) * time.Millisecond
}

func (p PollerBounds) Max() time.Duration {
	return time.Duration(p.MaxIntervalMS) * time.Millisecond
}

// WSConfig is the response of /api/ws-config.
type WSConfig struct {
	Monitor PollerBounds `json:"monitor"`
	Shogun  PollerBounds `json:"shogun"`
}

// HealthStatus is the capture health of a broadcaster.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailed   HealthStatus = "failed"
)

type Health struct {
	Status          HealthStatus `json:"status"`
	CaptureFailures int          `json:"capture_failures"`
	DegradedPanes   []string     `json:"degraded_panes,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
}

type BroadcasterStatus struct {
	Name        string `json:"name"`
	Running     bool   `json:"running"`
	Subscribers int    `json:"subscribers"`
	IntervalMS  int64  `json:"interval_ms"`
	Streak      int    `json:"no_change_streak"`
	Health      Health `json:"health"`
}

// Status is the response of /api/status.
type Status struct {
	Shogun    BroadcasterStatus `json:"shogun"`
	Monitor   BroadcasterStatus `json:"monitor"`
	Panes     int               `json:"panes"`
	Workers   int               `json:"workers"`
	InFlight  int               `json:"in_flight"`
	UptimeSec float64           `json:"uptime_sec"`
}

// Apply returns lines with u applied: a reset replaces them, a delta appends.
// When limit is positive only the last limit lines are kept.
func Apply(lines []string, u PaneUpdate, limit int) []string {
	var out []string
	switch u.Type {
	case UpdateReset:
		out = append([]string(nil), u.Lines...)
	case UpdateDelta:
		out = make([]string, 0, len(lines)+len(u.Lines))
		out = append(append(out, lines...), u.Lines...)
	default:
		return lines
	}
	if limit > 0 && len(out) > limit {
		out = append([]string(nil), out[len(out)-limit:]...)
	}
	return out
}
