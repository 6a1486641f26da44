package ws

import (
	"time"

	"github.com/shogun-panel/panel/internal/delta"
)

type MessageType string

const (
	MsgReset         MessageType = "reset"
	MsgDelta         MessageType = "delta"
	MsgMonitorUpdate MessageType = "monitor_update"
)

// StreamPayload is sent by the single-stream broadcaster.
type StreamPayload struct {
	Type  MessageType `json:"type"`
	Lines []string    `json:"lines"`
	TS    float64     `json:"ts"`
}

// PaneUpdate is the change of one pane inside a MonitorPayload.
type PaneUpdate struct {
	Type  MessageType `json:"type"`
	Lines []string    `json:"lines"`
}

// MonitorPayload is sent by the multi-pane broadcaster.
type MonitorPayload struct {
	Type    MessageType           `json:"type"`
	Updates map[string]PaneUpdate `json:"updates"`
	TS      float64               `json:"ts"`
}

// timestamp returns t as fractional Unix seconds.
func timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// messageType maps a delta kind to its wire name.
func messageType(k delta.Kind) MessageType {
	if k == delta.Append {
		return MsgDelta
	}
	return MsgReset
}

// wireLines keeps "lines" an array on the wire even when empty.
func wireLines(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
