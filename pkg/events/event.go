package events

import (
	"encoding/json"
	"time"
)

// Event is a single entry in the VM lifecycle journal.
// Required fields: Timestamp, VM, EventType, Summary.
// Optional fields use omitempty tags.
type Event struct {
	Timestamp time.Time       `json:"ts"`
	VM        string          `json:"vm"`
	EventType string          `json:"event_type"`
	Summary   string          `json:"summary"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event type constants.
const (
	EventStarting = "vm_starting"
	EventReady    = "vm_ready"
	EventFailed   = "vm_failed"
	EventStopping = "vm_stopping"
	EventStopped  = "vm_stopped"
	EventCommand  = "vm_command"
)

// LifecycleData is the data payload for state-transition events.
type LifecycleData struct {
	State  string `json:"state"`
	PID    int    `json:"pid,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CommandData is the data payload for vm_command events.
type CommandData struct {
	Endpoint string `json:"endpoint"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}
