package api

import "encoding/json"

// VM states as reported by the vm.info endpoint.
const (
	VMStateCreated  = "Created"
	VMStateRunning  = "Running"
	VMStatePaused   = "Paused"
	VMStateShutdown = "Shutdown"
)

// VMInfo is the decoded response of GET /api/v1/vm.info.
type VMInfo struct {
	State            string          `json:"state"`
	MemoryActualSize uint64          `json:"memory_actual_size,omitempty"`
	Config           json.RawMessage `json:"config,omitempty"`
}

// VmmPing is the decoded response of GET /api/v1/vmm.ping.
type VmmPing struct {
	BuildVersion string `json:"build_version,omitempty"`
	Version      string `json:"version"`
	PID          int64  `json:"pid,omitempty"`
}
