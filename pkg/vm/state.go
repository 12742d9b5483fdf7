package vm

// State is the controller's view of the VM lifecycle.
//
// Legal transitions:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//	Starting -> FailedToStart (control socket never appeared)
//	FailedToStart -> Starting (retry)
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateFailedToStart
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailedToStart:
		return "failed-to-start"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
