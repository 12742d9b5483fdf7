package vm

import "errors"

// Launch errors
var (
	ErrRemoveStaleSocket = errors.New("remove stale control socket")
	ErrStartProcess      = errors.New("start hypervisor process")
	ErrProcessExited     = errors.New("hypervisor exited before control socket appeared")
	ErrVMReadyTimeout    = errors.New("timeout waiting for control socket")
)

// Log errors
var (
	ErrVMNeverStarted = errors.New("no hypervisor process has been started")
)
