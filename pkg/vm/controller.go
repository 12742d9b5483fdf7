// Package vm owns the lifecycle of a single cloud-hypervisor process:
// spawn, control-socket readiness, API-driven transitions, and
// graceful-vs-forced teardown.
package vm

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/api"
	"github.com/vmlift/vmlift/pkg/client"
	"github.com/vmlift/vmlift/pkg/events"
	"github.com/vmlift/vmlift/pkg/state"
)

const (
	DefaultBinary          = "cloud-hypervisor"
	DefaultReadyTimeout    = 10 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultShutdownTimeout = 10 * time.Second
)

// Control API endpoints.
const (
	endpointShutdown = "/api/v1/vm.shutdown"
	endpointPause    = "/api/v1/vm.pause"
	endpointResume   = "/api/v1/vm.resume"
	endpointReboot   = "/api/v1/vm.reboot"
	endpointInfo     = "/api/v1/vm.info"
	endpointPing     = "/api/v1/vmm.ping"
)

// procHandle is one spawned hypervisor process. exitErr is written by
// the reaper goroutine before exited is closed and must only be read
// after exited is observed closed.
type procHandle struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	exitErr error
}

func (p *procHandle) pid() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *procHandle) hasExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// Controller drives exactly one VM's process and control channel. The
// configuration and process handle are exclusively owned; Start and
// Stop are serialized on an internal mutex, the query operations may
// be issued concurrently.
type Controller struct {
	name   string
	config *api.LaunchConfig
	binary string
	logger *slog.Logger
	client *client.Client

	readyTimeout    time.Duration
	pollInterval    time.Duration
	shutdownTimeout time.Duration

	registry *state.Manager
	journal  *events.Journal

	opMu sync.Mutex // serializes Start and Stop end to end

	mu             sync.Mutex
	st             State
	proc           *procHandle
	stdout, stderr *logBuffer // survive the handle for post-mortem Logs
}

type Option func(*Controller)

// WithLogger sets the diagnostic sink. Nil falls back to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBinary overrides the hypervisor binary to spawn.
func WithBinary(path string) Option {
	return func(c *Controller) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithReadyTimeout bounds the wait for the control socket after spawn.
func WithReadyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.readyTimeout = d
		}
	}
}

// WithPollInterval sets the control-socket poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithShutdownTimeout bounds the wait for process exit after a
// graceful shutdown request, before escalating to a forced kill.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithRegistry records lifecycle transitions in a run registry.
// Registry failures are logged, never propagated.
func WithRegistry(mgr *state.Manager) Option {
	return func(c *Controller) {
		c.registry = mgr
	}
}

// WithJournal appends lifecycle events to a journal. Emission is
// best-effort; journal failures are never propagated.
func WithJournal(j *events.Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// New creates a controller for one VM. An empty name is defaulted to a
// random vm-<id>; a nil config gets the built-in defaults for that
// name.
func New(name string, cfg *api.LaunchConfig, opts ...Option) *Controller {
	if name == "" {
		name = api.NewVMName()
	}
	if cfg == nil {
		cfg = api.DefaultLaunchConfig(name)
	}
	if cfg.APISocket == "" {
		cfg.APISocket = api.SocketPathFor(name)
	}

	c := &Controller{
		name:            name,
		config:          cfg,
		binary:          DefaultBinary,
		logger:          slog.Default(),
		readyTimeout:    DefaultReadyTimeout,
		pollInterval:    DefaultPollInterval,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = client.New(cfg.APISocket, client.WithLogger(c.logger))
	return c
}

// Name returns the VM name.
func (c *Controller) Name() string { return c.name }

// Config returns the launch configuration. The controller owns it;
// mutate only between runs.
func (c *Controller) Config() *api.LaunchConfig { return c.config }

// SocketPath returns the control socket path.
func (c *Controller) SocketPath() string { return c.config.APISocket }

// State returns the last recorded lifecycle state. It reflects
// transitions driven through the controller; use IsRunning for a live
// check that also consults the hypervisor.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// PID returns the hypervisor process ID, or 0 when there is no live
// handle.
func (c *Controller) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc.pid()
}

// Done returns a channel closed when the current process exits. With
// no live handle the returned channel is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc != nil {
		return c.proc.exited
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Start spawns the hypervisor and waits for its control socket to
// appear. Calling Start while a live process exists is a no-op that
// reports the existing state. On a readiness timeout the spawned
// process is force-killed and reaped before returning
// ErrVMReadyTimeout, so a failed start never leaks a process or a
// dangling handle.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.proc != nil && !c.proc.hasExited() {
		c.mu.Unlock()
		c.logger.Warn("VM is already running", "name", c.name, "state", c.st.String())
		return nil
	}

	// A stale socket from a crashed prior run would fake readiness.
	if err := os.Remove(c.config.APISocket); err != nil && !os.IsNotExist(err) {
		c.mu.Unlock()
		return errx.Wrap(ErrRemoveStaleSocket, err)
	}

	args := c.config.Args()
	c.logger.Info("starting VM",
		"name", c.name,
		"command", shellquote.Join(append([]string{c.binary}, args...)...))

	cmd := exec.Command(c.binary, args...)
	stdout := &logBuffer{}
	stderr := &logBuffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		c.st = StateFailedToStart
		c.mu.Unlock()
		c.record(state.StatusFailed, 0)
		c.emit(events.EventFailed, "spawning hypervisor failed", &events.LifecycleData{
			State:  StateFailedToStart.String(),
			Reason: err.Error(),
		})
		return errx.Wrap(ErrStartProcess, err)
	}

	proc := &procHandle{cmd: cmd, exited: make(chan struct{})}
	go func() {
		proc.exitErr = cmd.Wait()
		close(proc.exited)
	}()

	c.proc = proc
	c.stdout = stdout
	c.stderr = stderr
	c.st = StateStarting
	c.mu.Unlock()

	c.record(state.StatusStarting, proc.pid())
	c.emit(events.EventStarting, "hypervisor spawned", &events.LifecycleData{
		State: StateStarting.String(),
		PID:   proc.pid(),
	})

	if err := c.awaitSocket(ctx, proc); err != nil {
		c.failStart(proc)
		c.emit(events.EventFailed, "control socket never became ready", &events.LifecycleData{
			State:  StateFailedToStart.String(),
			Reason: err.Error(),
		})
		return err
	}

	c.mu.Lock()
	c.st = StateRunning
	c.mu.Unlock()
	c.record(state.StatusRunning, proc.pid())
	c.emit(events.EventReady, "control socket available", &events.LifecycleData{
		State: StateRunning.String(),
		PID:   proc.pid(),
	})
	c.logger.Info("VM started", "name", c.name, "pid", proc.pid())
	return nil
}

// awaitSocket polls for the control socket, bridging the asynchronous
// gap between process spawn and hypervisor initialization.
func (c *Controller) awaitSocket(ctx context.Context, proc *procHandle) error {
	deadline := time.Now().Add(c.readyTimeout)
	for {
		if _, err := os.Stat(c.config.APISocket); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			c.logger.Error("VM failed to start, control socket never appeared",
				"name", c.name, "socket", c.config.APISocket, "timeout", c.readyTimeout)
			return errx.With(ErrVMReadyTimeout, ": %s after %s", c.config.APISocket, c.readyTimeout)
		}
		select {
		case <-ctx.Done():
			return errx.Wrap(ErrVMReadyTimeout, ctx.Err())
		case <-proc.exited:
			detail := strings.TrimSpace(c.stderr.String())
			c.logger.Error("hypervisor exited during startup", "name", c.name, "stderr", detail)
			if proc.exitErr != nil {
				return errx.With(ErrProcessExited, ": %v: %s", proc.exitErr, detail)
			}
			return errx.With(ErrProcessExited, ": %s", detail)
		case <-time.After(c.pollInterval):
		}
	}
}

// failStart reaps a process whose control socket never became ready
// and moves the controller to the FailedToStart absorption state.
func (c *Controller) failStart(proc *procHandle) {
	if !proc.hasExited() {
		proc.cmd.Process.Kill()
		<-proc.exited
	}
	c.mu.Lock()
	c.proc = nil
	c.st = StateFailedToStart
	c.mu.Unlock()
	c.record(state.StatusFailed, 0)
}

// Stop retires the VM: a graceful shutdown request through the control
// channel, a bounded wait for the process to exit on its own, then a
// forced kill with an unbounded wait. The process handle is always
// cleared before Stop returns. With no live handle Stop is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	proc := c.proc
	if proc == nil {
		c.mu.Unlock()
		c.logger.Warn("stop requested but no VM process", "name", c.name)
		return nil
	}
	c.st = StateStopping
	c.mu.Unlock()
	c.emit(events.EventStopping, "shutdown requested", &events.LifecycleData{
		State: StateStopping.String(),
		PID:   proc.pid(),
	})

	if !proc.hasExited() {
		if _, err := c.client.Put(ctx, endpointShutdown, nil); err != nil {
			c.logger.Warn("graceful shutdown failed, forcing termination",
				"name", c.name, "error", err)
			c.forceKill(proc)
		} else {
			select {
			case <-proc.exited:
				c.logger.Info("VM stopped gracefully", "name", c.name)
			case <-time.After(c.shutdownTimeout):
				c.logger.Warn("graceful shutdown timed out, forcing termination",
					"name", c.name, "timeout", c.shutdownTimeout)
				c.forceKill(proc)
			case <-ctx.Done():
				c.logger.Warn("stop canceled, forcing termination",
					"name", c.name, "error", ctx.Err())
				c.forceKill(proc)
			}
		}
	}

	c.mu.Lock()
	c.proc = nil
	c.st = StateStopped
	c.mu.Unlock()
	c.record(state.StatusStopped, 0)
	c.emit(events.EventStopped, "process reaped", &events.LifecycleData{
		State: StateStopped.String(),
	})
	return nil
}

// forceKill terminates the process and waits for the reaper without a
// timeout: a forced kill must eventually be observed.
func (c *Controller) forceKill(proc *procHandle) {
	if !proc.hasExited() {
		proc.cmd.Process.Kill()
	}
	<-proc.exited
}

// Pause suspends the VM's vcpus.
func (c *Controller) Pause(ctx context.Context) (*client.Response, error) {
	return c.vmCommand(ctx, "pause", endpointPause)
}

// Resume resumes a paused VM.
func (c *Controller) Resume(ctx context.Context) (*client.Response, error) {
	return c.vmCommand(ctx, "resume", endpointResume)
}

// Reboot reboots the guest.
func (c *Controller) Reboot(ctx context.Context) (*client.Response, error) {
	return c.vmCommand(ctx, "reboot", endpointReboot)
}

// vmCommand issues one state-changing API call. Without a live process
// it is a defined no-op: a logged warning and ErrVMNotRunning, never a
// crash. Transport failures mean "operation did not take effect" and
// are returned as-is.
func (c *Controller) vmCommand(ctx context.Context, op, endpoint string) (*client.Response, error) {
	c.mu.Lock()
	proc := c.proc
	c.mu.Unlock()
	if proc == nil || proc.hasExited() {
		c.logger.Warn("VM command ignored, no live VM process", "name", c.name, "op", op)
		return nil, errx.With(api.ErrVMNotRunning, ": %s", op)
	}
	resp, err := c.client.Put(ctx, endpoint, nil)
	data := &events.CommandData{Endpoint: endpoint, OK: err == nil}
	if err != nil {
		data.Error = err.Error()
	}
	c.emit(events.EventCommand, op, data)
	return resp, err
}

// Info fetches and decodes the hypervisor's view of the VM.
func (c *Controller) Info(ctx context.Context) (*api.VMInfo, error) {
	resp, err := c.client.Get(ctx, endpointInfo)
	if err != nil {
		return nil, err
	}
	var info api.VMInfo
	if err := resp.Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ping probes the VMM liveness endpoint.
func (c *Controller) Ping(ctx context.Context) (*client.Response, error) {
	return c.client.Get(ctx, endpointPing)
}

// IsRunning reports whether the VM is up. Process liveness alone does
// not prove the control plane is responsive, so a live process is
// additionally pinged.
func (c *Controller) IsRunning(ctx context.Context) bool {
	c.mu.Lock()
	proc := c.proc
	c.mu.Unlock()
	if proc == nil || proc.hasExited() {
		return false
	}
	_, err := c.Ping(ctx)
	return err == nil
}

// Logs holds the captured output of the most recent run.
type Logs struct {
	Stdout string
	Stderr string
}

// Logs drains the captured stdout/stderr of the most recent process.
// The capture buffers outlive the handle, so logs stay available after
// the process has exited or a start has failed. Best-effort
// diagnostics: output produced after the drain is only visible to a
// later call.
func (c *Controller) Logs() (*Logs, error) {
	c.mu.Lock()
	stdout, stderr := c.stdout, c.stderr
	c.mu.Unlock()
	if stdout == nil {
		return nil, ErrVMNeverStarted
	}
	return &Logs{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// emit appends a lifecycle event to the journal, best-effort.
func (c *Controller) emit(eventType, summary string, data interface{}) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Emit(eventType, summary, data); err != nil {
		c.logger.Warn("write lifecycle event", "name", c.name, "error", err)
	}
}

// record updates the run registry, best-effort.
func (c *Controller) record(status string, pid int) {
	if c.registry == nil {
		return
	}
	err := c.registry.Save(&state.Record{
		Name:       c.name,
		PID:        pid,
		Status:     status,
		SocketPath: c.config.APISocket,
	})
	if err != nil {
		c.logger.Warn("update run registry", "name", c.name, "error", err)
	}
}
