// Package proc spawns and supervises the session's child processes: world,
// visualization, and user application. Every child is started in its own
// process group so lifecycle signals reach the whole process tree, not just
// the immediate child.
package proc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// termGrace is how long Terminate waits between SIGTERM and SIGKILL.
	termGrace = 5 * time.Second
	// exitPollInterval paces the wait for a signalled tree to exit.
	exitPollInterval = 100 * time.Millisecond
)

// Collector receives supervisor metrics. The zero implementation is a no-op;
// production wires the prometheus collector from internal/observability.
type Collector interface {
	ProcessSpawned(kind string)
	ProcessTerminated(kind string, d time.Duration)
	ProcessError(kind string)
}

type noopCollector struct{}

func (noopCollector) ProcessSpawned(string)                   {}
func (noopCollector) ProcessTerminated(string, time.Duration) {}
func (noopCollector) ProcessError(string)                     {}

// Supervisor spawns child process trees. All operations are synchronous and
// run on the calling thread; a hung child stalls the caller.
type Supervisor struct {
	metrics Collector
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithCollector injects a metrics collector.
func WithCollector(c Collector) Option {
	return func(s *Supervisor) { s.metrics = c }
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{metrics: noopCollector{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is a live child process tree.
type Handle struct {
	kind string
	cmd  *exec.Cmd
	pgid int
	sup  *Supervisor

	mu     sync.Mutex
	exited bool
	waitCh chan struct{}
}

// Spawn starts name with args in dir (empty dir inherits the supervisor's
// working directory). The child leads a new process group and inherits the
// daemon's stdout/stderr.
func (s *Supervisor) Spawn(kind, name string, args []string, dir string) (*Handle, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		s.metrics.ProcessError(kind)
		return nil, fmt.Errorf("spawn %s (%s): %w", kind, name, err)
	}

	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		// Fall back to signalling the child directly.
		pgid = cmd.Process.Pid
	}

	h := &Handle{
		kind:   kind,
		cmd:    cmd,
		pgid:   pgid,
		sup:    s,
		waitCh: make(chan struct{}),
	}

	// Reap the child as soon as it exits so Terminate on a dead tree is a
	// cheap no-op instead of an escalation.
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.exited = true
		h.mu.Unlock()
		close(h.waitCh)
		if err != nil {
			slog.Debug("child exited", "kind", kind, "pid", cmd.Process.Pid, "err", err)
		}
	}()

	s.metrics.ProcessSpawned(kind)
	slog.Info("Process spawned.", "kind", kind, "pid", cmd.Process.Pid, "pgid", pgid)
	return h, nil
}

// PID returns the immediate child's process id.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// Kind returns the label the process was spawned under.
func (h *Handle) Kind() string { return h.kind }

// Terminate stops the whole process tree: SIGTERM to the group, a grace
// period, then SIGKILL for stragglers. An already-exited tree is not an
// error.
func (h *Handle) Terminate() error {
	start := time.Now()
	defer func() { h.sup.metrics.ProcessTerminated(h.kind, time.Since(start)) }()

	if h.done() {
		return nil
	}

	if err := h.signalGroup(unix.SIGTERM); err != nil {
		return err
	}

	select {
	case <-h.waitCh:
		return nil
	case <-time.After(termGrace):
	}

	slog.Warn("Process tree ignored SIGTERM, killing.", "kind", h.kind, "pgid", h.pgid)
	if err := h.signalGroup(unix.SIGKILL); err != nil {
		return err
	}

	// SIGKILL is not maskable; bounded wait for the reaper.
	deadline := time.After(termGrace)
	for {
		select {
		case <-h.waitCh:
			return nil
		case <-deadline:
			return fmt.Errorf("terminate %s: process group %d did not exit", h.kind, h.pgid)
		case <-time.After(exitPollInterval):
		}
	}
}

// Suspend pauses OS scheduling of the process tree. The processes stay
// alive; simulated time is handled separately by the simulation RPC.
func (h *Handle) Suspend() error {
	return h.signalGroup(unix.SIGSTOP)
}

// Resume continues a suspended process tree.
func (h *Handle) Resume() error {
	return h.signalGroup(unix.SIGCONT)
}

func (h *Handle) done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

func (h *Handle) signalGroup(sig unix.Signal) error {
	if h.done() {
		return nil
	}
	// Negative pid addresses the whole group, children included.
	if err := unix.Kill(-h.pgid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		h.sup.metrics.ProcessError(h.kind)
		return fmt.Errorf("signal %s group %d with %s: %w", h.kind, h.pgid, sig, err)
	}
	return nil
}
