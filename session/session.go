// Package session is the lifecycle core of the orchestrator: a closed state
// machine over the connect → world → visualization → application ladder, a
// dispatcher that serializes inbound commands against it, and exclusive
// ownership of the child-process handles those commands create.
package session

import (
	"fmt"
	"os"
	"os/exec"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"robolab"
	"robolab/internal/workspace"
)

// Session owns the lifecycle state and the resources attached to it. All
// mutation happens on the dispatcher goroutine; the only concurrent entry
// point is Update, which never touches state.
type Session struct {
	transport Transport
	sup       Supervisor
	worlds    WorldLauncher
	viz       VisualizationLauncher
	relay     Relay
	sim       SimControl
	linter    Linter
	consoles  ConsoleSink
	journal   Journal
	metrics   Collector
	tracer    trace.Tracer

	layout            workspace.Layout
	middlewareVersion string
	legacyTemplates   bool
	gpuProbe          func() bool

	state     State
	byTrigger map[string]transition

	// Session resources: at most one live handle per kind.
	world   Running
	vis     Running
	app     Process
	relayOn bool

	// inflight is the command currently being dispatched; replies emitted
	// by actions correlate to its id. Dispatcher goroutine only.
	inflight robolab.Command
}

// Option configures a Session.
type Option func(*Session)

// WithConsoles injects an operator console sink.
func WithConsoles(c ConsoleSink) Option {
	return func(s *Session) { s.consoles = c }
}

// WithJournal injects the command/transition journal.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithCollector injects a metrics collector.
func WithCollector(c Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithTracer injects an otel tracer for per-command spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithMiddleware records the middleware version string, and whether the
// legacy template subtree applies.
func WithMiddleware(version string, legacy bool) Option {
	return func(s *Session) {
		s.middlewareVersion = version
		s.legacyTemplates = legacy
	}
}

// WithGPUProbe overrides GPU-availability detection, for tests.
func WithGPUProbe(probe func() bool) Option {
	return func(s *Session) { s.gpuProbe = probe }
}

// Deps are the collaborators a Session cannot run without.
type Deps struct {
	Transport Transport
	Sup       Supervisor
	Worlds    WorldLauncher
	Viz       VisualizationLauncher
	Relay     Relay
	Sim       SimControl
	Linter    Linter
	Layout    workspace.Layout
}

// New creates a Session in the idle state. The transition table is
// validated here, once.
func New(deps Deps, opts ...Option) (*Session, error) {
	switch {
	case deps.Transport == nil:
		return nil, fmt.Errorf("session: transport is required")
	case deps.Sup == nil:
		return nil, fmt.Errorf("session: supervisor is required")
	case deps.Worlds == nil:
		return nil, fmt.Errorf("session: world launcher is required")
	case deps.Viz == nil:
		return nil, fmt.Errorf("session: visualization launcher is required")
	case deps.Relay == nil:
		return nil, fmt.Errorf("session: relay is required")
	case deps.Sim == nil:
		return nil, fmt.Errorf("session: simulation control is required")
	case deps.Linter == nil:
		return nil, fmt.Errorf("session: linter is required")
	}

	index, err := validateTable(transitions)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		transport: deps.Transport,
		sup:       deps.Sup,
		worlds:    deps.Worlds,
		viz:       deps.Viz,
		relay:     deps.Relay,
		sim:       deps.Sim,
		linter:    deps.Linter,
		layout:    deps.Layout,
		metrics:   noopCollector{},
		tracer:    noop.NewTracerProvider().Tracer("session"),
		gpuProbe:  detectGPU,
		state:     StateIdle,
		byTrigger: index,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current lifecycle state. Dispatcher goroutine only.
func (s *Session) State() State { return s.state }

// Update forwards application telemetry to the control client. It is the
// relay's inbound callback and runs on the relay's reader goroutine: it
// only produces an outbound message, never touches session state.
func (s *Session) Update(data map[string]any) {
	if err := s.transport.Send(robolab.Message{Command: "update", Data: map[string]any{"update": data}}); err != nil {
		// A dropped update frame is routine while the client reconnects.
		return
	}
}

// detectGPU reports whether GPU acceleration is available to the
// simulator: an nvidia device node or nvidia-smi on PATH.
func detectGPU() bool {
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
