package session

import (
	"context"
	"time"

	"robolab"
	"robolab/internal/worldcfg"
)

// Transport delivers outbound messages to the control client and can drop
// or stop the connection. Send must be safe from any goroutine.
// Production: internal/comms.Consumer.
type Transport interface {
	Send(msg robolab.Message) error
	// Disconnect drops the current client but keeps accepting new ones.
	Disconnect() error
	Stop() error
}

// Process is a live application process tree.
// Production: *proc.Handle.
type Process interface {
	Suspend() error
	Resume() error
	Terminate() error
}

// Supervisor spawns application process trees.
// Production: adapter over *proc.Supervisor.
type Supervisor interface {
	Spawn(kind, name string, args []string, dir string) (Process, error)
}

// Running is a launched world or visualization service.
type Running interface {
	Terminate() error
}

// WorldLauncher starts simulation worlds.
// Production: adapter over *launcher.World.
type WorldLauncher interface {
	Launch(ctx context.Context, cfg worldcfg.Config) (Running, error)
}

// VisualizationLauncher starts visualization processes.
// Production: adapter over *launcher.Visualization.
type VisualizationLauncher interface {
	Launch(kind string) (Running, error)
	NeedsTelemetry(kind string) bool
}

// Relay is the GUI telemetry relay. Send with no connected peer is a no-op.
// Production: *relay.Server.
type Relay interface {
	Start() error
	Stop() error
	Send(data []byte) error
}

// SimControl drives simulated physics time, independent of process
// scheduling. Production: *simrpc.Client.
type SimControl interface {
	Pause() error
	Unpause() error
	Reset() error
}

// Linter evaluates submitted code. Empty findings mean the code may run;
// the error is reserved for checker-engine failures.
// Production: *lint.Checker.
type Linter interface {
	Check(code string) (string, error)
}

// ConsoleSink dumps diagnostics to attached operator consoles.
// Production: *console.Sink.
type ConsoleSink interface {
	Dump(text string)
}

// Journal records processed commands and committed transitions.
// Production: *journal.Store. Failures are logged, never fatal.
type Journal interface {
	RecordCommand(commandID, name string, cmdErr error) error
	RecordTransition(trigger, source, dest string) error
}

// Collector receives dispatcher metrics.
// Production: *observability.Metrics.
type Collector interface {
	CommandProcessed(command string, d time.Duration, err error)
	Transition(source, dest string)
}

type noopCollector struct{}

func (noopCollector) CommandProcessed(string, time.Duration, error) {}
func (noopCollector) Transition(string, string)                     {}
