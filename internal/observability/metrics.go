package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the orchestrator's prometheus metrics. It satisfies the
// session's and supervisor's collector ports.
type Metrics struct {
	registry *prometheus.Registry

	commands            *prometheus.CounterVec
	commandDuration     *prometheus.HistogramVec
	transitions         *prometheus.CounterVec
	processSpawns       *prometheus.CounterVec
	processErrors       *prometheus.CounterVec
	terminationDuration *prometheus.HistogramVec
}

// NewMetrics registers the orchestrator metrics on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "commands_total",
			Help:      "Commands processed by the dispatcher.",
		}, []string{"command", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Name:      "command_duration_seconds",
			Help:      "Wall time spent processing a command, side effects included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "state_transitions_total",
			Help:      "Committed lifecycle state transitions.",
		}, []string{"source", "dest"}),
		processSpawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "process_spawns_total",
			Help:      "Child processes spawned, by kind.",
		}, []string{"kind"}),
		processErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "process_errors_total",
			Help:      "Child process spawn/signal failures, by kind.",
		}, []string{"kind"}),
		terminationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Name:      "process_termination_duration_seconds",
			Help:      "Time to tear down a child process tree.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.commands, m.commandDuration, m.transitions,
		m.processSpawns, m.processErrors, m.terminationDuration,
	)
	return m
}

// CommandProcessed records one dispatched command.
func (m *Metrics) CommandProcessed(command string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.commands.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// Transition records one committed state change.
func (m *Metrics) Transition(source, dest string) {
	m.transitions.WithLabelValues(source, dest).Inc()
}

// ProcessSpawned implements proc.Collector.
func (m *Metrics) ProcessSpawned(kind string) {
	m.processSpawns.WithLabelValues(kind).Inc()
}

// ProcessTerminated implements proc.Collector.
func (m *Metrics) ProcessTerminated(kind string, d time.Duration) {
	m.terminationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ProcessError implements proc.Collector.
func (m *Metrics) ProcessError(kind string) {
	m.processErrors.WithLabelValues(kind).Inc()
}
