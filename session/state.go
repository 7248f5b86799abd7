package session

// State describes the session lifecycle position. Exactly one value is
// current at a time, mutated only by committed transitions on the
// dispatcher goroutine.
type State uint8

const (
	StateIdle State = iota
	StateConnected
	StateWorldReady
	StateVisualizationReady
	StateApplicationRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateWorldReady:
		return "world_ready"
	case StateVisualizationReady:
		return "visualization_ready"
	case StateApplicationRunning:
		return "application_running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
