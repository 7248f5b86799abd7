package launcher

import (
	"fmt"

	"robolab/internal/proc"
)

// VisualizationSpec describes one visualization kind.
type VisualizationSpec struct {
	Command []string
	// Telemetry marks kinds whose template talks to the GUI over the
	// telemetry relay.
	Telemetry bool
}

// visualizationKinds is the closed table of supported kinds.
var visualizationKinds = map[string]VisualizationSpec{
	"console":    {Command: []string{"xterm", "-T", "robolab console"}},
	"gzclient":   {Command: []string{"gzclient"}},
	"gazebo_rae": {Command: []string{"gzclient"}, Telemetry: true},
}

// NeedsTelemetry reports whether kind requires the telemetry relay. Unknown
// kinds report false; Launch rejects them anyway.
func NeedsTelemetry(kind string) bool {
	return visualizationKinds[kind].Telemetry
}

// Visualization launches visualization processes under the supervisor.
type Visualization struct {
	sup *proc.Supervisor
}

// NewVisualization creates a visualization launcher.
func NewVisualization(sup *proc.Supervisor) *Visualization {
	return &Visualization{sup: sup}
}

// Launch starts the visualization process for kind.
func (v *Visualization) Launch(kind string) (Running, error) {
	spec, ok := visualizationKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown visualization kind %q", kind)
	}

	h, err := v.sup.Spawn("visualization", spec.Command[0], spec.Command[1:], "")
	if err != nil {
		return nil, err
	}
	return h, nil
}
