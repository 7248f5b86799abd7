package daemon

import (
	"context"

	"robolab/internal/launcher"
	"robolab/internal/proc"
	"robolab/internal/worldcfg"
	"robolab/session"
)

// Adapters narrowing the concrete infrastructure to the session's ports.

type supervisorAdapter struct {
	sup *proc.Supervisor
}

func (a supervisorAdapter) Spawn(kind, name string, args []string, dir string) (session.Process, error) {
	h, err := a.sup.Spawn(kind, name, args, dir)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type worldAdapter struct {
	worlds *launcher.World
}

func (a worldAdapter) Launch(ctx context.Context, cfg worldcfg.Config) (session.Running, error) {
	r, err := a.worlds.Launch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type visualizationAdapter struct {
	viz *launcher.Visualization
}

func (a visualizationAdapter) Launch(kind string) (session.Running, error) {
	r, err := a.viz.Launch(kind)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (a visualizationAdapter) NeedsTelemetry(kind string) bool {
	return launcher.NeedsTelemetry(kind)
}
