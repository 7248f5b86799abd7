// Package launcher starts and terminates the world and visualization
// processes. From the session's point of view each launcher is opaque: it
// starts, it terminates, nothing else leaks out.
package launcher

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"

	"robolab/internal/proc"
	"robolab/internal/worldcfg"
)

// Running is a launched world or visualization that can be torn down.
type Running interface {
	Terminate() error
}

// worldCommands maps simulator backends to their server command lines. The
// launch file, when present, is appended.
var worldCommands = map[string][]string{
	"gazebo": {"gzserver", "--verbose"},
	"gz":     {"gz", "sim", "-s", "-r"},
	"webots": {"webots", "--no-rendering", "--batch"},
}

// World launches simulation worlds. With a docker client configured,
// configurations naming an image run containerised; everything else spawns
// a host process tree under the supervisor.
type World struct {
	sup    *proc.Supervisor
	docker client.APIClient
}

// NewWorld creates a world launcher. docker may be nil when container
// worlds are not supported.
func NewWorld(sup *proc.Supervisor, docker client.APIClient) *World {
	return &World{sup: sup, docker: docker}
}

// Launch starts the world described by cfg and returns its handle.
func (w *World) Launch(ctx context.Context, cfg worldcfg.Config) (Running, error) {
	if cfg.Image != "" {
		if w.docker == nil {
			return nil, fmt.Errorf("launch world %s: container image requested but docker is not configured", cfg.Name)
		}
		return w.launchContainer(ctx, cfg)
	}

	argv, ok := worldCommands[cfg.World]
	if !ok {
		return nil, fmt.Errorf("launch world %s: unknown simulator %q", cfg.Name, cfg.World)
	}

	args := append([]string(nil), argv[1:]...)
	if cfg.LaunchFile != "" {
		args = append(args, cfg.LaunchFile)
	}

	h, err := w.sup.Spawn("world", argv[0], args, "")
	if err != nil {
		return nil, err
	}
	return h, nil
}
