// Package daemon assembles the orchestrator: transport, telemetry relay,
// process supervision, simulation control, and the session dispatcher, run
// together until the context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/docker/docker/client"
	"golang.org/x/sync/errgroup"

	"robolab/config"
	"robolab/internal/comms"
	"robolab/internal/console"
	"robolab/internal/journal"
	"robolab/internal/launcher"
	"robolab/internal/lint"
	"robolab/internal/observability"
	"robolab/internal/proc"
	"robolab/internal/relay"
	"robolab/internal/simrpc"
	"robolab/internal/support/buildinfo"
	"robolab/internal/workspace"
	"robolab/session"
)

// Run starts the orchestrator and blocks until ctx is cancelled. Shutdown
// dispatches a synthetic disconnect through the command queue, so teardown
// is serialized with whatever command is in flight.
func Run(ctx context.Context, cfg config.Config) error {
	obs, err := observability.Init(ctx, cfg.Observability, buildinfo.Version)
	if err != nil {
		return err
	}
	defer obs.Shutdown(context.Background())

	layout, err := workspace.Ensure(cfg.Workspace)
	if err != nil {
		return err
	}

	sup := proc.New(proc.WithCollector(obs.Metrics))

	var docker client.APIClient
	if cfg.Docker {
		docker, err = client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("create docker client: %w", err)
		}
		defer docker.Close()
	}

	generation := simrpc.Detect(cfg.MiddlewareVersion)
	slog.Info("Middleware resolved.", "version", cfg.MiddlewareVersion, "generation", generation)

	consumer := comms.New(cfg.Listen)

	// The relay callback closes over the session pointer; the session only
	// exists after the relay, and the callback cannot fire before Start.
	var sess *session.Session
	rly := relay.New(cfg.RelayListen, func(payload map[string]any) {
		sess.Update(payload)
	})

	opts := []session.Option{
		session.WithConsoles(console.New()),
		session.WithCollector(obs.Metrics),
		session.WithTracer(obs.Tracer),
		session.WithMiddleware(cfg.MiddlewareVersion, generation == simrpc.GenerationLegacy),
	}

	jnl, err := journal.Open(filepath.Join(cfg.DataRoot, "journal.db"))
	if err != nil {
		// The journal is an audit trail, not a dependency.
		slog.Warn("session journal unavailable", "err", err)
	} else {
		defer jnl.Close()
		opts = append(opts, session.WithJournal(jnl))
	}

	sess, err = session.New(session.Deps{
		Transport: consumer,
		Sup:       supervisorAdapter{sup},
		Worlds:    worldAdapter{launcher.NewWorld(sup, docker)},
		Viz:       visualizationAdapter{launcher.NewVisualization(sup)},
		Relay:     rly,
		Sim:       simrpc.New(generation, nil),
		Linter:    lint.New(cfg.LintCommand),
		Layout:    layout,
	}, opts...)
	if err != nil {
		return err
	}

	if err := consumer.Start(); err != nil {
		return err
	}
	defer func() {
		if err := consumer.Stop(); err != nil {
			slog.Error("stop transport", "err", err)
		}
	}()

	slog.Info("Orchestrator ready.", "listen", cfg.Listen, "workspace", cfg.Workspace)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(ctx, consumer.Commands()) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
