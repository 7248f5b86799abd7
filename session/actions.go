package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"robolab"
	"robolab/internal/instrument"
	"robolab/internal/support/buildinfo"
	"robolab/internal/workspace"
	"robolab/internal/worldcfg"
)

// LintError carries checker findings back to the caller. The application is
// not spawned and the session state is unchanged.
type LintError struct {
	Findings string
}

func (e *LintError) Error() string { return e.Findings }

func (s *Session) onConnect(_ context.Context, _ json.RawMessage) error {
	return s.transport.Send(robolab.Message{
		ID:      s.inflight.ID,
		Command: "introspection",
		Data: robolab.Introspection{
			BackendVersion:    buildinfo.Version,
			MiddlewareVersion: s.middlewareVersion,
			GPUAvailable:      s.gpuProbe(),
		},
	})
}

func (s *Session) onLaunchWorld(ctx context.Context, payload json.RawMessage) error {
	cfg, err := worldcfg.Validate(payload)
	if err != nil {
		// A half-validated configuration must never reach the launcher.
		return err
	}
	if s.world != nil {
		return fmt.Errorf("world %q already running", cfg.Name)
	}

	if cfg.HasArchive() {
		slog.Info("Extracting custom world archive.", "name", cfg.Name)
		dir, err := s.layout.ExtractWorld(cfg.Name, cfg.Zip)
		if err != nil {
			return err
		}
		if cfg.LaunchFile != "" && !filepath.IsAbs(cfg.LaunchFile) {
			cfg.LaunchFile = filepath.Join(dir, cfg.LaunchFile)
		}
	}

	run, err := s.worlds.Launch(ctx, cfg)
	if err != nil {
		return err
	}
	s.world = run
	slog.Info("World launched.", "name", cfg.Name, "world", cfg.World)
	return nil
}

func (s *Session) onPrepareVisualization(_ context.Context, payload json.RawMessage) error {
	kind, err := decodeKind(payload)
	if err != nil {
		return err
	}
	if s.vis != nil {
		return fmt.Errorf("visualization already running")
	}

	run, err := s.viz.Launch(kind)
	if err != nil {
		return err
	}
	s.vis = run

	if s.viz.NeedsTelemetry(kind) {
		if err := s.relay.Start(); err != nil {
			// Roll the visualization back so the aborted transition leaves
			// no resource behind.
			if terr := run.Terminate(); terr != nil {
				slog.Error("terminate visualization after relay failure", "err", terr)
			}
			s.vis = nil
			return err
		}
		s.relayOn = true
	}
	slog.Info("Visualization prepared.", "kind", kind, "telemetry", s.relayOn)
	return nil
}

// runPayload is the run_application submission. Kind "packaged" carries a
// zip archive with its own entry point; anything else is inline code run
// through lint and instrumentation.
type runPayload struct {
	Kind       string `json:"kind,omitempty"`
	Archive    string `json:"archive,omitempty"`
	Entrypoint string `json:"entrypoint,omitempty"`
	Template   string `json:"template,omitempty"`
	Exercise   string `json:"exercise_id,omitempty"`
	Code       string `json:"code,omitempty"`
}

const defaultEntrypoint = "execute.py"

func (s *Session) onRunApplication(_ context.Context, payload json.RawMessage) error {
	var app runPayload
	if err := json.Unmarshal(payload, &app); err != nil {
		return fmt.Errorf("decode application payload: %w", err)
	}

	// Re-running from paused replaces the previous application.
	if s.app != nil {
		if err := s.app.Terminate(); err != nil {
			slog.Error("terminate previous application", "err", err)
		}
		s.app = nil
	}

	if app.Kind == "packaged" {
		return s.runPackaged(app)
	}
	return s.runInline(app)
}

func (s *Session) runPackaged(app runPayload) error {
	if app.Archive == "" {
		return fmt.Errorf("packaged application without archive")
	}
	if err := s.layout.ExtractApp(app.Archive); err != nil {
		return err
	}

	entry := app.Entrypoint
	if entry == "" {
		entry = defaultEntrypoint
	}
	entryPath := filepath.Join(s.layout.Code, entry)
	if _, err := os.Stat(entryPath); err != nil {
		return fmt.Errorf("packaged application entry point %s: %w", entry, err)
	}

	proc, err := s.sup.Spawn("application", "python3", []string{entryPath}, s.layout.Code)
	if err != nil {
		return err
	}
	s.app = proc

	if err := s.sim.Unpause(); err != nil {
		return err
	}
	slog.Info("Packaged application running.", "entry", entry)
	return nil
}

func (s *Session) runInline(app runPayload) error {
	if app.Code == "" {
		return fmt.Errorf("application submission without code")
	}

	code := instrument.CompatRewrite(app.Code)

	findings, err := s.linter.Check(code)
	if err != nil {
		return err
	}
	if findings != "" {
		if s.consoles != nil {
			s.consoles.Dump(findings)
		}
		return &LintError{Findings: findings}
	}

	instrumented, err := instrument.Apply(code)
	if err != nil {
		return err
	}
	if _, err := s.layout.WriteCode(workspace.CodeFile, instrumented); err != nil {
		return err
	}

	entry := workspace.CodeFile
	if app.Template != "" {
		templateDir := filepath.Join(app.Template, s.templateFlavor())
		if _, err := os.Stat(filepath.Join(templateDir, workspace.EntryFile)); err == nil {
			entry = workspace.EntryFile
		}
		if err := s.layout.CopyTree(templateDir); err != nil {
			return fmt.Errorf("copy template runtime: %w", err)
		}
	}

	proc, err := s.sup.Spawn("application", "python3", []string{filepath.Join(s.layout.Code, entry)}, s.layout.Code)
	if err != nil {
		return err
	}
	s.app = proc

	if err := s.sim.Unpause(); err != nil {
		return err
	}
	slog.Info("Application running.", "exercise", app.Exercise, "entry", entry)
	return nil
}

func (s *Session) templateFlavor() string {
	if s.legacyTemplates {
		return "ros1_noetic"
	}
	return "ros2_humble"
}

func (s *Session) onPause(_ context.Context, _ json.RawMessage) error {
	if s.app == nil {
		return fmt.Errorf("no application to pause")
	}
	// Two clocks stop here: process scheduling, then simulated physics.
	// Neither substitutes for the other.
	if err := s.app.Suspend(); err != nil {
		return err
	}
	return s.sim.Pause()
}

func (s *Session) onResume(_ context.Context, _ json.RawMessage) error {
	if s.app == nil {
		return fmt.Errorf("no application to resume")
	}
	if err := s.app.Resume(); err != nil {
		return err
	}
	return s.sim.Unpause()
}

func (s *Session) onTerminateApplication(_ context.Context, _ json.RawMessage) error {
	// Best-effort: each sub-step failure is logged and the next still runs.
	if s.app != nil {
		if err := s.app.Terminate(); err != nil {
			slog.Error("terminate application", "err", err)
		}
		s.app = nil
	}
	if err := s.sim.Pause(); err != nil {
		slog.Error("pause simulation after application teardown", "err", err)
	}
	if err := s.sim.Reset(); err != nil {
		slog.Error("reset simulation after application teardown", "err", err)
	}
	return nil
}

func (s *Session) onTerminateVisualization(_ context.Context, _ json.RawMessage) error {
	if s.vis != nil {
		if err := s.vis.Terminate(); err != nil {
			return err
		}
		s.vis = nil
	}
	s.stopRelay()
	return nil
}

func (s *Session) onTerminateUniverse(_ context.Context, _ json.RawMessage) error {
	if s.world != nil {
		if err := s.world.Terminate(); err != nil {
			return err
		}
		s.world = nil
	}
	return nil
}

// onDisconnect tears down everything the session holds, best-effort, and
// leaves the machine in idle with a live listener. Repeating it is safe:
// every step tolerates an already-cleared resource.
func (s *Session) onDisconnect(_ context.Context, _ json.RawMessage) error {
	if err := s.transport.Disconnect(); err != nil {
		slog.Error("disconnect control client", "err", err)
	}
	if s.app != nil {
		if err := s.app.Terminate(); err != nil {
			slog.Error("terminate application", "err", err)
		}
		s.app = nil
	}
	s.stopRelay()
	if s.vis != nil {
		if err := s.vis.Terminate(); err != nil {
			slog.Error("terminate visualization", "err", err)
		}
		s.vis = nil
	}
	if s.world != nil {
		if err := s.world.Terminate(); err != nil {
			slog.Error("terminate world", "err", err)
		}
		s.world = nil
	}
	return nil
}

// stylePayload is the style_check submission.
type stylePayload struct {
	Kind     string `json:"kind,omitempty"`
	Exercise string `json:"exercise_id,omitempty"`
	Code     string `json:"code"`
}

func (s *Session) onStyleCheck(_ context.Context, payload json.RawMessage) error {
	var req stylePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode style check payload: %w", err)
	}
	// Packaged applications carry no inline code to check.
	if req.Kind == "packaged" {
		return nil
	}

	code := instrument.CompatRewrite(req.Code)
	findings, err := s.linter.Check(code)
	if err != nil {
		return err
	}

	report := findings
	if report == "" {
		report = "No errors found"
	}
	if s.consoles != nil {
		s.consoles.Dump(report)
	}

	if findings != "" {
		return &LintError{Findings: findings}
	}
	return nil
}

func (s *Session) stopRelay() {
	if !s.relayOn {
		return
	}
	if err := s.relay.Stop(); err != nil {
		slog.Error("stop telemetry relay", "err", err)
	}
	s.relayOn = false
}

// decodeKind accepts either a bare JSON string or a {"kind": ...} object.
func decodeKind(payload json.RawMessage) (string, error) {
	var kind string
	if err := json.Unmarshal(payload, &kind); err == nil && kind != "" {
		return kind, nil
	}
	var obj struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil || obj.Kind == "" {
		return "", fmt.Errorf("visualization kind missing")
	}
	return obj.Kind, nil
}
