package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"robolab"
	"robolab/internal/support/buildinfo"
)

// Run is the dispatcher: the single consumer of the inbound command queue
// and the only goroutine that mutates session state. One command is fully
// processed, side effects included, before the next is dequeued.
//
// On context cancellation a synthetic disconnect is dispatched on this same
// goroutine before returning, so shutdown teardown participates in the
// normal serialization instead of racing an in-flight transition.
func (s *Session) Run(ctx context.Context, commands <-chan robolab.Command) error {
	for {
		select {
		case <-ctx.Done():
			s.dispatch(context.WithoutCancel(ctx), robolab.Command{
				ID:   uuid.NewString(),
				Name: "disconnect",
			})
			return ctx.Err()
		case cmd := <-commands:
			s.dispatch(ctx, cmd)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, cmd robolab.Command) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "command "+cmd.Name)
	span.SetAttributes(
		attribute.String("command.id", cmd.ID),
		attribute.String("session.state", s.state.String()),
	)
	defer span.End()

	err := s.process(ctx, cmd)

	s.metrics.CommandProcessed(cmd.Name, time.Since(start), err)
	if s.journal != nil {
		if jerr := s.journal.RecordCommand(cmd.ID, cmd.Name, err); jerr != nil {
			slog.Warn("journal command", "err", jerr)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Command failed.", "command", cmd.Name, "id", cmd.ID, "state", s.state, "err", err)
		if serr := s.transport.Send(cmd.ErrorMessage(err)); serr != nil {
			slog.Warn("send error report", "err", serr)
		}
	}
}

// process executes one command. A panic inside a transition action is
// converted to a per-command error: commands are the crash-isolation
// boundary, not the session.
func (s *Session) process(ctx context.Context, cmd robolab.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.Name, r)
		}
	}()

	switch cmd.Name {
	case "gui":
		// Passthrough to the telemetry relay; never touches the machine.
		return s.relay.Send([]byte(cmd.Data))
	case "status":
		// Read-only snapshot, also machine-free.
		return s.transport.Send(robolab.Message{
			ID:      cmd.ID,
			Command: "status",
			Data: map[string]string{
				"state":              s.state.String(),
				"backend_version":    buildinfo.Version,
				"middleware_version": s.middlewareVersion,
			},
		})
	}

	s.inflight = cmd
	defer func() { s.inflight = robolab.Command{} }()

	if err := s.Trigger(ctx, cmd.Name, cmd.Data); err != nil {
		return err
	}
	return s.transport.Send(cmd.Ack(map[string]string{
		"message": "state changed to " + s.state.String(),
		"state":   s.state.String(),
	}))
}
