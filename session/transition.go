package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"robolab"
)

// actionFunc runs a transition's side effects. An error aborts the
// transition before the destination state is committed.
type actionFunc func(s *Session, ctx context.Context, payload json.RawMessage) error

// transition is one row of the static lifecycle table. A nil sources slice
// is the wildcard (any current state); stay marks action-only triggers that
// never change state.
type transition struct {
	trigger string
	sources []State
	dest    State
	stay    bool
	action  actionFunc
}

var transitions = []transition{
	{trigger: "connect", sources: []State{StateIdle}, dest: StateConnected, action: (*Session).onConnect},
	{trigger: "launch_world", sources: []State{StateConnected}, dest: StateWorldReady, action: (*Session).onLaunchWorld},
	{trigger: "prepare_visualization", sources: []State{StateWorldReady}, dest: StateVisualizationReady, action: (*Session).onPrepareVisualization},
	{trigger: "run_application", sources: []State{StateVisualizationReady, StatePaused}, dest: StateApplicationRunning, action: (*Session).onRunApplication},
	{trigger: "pause", sources: []State{StateApplicationRunning}, dest: StatePaused, action: (*Session).onPause},
	{trigger: "resume", sources: []State{StatePaused}, dest: StateApplicationRunning, action: (*Session).onResume},
	{trigger: "terminate_application", sources: []State{StateVisualizationReady, StateApplicationRunning, StatePaused}, dest: StateVisualizationReady, action: (*Session).onTerminateApplication},
	{trigger: "terminate_visualization", sources: []State{StateVisualizationReady}, dest: StateWorldReady, action: (*Session).onTerminateVisualization},
	{trigger: "terminate_universe", sources: []State{StateWorldReady}, dest: StateConnected, action: (*Session).onTerminateUniverse},
	{trigger: "disconnect", sources: nil, dest: StateIdle, action: (*Session).onDisconnect},
	{trigger: "style_check", sources: nil, stay: true, action: (*Session).onStyleCheck},
}

// validateTable rejects malformed tables at startup: duplicate triggers,
// out-of-range states, or missing actions.
func validateTable(table []transition) (map[string]transition, error) {
	index := make(map[string]transition, len(table))
	for _, t := range table {
		if t.trigger == "" {
			return nil, fmt.Errorf("transition with empty trigger")
		}
		if _, dup := index[t.trigger]; dup {
			return nil, fmt.Errorf("duplicate trigger %q", t.trigger)
		}
		if t.action == nil {
			return nil, fmt.Errorf("trigger %q has no action", t.trigger)
		}
		if !t.stay && t.dest.String() == "unknown" {
			return nil, fmt.Errorf("trigger %q has invalid destination", t.trigger)
		}
		for _, src := range t.sources {
			if src.String() == "unknown" {
				return nil, fmt.Errorf("trigger %q has invalid source", t.trigger)
			}
		}
		index[t.trigger] = t
	}
	return index, nil
}

// InvalidTransitionError reports a trigger fired outside its declared
// source states. The session state is unchanged.
type InvalidTransitionError struct {
	Trigger string
	State   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Trigger, e.State)
}

// UnknownTriggerError reports a command that maps to no transition.
type UnknownTriggerError struct {
	Trigger string
}

func (e *UnknownTriggerError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Trigger)
}

// Trigger fires the named transition. The action runs first; only when it
// succeeds is the destination state committed and the state-changed
// notification emitted.
func (s *Session) Trigger(ctx context.Context, name string, payload json.RawMessage) error {
	t, ok := s.byTrigger[name]
	if !ok {
		return &UnknownTriggerError{Trigger: name}
	}
	if t.sources != nil && !slices.Contains(t.sources, s.state) {
		return &InvalidTransitionError{Trigger: name, State: s.state}
	}

	if err := t.action(s, ctx, payload); err != nil {
		return err
	}
	if t.stay {
		return nil
	}

	prev := s.state
	s.state = t.dest
	s.stateChanged(name, prev)
	return nil
}

func (s *Session) stateChanged(trigger string, prev State) {
	slog.Info("State changed.", "from", prev, "to", s.state, "trigger", trigger)
	s.metrics.Transition(prev.String(), s.state.String())
	if s.journal != nil {
		if err := s.journal.RecordTransition(trigger, prev.String(), s.state.String()); err != nil {
			slog.Warn("journal transition", "err", err)
		}
	}
	if err := s.transport.Send(robolab.Message{
		ID:      s.inflight.ID,
		Command: "state-changed",
		Data:    map[string]string{"state": s.state.String()},
	}); err != nil {
		slog.Warn("send state-changed", "err", err)
	}
}
