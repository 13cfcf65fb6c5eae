package engine

import (
	"log/slog"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

// Outcome is how a dispatch ended.
type Outcome string

const (
	OutcomeCommitted      Outcome = "committed"
	OutcomeRejected       Outcome = "rejected"
	OutcomeNoop           Outcome = "noop"
	OutcomeUnknownElement Outcome = "unknown_element"
)

// Result describes one dispatch.
type Result struct {
	Key     ir.ListenerKey
	Outcome Outcome
	Epoch   int64

	// Phases is the path the binding took through its state machine,
	// e.g. [idle staged committed]. Empty for no-ops.
	Phases []string

	// Effect summarises a committed effect; nil otherwise.
	Effect *resolve.EffectResult

	// Document is the resolved document after the dispatch settled.
	Document *ir.Document
}

// Dispatch applies one event to the runtime atomically.
//
// A dispatch with no binding for (target, event) is a no-op. Otherwise the
// effect is staged on a copy of the state and, if it stages cleanly, the
// copy replaces the live state in one step: property overrides, structure
// replacement, variable writes with their propagation, and listener
// installs all become visible together.
//
// A staging failure means the compile-time dry run missed something. It is
// reported as a STATIC_GUARANTEE_VIOLATED RuntimeError, the binding moves
// to PhaseRejected and the document is left exactly as it was.
//
// The returned Result is never nil.
func (rt *Runtime) Dispatch(target ir.ElementID, event string) (*Result, error) {
	key := ir.ListenerKey{Element: target, Event: event}
	cur := rt.state

	if _, ok := cur.Element(target); !ok {
		return &Result{Key: key, Outcome: OutcomeUnknownElement, Epoch: cur.Epoch(), Document: cur.Snapshot()},
			NewUnknownElementError(key)
	}
	if len(cur.Program(key)) == 0 {
		return &Result{Key: key, Outcome: OutcomeNoop, Epoch: cur.Epoch(), Document: cur.Snapshot()}, nil
	}

	epoch := cur.Epoch() + 1
	phases := []string{ir.PhaseIdle, ir.PhaseStaged}

	staged := cur.Clone()
	staged.SetPhase(key, ir.PhaseStaged)
	eff, _, err := staged.ApplyEffect(target, event, epoch)
	if err != nil {
		cur.SetPhase(key, ir.PhaseRejected)
		path := cur.Path(target)
		rerr := NewDefectError(key, path, epoch, err)
		rt.logger.Error("static guarantee violated",
			slog.String("element", path),
			slog.String("event", event),
			slog.Int64("epoch", epoch),
			slog.Any("error", err),
		)
		return &Result{
			Key:      key,
			Outcome:  OutcomeRejected,
			Epoch:    cur.Epoch(),
			Phases:   append(phases, ir.PhaseRejected),
			Document: cur.Snapshot(),
		}, rerr
	}

	staged.SetPhase(key, ir.PhaseCommitted)
	rt.state = staged
	rt.logger.Debug("effect committed",
		slog.String("element", staged.Path(target)),
		slog.String("event", event),
		slog.Int64("epoch", epoch),
	)

	return &Result{
		Key:      key,
		Outcome:  OutcomeCommitted,
		Epoch:    epoch,
		Phases:   append(phases, ir.PhaseCommitted),
		Effect:   eff,
		Document: staged.Snapshot(),
	}, nil
}

// DispatchPath is Dispatch with the target addressed by element path.
func (rt *Runtime) DispatchPath(path, event string) (*Result, error) {
	id, err := rt.state.Snapshot().Find(path)
	if err != nil {
		return nil, err
	}
	return rt.Dispatch(id, event)
}
