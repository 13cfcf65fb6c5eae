package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
	"github.com/roach88/cui/internal/store"
	"github.com/roach88/cui/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a journaled engine with a fixed session ID.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	dispatch chan engine.Dispatch
	done     chan error
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and compile the rule tree
// 2. Start the engine with an in-memory journal
// 3. Dispatch each step, waiting for it to settle before the next
// 4. Evaluate assertions on the final document
// 5. Replay the journal and require it to reproduce the run
//
// A failing expectation is reported in the Result; the returned error is
// reserved for infrastructure failures.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := testutil.DiscardLogger()
	result := NewResult()

	root, err := scenario.loadRules()
	if err != nil {
		return nil, err
	}
	events := compiler.BuiltinEvents().With(scenario.Events...)

	rt, err := engine.Compile(root, engine.WithEventSet(events), engine.WithLogger(logger))
	if err != nil {
		kind, ok := resolve.BuildErrorKind(err)
		if !ok {
			return nil, err
		}
		result.BuildError = string(kind)
		switch {
		case scenario.BuildError == "":
			result.AddError(fmt.Sprintf("build failed: %v", err))
		case scenario.BuildError != string(kind):
			result.AddError(fmt.Sprintf("build_error: expected %s, got %v", scenario.BuildError, err))
		}
		return result, nil
	}
	if scenario.BuildError != "" {
		result.AddError(fmt.Sprintf("build_error: expected %s, rules compiled", scenario.BuildError))
		return result, nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		dispatch: make(chan engine.Dispatch, 1),
		done:     make(chan error, 1),
		logger:   logger,
	}
	h.engine = engine.New(rt,
		engine.WithJournal(st),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		engine.WithObserver(func(d engine.Dispatch) { h.dispatch <- d }),
		engine.WithSource(scenario.Name),
		engine.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { h.done <- h.engine.Run(runCtx) }()

	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, err
	}

	h.engine.Stop()
	if err := <-h.done; err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	result.Session = h.engine.Session()
	result.Document = h.engine.Document()
	for _, msg := range EvaluateAssertions(result.Document, scenario.Assertions) {
		result.AddError(msg)
	}

	replay, err := engine.Replay(ctx, st, result.Session, root, engine.WithEventSet(events), engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	for _, m := range replay.Mismatches {
		result.AddError("replay: " + m.String())
	}
	return result, nil
}

// executeSteps dispatches each step and checks its outcome.
// Paths resolve against the document as it stands before the step.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		doc := h.engine.Document()
		id, err := target(doc, step.Dispatch)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			continue
		}

		if err := h.engine.Enqueue(engine.Event{Element: id, Name: step.Event}); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}

		var d engine.Dispatch
		select {
		case d = <-h.dispatch:
		case err := <-h.done:
			return fmt.Errorf("steps[%d]: engine stopped: %v", i, err)
		}

		ev := TraceEvent{
			Seq:     d.Seq,
			Element: doc.ElementPath(id),
			Event:   step.Event,
			Outcome: string(d.Result.Outcome),
			Epoch:   d.Result.Epoch,
		}
		if d.Err != nil {
			ev.Error = d.Err.Error()
		}
		result.AddTrace(ev)

		want := step.Expect
		if want == "" {
			want = string(engine.OutcomeCommitted)
		}
		if ev.Outcome != want {
			msg := fmt.Sprintf("steps[%d]: %s %s: expected %s, got %s", i, ev.Element, step.Event, want, ev.Outcome)
			if ev.Error != "" {
				msg += " (" + ev.Error + ")"
			}
			result.AddError(msg)
		}

		h.logger.Info("step settled",
			"step", i,
			"element", ev.Element,
			"event", ev.Event,
			"outcome", ev.Outcome,
			"epoch", ev.Epoch,
		)
	}
	return nil
}

// target resolves a step's dispatch address: "#N" is a raw element ID,
// anything else an element path.
func target(doc *ir.Document, addr string) (ir.ElementID, error) {
	if raw, ok := strings.CutPrefix(addr, "#"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ir.NoElement, fmt.Errorf("bad element ID %q", addr)
		}
		return ir.ElementID(n), nil
	}
	return doc.Find(addr)
}

// loadRules compiles the scenario's rule source into a rule tree.
func (s *Scenario) loadRules() (*ir.RuleNode, error) {
	if s.Source != "" {
		root, err := compiler.LoadFile(s.Source)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		return root, nil
	}
	filename := s.path
	if filename == "" {
		filename = s.Name + ".yaml"
	}
	root, err := compiler.LoadYAMLNode(filename, &s.Rules)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return root, nil
}
