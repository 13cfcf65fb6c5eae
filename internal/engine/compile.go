package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

// Runtime is a compiled rule tree together with its live element state.
//
// Runtime is not safe for concurrent use; the Engine serializes access.
type Runtime struct {
	rules    *ir.RuleNode
	ruleHash string
	events   compiler.EventSet
	state    *resolve.State
	logger   *slog.Logger
}

// Compile resolves a rule tree into its initial document and proves every
// reachable listener effect stages cleanly.
//
// Compilation runs three passes, any of which aborts with a *resolve.BuildError
// and no partial document:
//  1. compiler.Validate: names, property keys and event names
//  2. resolve.Build: matching, cascade, variables and structure at epoch 0
//  3. a dry run of every listener binding in every state that some sequence
//     of dispatches can reach, so nested listeners, new elements and effects
//     that interact are covered too
func Compile(root *ir.RuleNode, opts ...Option) (*Runtime, error) {
	cfg := newSettings(opts)

	if root == nil {
		return nil, resolve.NewBuildError(resolve.InvalidRule, "", "rule tree is empty")
	}
	if root.Loc.Path == "" {
		ir.Index(root)
	}

	if errs := compiler.Validate(root, cfg.events); len(errs) > 0 {
		be := firstFinding(errs).BuildError()
		if len(errs) > 1 {
			be.Message = fmt.Sprintf("%s (and %d more)", be.Message, len(errs)-1)
		}
		return nil, be
	}

	state, err := resolve.Build(root)
	if err != nil {
		return nil, err
	}

	if err := dryRun(state); err != nil {
		return nil, err
	}

	hash, err := ir.RuleTreeHash(root)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	return &Runtime{
		rules:    root,
		ruleHash: hash,
		events:   cfg.events,
		state:    state,
		logger:   cfg.logger,
	}, nil
}

// maxDryRunStates bounds how many distinct states the dry run explores
// before it gives up on the tree.
var maxDryRunStates = 4096

// reachable is a state found by the dry run together with the dispatches
// that lead to it from the initial document.
type reachable struct {
	state *resolve.State
	trail []string
}

// dryRun stages every binding from every state the listener effects can
// reach, breadth first from the initial state. States are deduplicated by
// resolve.State.Digest, which ignores element IDs and epochs; the rule tree
// is finite, so the set of digests is too.
func dryRun(initial *resolve.State) error {
	seen := map[string]bool{initial.Digest(): true}
	queue := []reachable{{state: initial}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, key := range cur.state.ListenerKeys() {
			step := fmt.Sprintf("%s:%s", cur.state.Path(key.Element), key.Event)
			staged, err := cur.state.StageEffect(key.Element, key.Event)
			if err != nil {
				return withTrail(err, append(cur.trail, step))
			}
			d := staged.Digest()
			if seen[d] {
				continue
			}
			if len(seen) >= maxDryRunStates {
				return resolve.NewBuildError(resolve.InvalidRule, cur.state.Path(key.Element),
					fmt.Sprintf("listener effects reach more than %d distinct states", maxDryRunStates))
			}
			seen[d] = true
			queue = append(queue, reachable{state: staged, trail: append(slices.Clone(cur.trail), step)})
		}
	}
	return nil
}

// withTrail notes on a BuildError the dispatch sequence that ends in the
// failing effect, unless that effect fails from the initial state.
func withTrail(err error, trail []string) error {
	var be *resolve.BuildError
	if len(trail) > 1 && errors.As(err, &be) {
		be.Message = fmt.Sprintf("%s (reached by dispatching %s)", be.Message, strings.Join(trail, ", "))
	}
	return err
}

// firstFinding picks the finding that becomes the BuildError: an unknown
// event name when there is one, the first finding otherwise.
func firstFinding(errs []compiler.ValidationError) compiler.ValidationError {
	for _, e := range errs {
		if e.Code == compiler.ErrUnknownEvent {
			return e
		}
	}
	return errs[0]
}

// Rules returns the compiled rule tree.
func (rt *Runtime) Rules() *ir.RuleNode { return rt.rules }

// RuleHash returns the identity of the compiled rule tree.
func (rt *Runtime) RuleHash() string { return rt.ruleHash }

// Events returns the recognized event names.
func (rt *Runtime) Events() compiler.EventSet { return rt.events }

// Epoch returns the epoch of the last committed effect (0 after Compile).
func (rt *Runtime) Epoch() int64 { return rt.state.Epoch() }

// Document returns a snapshot of the resolved document.
func (rt *Runtime) Document() *ir.Document { return rt.state.Snapshot() }
