package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/store"
)

// Replay and determinism
//
// A journaled session records, for every dispatch, the element and event,
// the outcome, the epoch and the hash of the document the dispatch left
// behind. Replay recompiles the same rule tree, re-dispatches the events in
// seq order through the same Runtime.Dispatch code path and compares each
// outcome and document hash. Any difference is a determinism failure.
//
// Element IDs are arena indices assigned in creation order, so the same
// rule tree and the same event sequence always produce the same IDs; the
// journal can address elements by ID rather than by path.

// JournalReader reads a journaled session. Implemented by *store.Store.
type JournalReader interface {
	ReadSession(ctx context.Context, id string) (store.Session, error)
	ReadDispatches(ctx context.Context, session string) ([]store.DispatchRecord, error)
}

// ErrRuleHashMismatch is returned when a session was recorded against a
// different rule tree than the one supplied to Replay.
var ErrRuleHashMismatch = errors.New("rule tree does not match the journaled session")

// Mismatch is one difference between the journal and the replay.
type Mismatch struct {
	Seq   int64  `json:"seq"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("seq %d: %s: journal %q, replay %q", m.Seq, m.Field, m.Want, m.Got)
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	Session    string     `json:"session"`
	Dispatches int        `json:"dispatches"`
	Mismatches []Mismatch `json:"mismatches"`
	FinalHash  string     `json:"final_hash"`
}

// OK reports whether the replay reproduced the journal exactly.
func (r *ReplayResult) OK() bool {
	return len(r.Mismatches) == 0
}

// Replay recompiles root and re-applies the journaled session against it.
//
// Returns ErrRuleHashMismatch (wrapped) if root is not the tree the session
// was recorded with. Dispatch differences are reported as Mismatches, not
// as errors.
func Replay(ctx context.Context, j JournalReader, session string, root *ir.RuleNode, opts ...Option) (*ReplayResult, error) {
	sess, err := j.ReadSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	rt, err := Compile(root, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if rt.RuleHash() != sess.RuleHash {
		return nil, fmt.Errorf("replay %s: %w (journal %s, rules %s)", session, ErrRuleHashMismatch, sess.RuleHash, rt.RuleHash())
	}

	records, err := j.ReadDispatches(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{Session: session, Mismatches: []Mismatch{}}

	hash, err := ir.DocumentHash(rt.Document())
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if hash != sess.InitialHash {
		result.Mismatches = append(result.Mismatches, Mismatch{Field: "initial_hash", Want: sess.InitialHash, Got: hash})
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Dispatch errors are expected here when the journal recorded them
		res, _ := rt.Dispatch(rec.Element, rec.Event)
		result.Dispatches++

		hash, err = ir.DocumentHash(res.Document)
		if err != nil {
			return nil, fmt.Errorf("replay seq %d: %w", rec.Seq, err)
		}

		if got := string(res.Outcome); got != rec.Outcome {
			result.Mismatches = append(result.Mismatches, Mismatch{Seq: rec.Seq, Field: "outcome", Want: rec.Outcome, Got: got})
		}
		if res.Epoch != rec.Epoch {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq: rec.Seq, Field: "epoch", Want: fmt.Sprint(rec.Epoch), Got: fmt.Sprint(res.Epoch),
			})
		}
		if hash != rec.DocHash {
			result.Mismatches = append(result.Mismatches, Mismatch{Seq: rec.Seq, Field: "doc_hash", Want: rec.DocHash, Got: hash})
		}
	}

	result.FinalHash = hash
	return result, nil
}
