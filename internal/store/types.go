package store

import (
	"errors"

	"github.com/roach88/cui/internal/ir"
)

// ErrNotFound is returned by single-row reads when no row matches.
var ErrNotFound = errors.New("not found")

// Dispatch outcomes as recorded in the journal.
const (
	OutcomeCommitted      = "committed"
	OutcomeRejected       = "rejected"
	OutcomeNoop           = "noop"
	OutcomeUnknownElement = "unknown_element"
)

// Session identifies one engine run.
type Session struct {
	ID            string `json:"id"`
	RuleHash      string `json:"rule_hash"`
	IRVersion     string `json:"ir_version"`
	EngineVersion string `json:"engine_version"`
	InitialHash   string `json:"initial_hash"`
	Source        string `json:"source,omitempty"`
}

// DispatchRecord is one journaled dispatch.
type DispatchRecord struct {
	Session string       `json:"session"`
	Seq     int64        `json:"seq"`
	Element ir.ElementID `json:"element"`
	Event   string       `json:"event"`
	Outcome string       `json:"outcome"`
	Epoch   int64        `json:"epoch"`
	DocHash string       `json:"doc_hash"`
	Error   string       `json:"error,omitempty"`
}
