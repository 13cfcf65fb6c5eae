package harness

import "github.com/roach88/cui/internal/ir"

// TraceEvent is one settled dispatch in a scenario run.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Element string `json:"element"` // path at the time of dispatch
	Event   string `json:"event"`
	Outcome string `json:"outcome"`
	Epoch   int64  `json:"epoch"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the dispatches in the order they settled.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Session is the journal session the run was recorded under.
	Session string `json:"session,omitempty"`

	// BuildError is the kind of build error the rules failed with, if any.
	BuildError string `json:"build_error,omitempty"`

	// Document is the final resolved document; nil when the build failed.
	Document *ir.Document `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a dispatch to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
