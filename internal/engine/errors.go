package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

// RuntimeError represents an error detected while dispatching an event.
//
// Runtime errors include:
//   - Static guarantee violated: an effect failed to stage even though the
//     rule tree compiled. This is always a defect, never a normal branch.
//   - Unknown element: the event targets an element that is not live
//   - Engine stopped: the event was submitted after Stop
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Element is the dispatch target, and Path its element path when known.
	Element ir.ElementID
	Path    string

	// Event is the dispatched event name.
	Event string

	// Epoch is the epoch the effect would have committed at.
	Epoch int64

	// Details contains additional context (rule locations, build error kind).
	Details map[string]string

	// Err is the underlying staging failure, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStaticGuarantee indicates an effect failed validation at dispatch time.
	ErrCodeStaticGuarantee RuntimeErrorCode = "STATIC_GUARANTEE_VIOLATED"

	// ErrCodeUnknownElement indicates the target element does not exist or was destroyed.
	ErrCodeUnknownElement RuntimeErrorCode = "UNKNOWN_ELEMENT"

	// ErrCodeEngineStopped indicates the engine no longer accepts events.
	ErrCodeEngineStopped RuntimeErrorCode = "ENGINE_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	target := e.Path
	if target == "" {
		target = fmt.Sprintf("#%d", e.Element)
	}
	if e.Event != "" {
		return fmt.Sprintf("%s: %s (element=%s, event=%s)", e.Code, e.Message, target, e.Event)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying staging failure.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsDefect returns true if the error reports a dispatch-time validation
// failure that the static checks should have caught.
// Uses errors.As to handle wrapped errors.
func IsDefect(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStaticGuarantee
	}
	return false
}

// IsUnknownElement returns true if the event targeted a missing element.
func IsUnknownElement(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownElement
	}
	return false
}

// NewDefectError creates a RuntimeError for an effect that failed to stage.
func NewDefectError(key ir.ListenerKey, path string, epoch int64, cause error) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeStaticGuarantee,
		Message: "effect failed validation at dispatch time",
		Element: key.Element,
		Path:    path,
		Event:   key.Event,
		Epoch:   epoch,
		Details: map[string]string{"cause": cause.Error()},
		Err:     cause,
	}
	var be *resolve.BuildError
	if errors.As(cause, &be) {
		re.Details["kind"] = string(be.Kind)
		for i, loc := range be.RuleLocations {
			re.Details[fmt.Sprintf("rule_%d", i)] = loc.String()
		}
	}
	return re
}

// NewUnknownElementError creates a RuntimeError for a dispatch to a dead or
// never-created element.
func NewUnknownElementError(key ir.ListenerKey) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownElement,
		Message: "no live element with this ID",
		Element: key.Element,
		Event:   key.Event,
	}
}
