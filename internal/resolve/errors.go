package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cui/internal/ir"
)

// ErrorKind classifies a build failure.
type ErrorKind string

const (
	// ConflictingStructure: two rule paths assign structure to one element in one epoch.
	ConflictingStructure ErrorKind = "ConflictingStructure"

	// UndefinedVariable: a value expression references a variable not visible in its scope.
	UndefinedVariable ErrorKind = "UndefinedVariable"

	// UnknownEventName: a listener names an event outside the recognized set.
	UnknownEventName ErrorKind = "UnknownEventName"

	// CyclicVariableDependency: a variable's value would depend on itself.
	CyclicVariableDependency ErrorKind = "CyclicVariableDependency"

	// InvalidRule: the rule tree is malformed (bad root, runaway structure recursion).
	InvalidRule ErrorKind = "InvalidRule"
)

// Build error codes (E200-E299)
const (
	ErrConflictingStructure = "E201"
	ErrUndefinedVariable    = "E202"
	ErrUnknownEventName     = "E203"
	ErrCyclicVariable       = "E204"
	ErrInvalidRule          = "E205"
)

var kindCodes = map[ErrorKind]string{
	ConflictingStructure:     ErrConflictingStructure,
	UndefinedVariable:        ErrUndefinedVariable,
	UnknownEventName:         ErrUnknownEventName,
	CyclicVariableDependency: ErrCyclicVariable,
	InvalidRule:              ErrInvalidRule,
}

// BuildError is a fatal compilation failure. No partial document accompanies it.
type BuildError struct {
	Kind          ErrorKind     `json:"kind"`
	Code          string        `json:"code"`
	Message       string        `json:"message"`
	ElementPath   string        `json:"element_path,omitempty"`
	RuleLocations []ir.Location `json:"rule_locations,omitempty"`
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Code, e.Kind, e.Message)
	if e.ElementPath != "" {
		fmt.Fprintf(&b, " (element %s)", e.ElementPath)
	}
	if len(e.RuleLocations) > 0 {
		locs := make([]string, len(e.RuleLocations))
		for i, l := range e.RuleLocations {
			locs[i] = l.String()
		}
		fmt.Fprintf(&b, " at %s", strings.Join(locs, ", "))
	}
	return b.String()
}

// NewBuildError creates a BuildError with the code for kind.
func NewBuildError(kind ErrorKind, elementPath, message string, locs ...ir.Location) *BuildError {
	return &BuildError{
		Kind:          kind,
		Code:          kindCodes[kind],
		Message:       message,
		ElementPath:   elementPath,
		RuleLocations: locs,
	}
}

// IsBuildError returns true if err is or wraps a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// BuildErrorKind returns the kind of a (possibly wrapped) BuildError.
func BuildErrorKind(err error) (ErrorKind, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
