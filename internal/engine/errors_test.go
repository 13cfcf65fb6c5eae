package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

func TestRuntimeError_Format(t *testing.T) {
	key := ir.ListenerKey{Element: 4, Event: "click"}

	err := NewUnknownElementError(key)
	assert.Equal(t, "UNKNOWN_ELEMENT: no live element with this ID (element=#4, event=click)", err.Error())

	cause := resolve.NewBuildError(resolve.ConflictingStructure, "root/a[0]", "conflict",
		ir.Location{File: "x.yaml", Line: 3}, ir.Location{File: "x.yaml", Line: 7})
	defect := NewDefectError(key, "root/a[0]", 2, cause)
	assert.Contains(t, defect.Error(), "STATIC_GUARANTEE_VIOLATED")
	assert.Contains(t, defect.Error(), "element=root/a[0]")
	assert.Equal(t, "ConflictingStructure", defect.Details["kind"])
	assert.Len(t, defect.Details, 4) // cause, kind, rule_0, rule_1

	stopped := &RuntimeError{Code: ErrCodeEngineStopped, Message: "stopped"}
	assert.Equal(t, "ENGINE_STOPPED: stopped", stopped.Error())
}

func TestRuntimeError_Helpers(t *testing.T) {
	key := ir.ListenerKey{Element: 1, Event: "click"}
	cause := resolve.NewBuildError(resolve.UndefinedVariable, "", "missing")
	defect := fmt.Errorf("wrapped: %w", NewDefectError(key, "", 1, cause))

	assert.True(t, IsDefect(defect))
	assert.False(t, IsUnknownElement(defect))
	assert.True(t, resolve.IsBuildError(defect), "defect unwraps to its build error")
	assert.True(t, IsUnknownElement(NewUnknownElementError(key)))
	assert.False(t, IsDefect(errors.New("plain")))
}
