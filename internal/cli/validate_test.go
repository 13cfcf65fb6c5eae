package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/resolve"
)

func TestValidate_Valid(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewValidateCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Rules valid")

	out, err = execute(t, NewValidateCommand, "json", path)
	require.NoError(t, err)
	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Nil(t, result.BuildError)
}

func TestValidate_ReportsEveryStaticFinding(t *testing.T) {
	rules := `- "?hover": []
- a:
    - "?swipe": []
    - "": x
`
	path := writeFile(t, "rules.yaml", rules)

	out, err := execute(t, NewValidateCommand, "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 3)
	// Rules are visited in document order, a node's properties before its children
	assert.Equal(t, compiler.ErrUnknownEvent, result.Errors[0].Code)
	assert.Equal(t, compiler.ErrEmptyPropertyKey, result.Errors[1].Code)
	assert.Equal(t, compiler.ErrUnknownEvent, result.Errors[2].Code)
	assert.Nil(t, result.BuildError, "resolution is skipped while static findings remain")
	assert.Equal(t, compiler.ErrUnknownEvent, resp.Error.Code)
}

func TestValidate_ResolutionError(t *testing.T) {
	path := writeFile(t, "rules.yaml", "- $a: $b\n- $b: $a\n- x:\n    - v: $a\n")

	out, err := execute(t, NewValidateCommand, "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BuildError)
	assert.Equal(t, resolve.CyclicVariableDependency, result.BuildError.Kind)
	assert.Equal(t, resolve.ErrCyclicVariable, resp.Error.Code)
}

func TestValidate_TextFailure(t *testing.T) {
	path := writeFile(t, "rules.yaml", "- a:\n    - \"?hover\": []\n")

	out, err := execute(t, NewValidateCommand, "text", path)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, path+":2")
	assert.Contains(t, out, "E301: root/a[0]/?hover[0]")
}

func TestValidate_ExtraEvents(t *testing.T) {
	path := writeFile(t, "rules.yaml", "- \"?hover\": []\n")

	_, err := execute(t, NewValidateCommand, "text", path, "--extra-events", "hover")
	require.NoError(t, err)
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := execute(t, NewValidateCommand, "text", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
