package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

func TestCompile_Text(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewCompileCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 3 element(s), 2 listener(s)")
	assert.Contains(t, out, "rule hash:")
	assert.Contains(t, out, "document hash:")
}

func TestCompile_JSON(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewCompileCommand, "json", path)
	require.NoError(t, err)

	var result CompilationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, result.Elements)
	assert.Equal(t, 2, result.Listeners)

	root, err := compiler.LoadFile(path)
	require.NoError(t, err)
	want, err := ir.RuleTreeHash(root)
	require.NoError(t, err)
	assert.Equal(t, want, result.RuleHash)
	assert.Contains(t, result.Document, "elements")
}

func TestCompile_YAMLAndCUEAgree(t *testing.T) {
	yamlOut, err := execute(t, NewCompileCommand, "json", writeFile(t, "rules.yaml", counterRules))
	require.NoError(t, err)

	cue := `rules: [
	{"$color": "red"},
	{".a": [{color: "$color"}, {"?click": [{"$color": "green"}]}]},
	{a: []},
	{a: [{size: "2"}]},
]
`
	cueOut, err := execute(t, NewCompileCommand, "json", writeFile(t, "rules.cue", cue))
	require.NoError(t, err)

	var fromYAML, fromCUE CompilationResult
	decode(t, yamlOut, &fromYAML)
	decode(t, cueOut, &fromCUE)
	assert.Equal(t, fromYAML.DocumentHash, fromCUE.DocumentHash)
}

func TestCompile_OutputFile(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)
	outFile := filepath.Join(t.TempDir(), "doc.json")

	out, err := execute(t, NewCompileCommand, "text", path, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical document to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"epoch":0`)
	assert.NotContains(t, string(data), "\n", "canonical JSON has no whitespace")
}

func TestCompile_OutputFileUnwritable(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	_, err := execute(t, NewCompileCommand, "text", path, "-o", filepath.Join(t.TempDir(), "missing", "doc.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeWriteFailed)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		args     []string
		wantCode string
		wantExit int
	}{
		{
			name:     "conflicting structure",
			file:     "rules.yaml",
			content:  "- .a:\n    - b: []\n- a:\n    - c: []\n",
			wantCode: resolve.ErrConflictingStructure,
			wantExit: ExitFailure,
		},
		{
			name:     "undefined variable",
			file:     "rules.yaml",
			content:  "- a:\n    - color: $nope\n",
			wantCode: resolve.ErrUndefinedVariable,
			wantExit: ExitFailure,
		},
		{
			name:     "unknown event",
			file:     "rules.yaml",
			content:  "- \"?swipe\": []\n",
			wantCode: resolve.ErrUnknownEventName,
			wantExit: ExitFailure,
		},
		{
			name:     "parse error",
			file:     "rules.yaml",
			content:  "- a: [\n",
			wantCode: ErrCodeLoadFailed,
			wantExit: ExitFailure,
		},
		{
			name:     "unsupported extension",
			file:     "rules.json",
			content:  "[]",
			wantCode: ErrCodeLoadFailed,
			wantExit: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			out, err := execute(t, NewCompileCommand, "json", append([]string{path}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decode(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCompile_ExtraEvents(t *testing.T) {
	path := writeFile(t, "rules.yaml", "- \"?swipe\": []\n")

	_, err := execute(t, NewCompileCommand, "text", path, "--extra-events", "swipe")
	require.NoError(t, err)
}

func TestCompile_MissingFile(t *testing.T) {
	_, err := execute(t, NewCompileCommand, "text", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
