package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/engine"
	"github.com/roach88/cui/internal/store"
)

func TestRun_DispatchesInOrder(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewRunCommand, "json", path,
		"--session", "s1", "--events", "root/a[0]:click,root:click")
	require.NoError(t, err)

	var result RunResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s1", result.Session)
	assert.Equal(t, int64(1), result.Epoch)
	assert.NotEmpty(t, result.DocumentHash)
	assert.NotEmpty(t, result.RuleHash)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, RunStep{Seq: 1, Dispatch: "root/a[0]:click", Element: "root/a[0]", Outcome: "committed", Epoch: 1}, result.Steps[0])
	assert.Equal(t, RunStep{Seq: 2, Dispatch: "root:click", Element: "root", Outcome: "noop", Epoch: 1}, result.Steps[1])
}

func TestRun_Text(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewRunCommand, "text", path, "--session", "s1", "--events", "root/a[1]:click")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ root/a[1]:click → committed (epoch 1)")
	assert.Contains(t, out, "Session:       s1")
	assert.Contains(t, out, "Epoch:         1")
}

func TestRun_NoEvents(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewRunCommand, "json", path)
	require.NoError(t, err)

	var result RunResult
	decode(t, out, &result)
	assert.Empty(t, result.Steps)
	assert.Equal(t, int64(0), result.Epoch)
	assert.NotEmpty(t, result.Session, "a UUIDv7 session is generated")
}

func TestRun_UnresolvedPathFails(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	out, err := execute(t, NewRunCommand, "json", path, "--events", "root/b[0]:click,root/a[0]:click")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result RunResult
	resp := decode(t, out, &result)
	assert.Equal(t, ErrCodeDispatch, resp.Error.Code)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, outcomeUnresolved, result.Steps[0].Outcome)
	assert.Contains(t, result.Steps[0].Error, "root/b[0]")
	assert.Equal(t, "committed", result.Steps[1].Outcome, "later steps still run")
	assert.Equal(t, int64(1), result.Steps[1].Seq)
}

func TestRun_LaterStepsSeeCreatedElements(t *testing.T) {
	rules := `- a:
    - b: []
    - "?click":
        - c:
            - "?focus":
                - color: blue
`
	path := writeFile(t, "rules.yaml", rules)

	out, err := execute(t, NewRunCommand, "json", path, "--events", "root/a[0]:click,root/a[0]/c[0]:focus")
	require.NoError(t, err)

	var result RunResult
	decode(t, out, &result)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "committed", result.Steps[0].Outcome)
	assert.Equal(t, "committed", result.Steps[1].Outcome)
	assert.Equal(t, int64(2), result.Epoch)
}

func TestRun_MalformedEvents(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	_, err := execute(t, NewRunCommand, "text", path, "--events", "rootclick")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeBadDispatch)
}

func TestRun_BuildErrorExitsOne(t *testing.T) {
	path := writeFile(t, "rules.yaml", "- a:\n    - color: $missing\n")

	_, err := execute(t, NewRunCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRun_JournalsToDatabase(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)
	db := filepath.Join(t.TempDir(), "cui.db")

	_, err := execute(t, NewRunCommand, "text", path, "--db", db, "--session", "journaled",
		"--events", "root/a[0]:click,root/a[1]:click")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sess, err := st.ReadSession(ctx, "journaled")
	require.NoError(t, err)
	assert.Equal(t, path, sess.Source)

	recs, err := st.ReadDispatches(ctx, "journaled")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "committed", recs[0].Outcome)
	assert.Equal(t, "committed", recs[1].Outcome)
	assert.Equal(t, int64(2), recs[1].Epoch)
}

func TestRun_SessionGeneratorOverride(t *testing.T) {
	path := writeFile(t, "rules.yaml", counterRules)

	opts := &RunOptions{
		RootOptions:      &RootOptions{Format: "json"},
		Database:         ":memory:",
		SessionGenerator: engine.NewFixedGenerator("from-generator"),
	}
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(opts.RootOptions)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runEngine(opts, path, cmd))

	var result RunResult
	decode(t, buf.String(), &result)
	assert.Equal(t, "from-generator", result.Session)
}

func TestParseDispatches(t *testing.T) {
	args, err := parseDispatches([]string{"root/a[0]:click", " root:focus "})
	require.NoError(t, err)
	assert.Equal(t, []DispatchArg{{Path: "root/a[0]", Event: "click"}, {Path: "root", Event: "focus"}}, args)

	for _, bad := range []string{"root", "root:", ""} {
		_, err := parseDispatches([]string{bad})
		assert.Error(t, err, bad)
	}
}
