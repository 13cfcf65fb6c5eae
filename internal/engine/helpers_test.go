package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustCompile(t *testing.T, parts ...ir.Part) *Runtime {
	t.Helper()
	rt, err := Compile(ir.NewRoot(parts...), WithLogger(quietLogger()))
	require.NoError(t, err)
	return rt
}

// uncheckedRuntime builds a Runtime without the dry run, so dispatch-time
// failures can be provoked.
func uncheckedRuntime(t *testing.T, parts ...ir.Part) *Runtime {
	t.Helper()
	root := ir.NewRoot(parts...)
	state, err := resolve.Build(root)
	require.NoError(t, err)
	hash, err := ir.RuleTreeHash(root)
	require.NoError(t, err)
	return &Runtime{
		rules:    root,
		ruleHash: hash,
		events:   compiler.BuiltinEvents(),
		state:    state,
		logger:   quietLogger(),
	}
}

func findID(t *testing.T, rt *Runtime, path string) ir.ElementID {
	t.Helper()
	id, err := rt.Document().Find(path)
	require.NoError(t, err)
	return id
}

func propOf(t *testing.T, rt *Runtime, path, key string) string {
	t.Helper()
	v, ok := rt.Document().Property(findID(t, rt, path), key)
	require.True(t, ok, "%s has no property %q", path, key)
	return v
}

func mustDispatch(t *testing.T, rt *Runtime, path, event string) *Result {
	t.Helper()
	res, err := rt.DispatchPath(path, event)
	require.NoError(t, err)
	require.Equal(t, OutcomeCommitted, res.Outcome)
	return res
}

func requireBuildKind(t *testing.T, err error, kind resolve.ErrorKind) *resolve.BuildError {
	t.Helper()
	require.Error(t, err)
	var be *resolve.BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, kind, be.Kind, "unexpected error: %v", err)
	return be
}
