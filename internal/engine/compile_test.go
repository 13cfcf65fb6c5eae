package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/compiler"
	"github.com/roach88/cui/internal/ir"
	"github.com/roach88/cui/internal/resolve"
)

// .a{color:"red";} + a{}
func TestCompile_ClassContribution(t *testing.T) {
	rt := mustCompile(t,
		ir.NewClass("a", ir.P("color", "red")),
		ir.NewElement("a"),
	)
	assert.Equal(t, "red", propOf(t, rt, "a", "color"))
	assert.Equal(t, int64(0), rt.Epoch())
}

// .a{color:"red";} + a{color:"green";}
func TestCompile_ElementBlockWins(t *testing.T) {
	for name, parts := range map[string][]ir.Part{
		"class first": {
			ir.NewClass("a", ir.P("color", "red")),
			ir.NewElement("a", ir.P("color", "green")),
		},
		"element first": {
			ir.NewElement("a", ir.P("color", "green")),
			ir.NewClass("a", ir.P("color", "red")),
		},
	} {
		t.Run(name, func(t *testing.T) {
			rt := mustCompile(t, parts...)
			assert.Equal(t, "green", propOf(t, rt, "a", "color"))
		})
	}
}

// .a{ b{} b{} } applied to a{}; a separate a{ c{} } elsewhere is unrelated
func TestCompile_ClassStructureSinglePath(t *testing.T) {
	rt := mustCompile(t,
		ir.NewElement("x",
			ir.NewClass("a", ir.NewElement("b"), ir.NewElement("b")),
			ir.NewElement("a"),
		),
		ir.NewElement("a", ir.NewElement("c")),
	)
	doc := rt.Document()

	a := findID(t, rt, "x/a")
	st, _ := doc.Element(a)
	require.Len(t, st.Structure, 2)
	for _, c := range st.Structure {
		assert.Equal(t, "b", doc.Elements[c].Class)
	}

	other := findID(t, rt, "a")
	st, _ = doc.Element(other)
	require.Len(t, st.Structure, 1)
	assert.Equal(t, "c", doc.Elements[st.Structure[0]].Class)
}

func TestCompile_ConflictingStructure(t *testing.T) {
	_, err := Compile(ir.NewRoot(
		ir.NewClass("a", ir.NewElement("b")),
		ir.NewElement("a", ir.NewElement("c")),
	), WithLogger(quietLogger()))
	be := requireBuildKind(t, err, resolve.ConflictingStructure)
	assert.Equal(t, "root/a[0]", be.ElementPath)
	assert.Len(t, be.RuleLocations, 2)
}

func TestCompile_UndefinedVariable(t *testing.T) {
	_, err := Compile(ir.NewRoot(ir.NewElement("a", ir.P("color", "$nope"))))
	requireBuildKind(t, err, resolve.UndefinedVariable)
}

func TestCompile_CyclicVariables(t *testing.T) {
	_, err := Compile(ir.NewRoot(ir.P("$a", "$b"), ir.P("$b", "$a")))
	be := requireBuildKind(t, err, resolve.CyclicVariableDependency)
	assert.Contains(t, be.Message, "$a")
}

func TestCompile_UnknownEvent(t *testing.T) {
	root := ir.NewRoot(ir.NewElement("a", ir.NewListener("hover", ir.P("color", "red"))))
	_, err := Compile(root)
	be := requireBuildKind(t, err, resolve.UnknownEventName)
	assert.Contains(t, be.Message, "hover")

	rt, err := Compile(ir.NewRoot(ir.NewElement("a", ir.NewListener("hover", ir.P("color", "red")))),
		WithEventSet(compiler.BuiltinEvents().With("hover")), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, rt.Events().Contains("hover"))
}

func TestCompile_InvalidRules(t *testing.T) {
	_, err := Compile(nil)
	requireBuildKind(t, err, resolve.InvalidRule)

	_, err = Compile(ir.NewRoot(ir.NewElement(""), ir.NewClass("")))
	be := requireBuildKind(t, err, resolve.InvalidRule)
	assert.Contains(t, be.Message, "and 1 more")
}

func TestCompile_DryRunCatchesListenerConflict(t *testing.T) {
	_, err := Compile(ir.NewRoot(
		ir.NewClass("a", ir.NewListener("click", ir.NewElement("c"))),
		ir.NewElement("a", ir.NewListener("click", ir.NewElement("d"))),
	))
	be := requireBuildKind(t, err, resolve.ConflictingStructure)
	assert.Equal(t, "root/a[0]", be.ElementPath)
}

func TestCompile_DryRunCatchesUndefinedInEffect(t *testing.T) {
	_, err := Compile(ir.NewRoot(ir.NewListener("click", ir.P("color", "$nope"))))
	requireBuildKind(t, err, resolve.UndefinedVariable)
}

func TestCompile_DryRunRecursesIntoNestedListeners(t *testing.T) {
	_, err := Compile(ir.NewRoot(
		ir.NewListener("click",
			ir.NewListener("mouseover", ir.P("color", "$nope")),
		),
	))
	requireBuildKind(t, err, resolve.UndefinedVariable)
}

func TestCompile_DryRunCoversCreatedElements(t *testing.T) {
	// The conflict only exists on c, which the click creates
	_, err := Compile(ir.NewRoot(
		ir.NewClass("c", ir.NewListener("focus", ir.NewElement("x"))),
		ir.NewElement("a",
			ir.NewListener("click",
				ir.NewElement("c", ir.NewListener("focus", ir.NewElement("y"))),
			),
		),
	))
	requireBuildKind(t, err, resolve.ConflictingStructure)
}

func TestCompile_DryRunTerminatesOnSelfInstallingListeners(t *testing.T) {
	rt := mustCompile(t,
		ir.NewListener("click",
			ir.P("color", "red"),
			ir.NewListener("click", ir.P("color", "blue")),
		),
	)
	mustDispatch(t, rt, "", "click")
	assert.Equal(t, "red", propOf(t, rt, "", "color"), "installed listener waits for the next click")

	mustDispatch(t, rt, "", "click")
	assert.Equal(t, "blue", propOf(t, rt, "", "color"))
}

func TestCompile_Deterministic(t *testing.T) {
	build := func() *ir.Document {
		return mustCompile(t,
			ir.P("$color", "red"),
			ir.NewClass("a", ir.P("color", "$color"), ir.NewListener("click", ir.P("$color", "green"))),
			ir.NewElement("a", ir.NewElement("b")),
			ir.NewElement("a", ir.P("size", "2")),
		).Document()
	}
	first, second := build(), build()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("compile is not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, ir.MustDocumentHash(first), ir.MustDocumentHash(second))
}

func TestCompile_RuleHash(t *testing.T) {
	a := mustCompile(t, ir.NewElement("a"))
	b := mustCompile(t, ir.NewElement("a"))
	c := mustCompile(t, ir.NewElement("b"))
	assert.Equal(t, a.RuleHash(), b.RuleHash())
	assert.NotEqual(t, a.RuleHash(), c.RuleHash())
	assert.NotNil(t, a.Rules())
}

// .x{ a{ ?click{ color:$v } } }  x{ $v:"1" }  x{}
func TestCompile_DryRunStagesEveryElementOfARule(t *testing.T) {
	_, err := Compile(ir.NewRoot(
		ir.NewClass("x", ir.NewElement("a", ir.NewListener("click", ir.P("color", "$v")))),
		ir.NewElement("x", ir.P("$v", "1")),
		ir.NewElement("x"),
	), WithLogger(quietLogger()))
	be := requireBuildKind(t, err, resolve.UndefinedVariable)
	assert.Equal(t, "root/x[1]/a[0]", be.ElementPath)
}

// ?click{ c{ e{} } }  ?keydown{ .c{ d{} } }
func TestCompile_DryRunExploresEffectOrders(t *testing.T) {
	_, err := Compile(ir.NewRoot(
		ir.NewListener("click", ir.NewElement("c", ir.NewElement("e"))),
		ir.NewListener("keydown", ir.NewClass("c", ir.NewElement("d"))),
	), WithLogger(quietLogger()))
	be := requireBuildKind(t, err, resolve.ConflictingStructure)
	assert.Contains(t, be.Message, "root:keydown, root:click")
}

func TestCompile_DryRunStateLimit(t *testing.T) {
	prev := maxDryRunStates
	maxDryRunStates = 3
	t.Cleanup(func() { maxDryRunStates = prev })

	// Three independent toggles reach eight states
	_, err := Compile(ir.NewRoot(
		ir.NewElement("a", ir.NewListener("click", ir.P("on", "1"))),
		ir.NewElement("a", ir.NewListener("click", ir.P("on", "1"))),
		ir.NewElement("a", ir.NewListener("click", ir.P("on", "1"))),
	), WithLogger(quietLogger()))
	be := requireBuildKind(t, err, resolve.InvalidRule)
	assert.Contains(t, be.Message, "more than 3 distinct states")

	maxDryRunStates = prev
	mustCompile(t,
		ir.NewElement("a", ir.NewListener("click", ir.P("on", "1"))),
		ir.NewElement("a", ir.NewListener("click", ir.P("on", "1"))),
		ir.NewElement("a", ir.NewListener("click", ir.P("on", "1"))),
	)
}

func TestCompile_UnknownEventOutranksEarlierFindings(t *testing.T) {
	_, err := Compile(ir.NewRoot(
		ir.NewClass(""),
		ir.NewElement("a", ir.NewListener("hover")),
	))
	be := requireBuildKind(t, err, resolve.UnknownEventName)
	assert.Equal(t, "root/a[1]/?hover[0]", be.ElementPath)
	assert.Contains(t, be.Message, "and 1 more")
}
