package resolve

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cui/internal/ir"
)

func mustBuild(t *testing.T, parts ...ir.Part) *State {
	t.Helper()
	s, err := Build(ir.NewRoot(parts...))
	require.NoError(t, err)
	return s
}

func find(t *testing.T, s *State, path string) ir.ElementID {
	t.Helper()
	id, err := s.Snapshot().Find(path)
	require.NoError(t, err)
	return id
}

func prop(t *testing.T, s *State, path, key string) string {
	t.Helper()
	v, ok := s.Snapshot().Property(find(t, s, path), key)
	require.True(t, ok, "%s has no property %q", path, key)
	return v
}

func requireKind(t *testing.T, err error, kind ErrorKind) *BuildError {
	t.Helper()
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, kind, be.Kind, "unexpected error: %v", err)
	return be
}

// .a{color:"red";} + a{} -> color = red
func TestBuild_ClassContribution(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("a", ir.P("color", "red")),
		ir.NewElement("a"),
	)
	assert.Equal(t, "red", prop(t, s, "a", "color"))
	assert.Equal(t, int64(0), s.Epoch())
}

// .a{color:"red";} + a{color:"green";} -> element block wins
func TestBuild_ElementOverridesClass(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("a", ir.P("color", "red")),
		ir.NewElement("a", ir.P("color", "green")),
	)
	assert.Equal(t, "green", prop(t, s, "a", "color"))

	// Declaration order does not matter
	s = mustBuild(t,
		ir.NewElement("a", ir.P("color", "green")),
		ir.NewClass("a", ir.P("color", "red")),
	)
	assert.Equal(t, "green", prop(t, s, "a", "color"))
}

func TestBuild_DeeperScopeWins(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("a", ir.P("color", "red"), ir.P("size", "1")),
		ir.NewElement("x",
			ir.NewClass("a", ir.P("color", "blue")),
			ir.NewElement("a"),
		),
		ir.NewElement("a"),
	)
	assert.Equal(t, "blue", prop(t, s, "x/a", "color"))
	assert.Equal(t, "1", prop(t, s, "x/a", "size"))
	assert.Equal(t, "red", prop(t, s, "a", "color"), "class rule inside x does not reach outside x")
}

func TestBuild_EqualDepthSourceOrder(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("a", ir.P("color", "red")),
		ir.NewClass("a", ir.P("color", "blue")),
		ir.NewElement("a"),
	)
	assert.Equal(t, "blue", prop(t, s, "a", "color"))
}

func TestBuild_ClassMatchesAnyDepthDescendant(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("leaf", ir.P("kind", "leaf")),
		ir.NewElement("x", ir.NewElement("y", ir.NewElement("leaf"))),
	)
	assert.Equal(t, "leaf", prop(t, s, "x/y/leaf", "kind"))

	// The declaring element itself is not matched
	s = mustBuild(t, ir.NewElement("a", ir.NewClass("a", ir.P("self", "yes"))))
	_, ok := s.Snapshot().Property(find(t, s, "a"), "self")
	assert.False(t, ok)
}

func TestBuild_NestedClassRules(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("list",
			ir.NewClass("item", ir.P("role", "listitem")),
		),
		ir.NewElement("list", ir.NewElement("item")),
		ir.NewElement("item"),
	)
	assert.Equal(t, "listitem", prop(t, s, "list/item", "role"))
	_, ok := s.Snapshot().Property(find(t, s, "item"), "role")
	assert.False(t, ok, ".item is only declared inside elements matched by .list")
}

// .a{ b{} b{} } -> two b children from one rule path
func TestBuild_ClassStructure(t *testing.T) {
	s := mustBuild(t,
		ir.NewElement("x",
			ir.NewClass("a", ir.NewElement("b"), ir.NewElement("b")),
			ir.NewElement("a"),
		),
		ir.NewElement("a", ir.NewElement("c")),
	)
	doc := s.Snapshot()

	scoped, _ := doc.Element(find(t, s, "x/a"))
	require.Len(t, scoped.Structure, 2)
	for _, c := range scoped.Structure {
		assert.Equal(t, "b", doc.Elements[c].Class)
	}

	other, _ := doc.Element(find(t, s, "a"))
	require.Len(t, other.Structure, 1)
	assert.Equal(t, "c", doc.Elements[other.Structure[0]].Class)
}

func TestBuild_ConflictingStructure(t *testing.T) {
	_, err := Build(ir.NewRoot(
		ir.NewClass("a", ir.NewElement("b")),
		ir.NewElement("a", ir.NewElement("c")),
	))
	be := requireKind(t, err, ConflictingStructure)
	assert.Equal(t, ErrConflictingStructure, be.Code)
	assert.Equal(t, "root/a[0]", be.ElementPath)
	require.Len(t, be.RuleLocations, 2)
	assert.Equal(t, "root/.a[0]", be.RuleLocations[0].Path)
	assert.Equal(t, "root/a[1]", be.RuleLocations[1].Path)
}

func TestBuild_ConflictBetweenClassRules(t *testing.T) {
	_, err := Build(ir.NewRoot(
		ir.NewClass("a", ir.NewElement("b")),
		ir.NewClass("a", ir.NewElement("c")),
		ir.NewElement("a"),
	))
	requireKind(t, err, ConflictingStructure)
}

func TestBuild_ListenerStructureIsNotBaseStructure(t *testing.T) {
	s := mustBuild(t,
		ir.NewElement("a",
			ir.NewElement("b"),
			ir.NewListener("click", ir.NewElement("c")),
		),
	)
	doc := s.Snapshot()
	a, _ := doc.Element(find(t, s, "a"))
	require.Len(t, a.Structure, 1)
	assert.Equal(t, "b", doc.Elements[a.Structure[0]].Class)
}

func TestBuild_RecursiveStructure(t *testing.T) {
	_, err := Build(ir.NewRoot(
		ir.NewClass("a", ir.NewElement("a")),
		ir.NewElement("a"),
	))
	be := requireKind(t, err, InvalidRule)
	assert.Contains(t, be.Message, "nesting")
}

func TestBuild_RootMustBeElement(t *testing.T) {
	_, err := Build(ir.NewClass("a"))
	requireKind(t, err, InvalidRule)

	_, err = Build(nil)
	requireKind(t, err, InvalidRule)
}

func TestBuild_ListenerBindings(t *testing.T) {
	s := mustBuild(t,
		ir.NewClass("a", ir.NewListener("click", ir.P("color", "red"))),
		ir.NewElement("a", ir.NewListener("click", ir.P("size", "2"))),
		ir.NewListener("load"),
	)
	doc := s.Snapshot()
	a := find(t, s, "a")

	prog, ok := doc.Binding(a, "click")
	require.True(t, ok)
	require.Len(t, prog.Rules, 2)
	assert.Equal(t, "root/.a[0]/?click[0]", prog.Rules[0].Path, "class listener comes first in cascade order")
	assert.Equal(t, "root/a[1]/?click[0]", prog.Rules[1].Path)
	assert.Equal(t, ir.PhaseIdle, prog.Phase)

	_, ok = doc.Binding(doc.Root, "load")
	assert.True(t, ok)
	assert.Equal(t, []ir.ListenerKey{{Element: 0, Event: "load"}, {Element: a, Event: "click"}}, s.ListenerKeys())
}

func TestBuild_Deterministic(t *testing.T) {
	tree := func() *ir.RuleNode {
		return ir.NewRoot(
			ir.P("$color", "red"),
			ir.NewClass("a", ir.P("color", "$color"), ir.NewElement("b"), ir.NewElement("b")),
			ir.NewElement("a", ir.P("size", "1")),
			ir.NewElement("a", ir.NewListener("click", ir.P("$color", "green"))),
		)
	}
	s1, err := Build(tree())
	require.NoError(t, err)
	s2, err := Build(tree())
	require.NoError(t, err)

	d1, d2 := s1.Snapshot(), s2.Snapshot()
	if diff := cmp.Diff(d1, d2); diff != "" {
		t.Fatalf("documents differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, ir.MustDocumentHash(d1), ir.MustDocumentHash(d2))
}

func TestBuild_PathsAndIDs(t *testing.T) {
	s := mustBuild(t,
		ir.NewElement("a", ir.NewElement("b")),
		ir.NewElement("a"),
	)
	assert.Equal(t, "root", s.Path(0))
	assert.Equal(t, "root/a[0]", s.Path(1))
	assert.Equal(t, "root/a[0]/b[0]", s.Path(2))
	assert.Equal(t, "root/a[1]", s.Path(3))
	assert.Equal(t, "", s.Path(ir.NoElement))
	assert.Equal(t, 4, s.Len())
	require.NoError(t, s.ValidateStructure())
}
