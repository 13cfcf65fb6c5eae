package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarjanSCC_DAG(t *testing.T) {
	// 2 -> 1 -> 0
	graph := dependencyGraph{0: nil, 1: {0}, 2: {1}}
	sccs := tarjanSCC(graph, []VarID{2, 1, 0})
	assert.Equal(t, [][]VarID{{0}, {1}, {2}}, sccs, "dependencies are emitted first")
}

func TestTarjanSCC_Cycle(t *testing.T) {
	graph := dependencyGraph{0: {1}, 1: {2}, 2: {0}, 3: {0}}
	sccs := tarjanSCC(graph, []VarID{0, 1, 2, 3})
	assert.Len(t, sccs, 2)
	assert.ElementsMatch(t, []VarID{0, 1, 2}, sccs[0])
	assert.Equal(t, []VarID{3}, sccs[1])
}

func TestTarjanSCC_SelfLoop(t *testing.T) {
	graph := dependencyGraph{0: {0}}
	sccs := tarjanSCC(graph, []VarID{0})
	assert.Equal(t, [][]VarID{{0}}, sccs)
	assert.True(t, hasSelfLoop(0, graph))
}

func TestTarjanSCC_IgnoresOutsideNodes(t *testing.T) {
	// 7 is already settled and not part of the graph
	graph := dependencyGraph{0: {7}}
	sccs := tarjanSCC(graph, []VarID{0})
	assert.Equal(t, [][]VarID{{0}}, sccs)
}
