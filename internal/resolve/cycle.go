package resolve

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cui/internal/ir"
)

// dependencyOrder returns ids ordered so that every variable comes after the
// variable it derives from, or a CyclicVariableDependency error.
//
// The algorithm:
//  1. Build the var → dependency graph over ids
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Any SCC with size > 1, or a self-loop, is a cycle
//
// Tarjan emits an SCC only after every SCC it reaches, so the emission order
// is already dependencies first.
func (s *State) dependencyOrder(ids []VarID) ([]VarID, error) {
	graph := make(dependencyGraph, len(ids))
	for _, id := range ids {
		v := s.vars.Get(id)
		if v.Dep != noVar {
			graph[id] = []VarID{v.Dep}
		} else {
			graph[id] = nil
		}
	}

	sccs := tarjanSCC(graph, ids)

	order := make([]VarID, 0, len(ids))
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return nil, s.cycleError(scc, graph)
		}
		order = append(order, scc[0])
	}
	return order, nil
}

// dependencyGraph maps a variable to the variables it reads.
type dependencyGraph map[VarID][]VarID

func hasSelfLoop(node VarID, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so the result is deterministic.
// Successors outside the graph are ignored.
func tarjanSCC(graph dependencyGraph, nodes []VarID) [][]VarID {
	var (
		index   = 0
		stack   []VarID
		indices = make(map[VarID]int)
		lowlink = make(map[VarID]int)
		onStack = make(map[VarID]bool)
		sccs    [][]VarID
	)

	var strongConnect func(VarID)
	strongConnect = func(v VarID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, inGraph := graph[w]; !inGraph {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []VarID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleError reports a cycle starting from its lowest variable ID and
// following dependency edges back around to it.
func (s *State) cycleError(scc []VarID, graph dependencyGraph) *BuildError {
	start := slices.Min(scc)
	members := make(map[VarID]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}

	path := []VarID{start}
	for cur := start; ; {
		next := noVar
		for _, w := range graph[cur] {
			if members[w] {
				next = w
				break
			}
		}
		if next == noVar {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		cur = next
	}

	names := make([]string, len(path))
	locs := make([]ir.Location, 0, len(path))
	for i, id := range path {
		v := s.vars.Get(id)
		names[i] = "$" + v.Name
		if i < len(path)-1 {
			locs = append(locs, v.Loc)
		}
	}
	owner := s.vars.Get(start).Owner
	return NewBuildError(CyclicVariableDependency, s.Path(owner),
		fmt.Sprintf("variable depends on itself: %s", strings.Join(names, " -> ")), locs...)
}
