// Package cfg implements Stage C, the PerFunctionGraphBuilder, that
// turns one user function's event list into a directed adjacency
// matrix over its callees plus the synthetic S/E sentinels, and the
// CallEliminationOracle that identifies user functions whose transitive
// call set never touches an external symbol.
package cfg

import "sort"

// Sentinel node names for the synthetic entry/exit of a PerFunctionGraph.
const (
	S = "S"
	E = "E"
)

// Graph is a directed adjacency-set graph with both forward and
// reverse edge maps. The builder adds the same edge repeatedly across
// branch joins and abstain-subset reruns, so de-duplication has to be
// structural, not a documented caller obligation.
type Graph struct {
	Edges        map[string]map[string]bool
	ReverseEdges map[string]map[string]bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Edges:        make(map[string]map[string]bool),
		ReverseEdges: make(map[string]map[string]bool),
	}
}

// AddNode registers node with no edges, if not already present.
func (g *Graph) AddNode(node string) {
	if _, ok := g.Edges[node]; !ok {
		g.Edges[node] = make(map[string]bool)
	}
	if _, ok := g.ReverseEdges[node]; !ok {
		g.ReverseEdges[node] = make(map[string]bool)
	}
}

// AddEdge adds a from->to edge, creating both endpoints if needed.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.Edges[from][to] = true
	g.ReverseEdges[to][from] = true
}

// AddEdges connects every node in froms to every node in tos.
func (g *Graph) AddEdges(froms, tos []string) {
	for _, f := range froms {
		for _, t := range tos {
			g.AddEdge(f, t)
		}
	}
}

// HasNode reports whether node was ever registered.
func (g *Graph) HasNode(node string) bool {
	_, ok := g.Edges[node]
	return ok
}

// RemoveNode deletes node and every edge touching it.
func (g *Graph) RemoveNode(node string) {
	for succ := range g.Edges[node] {
		delete(g.ReverseEdges[succ], node)
	}
	for pred := range g.ReverseEdges[node] {
		delete(g.Edges[pred], node)
	}
	delete(g.Edges, node)
	delete(g.ReverseEdges, node)
}

// Successors returns node's out-neighbors, sorted for determinism.
func (g *Graph) Successors(node string) []string {
	return sortedKeys(g.Edges[node])
}

// Predecessors returns node's in-neighbors, sorted for determinism.
func (g *Graph) Predecessors(node string) []string {
	return sortedKeys(g.ReverseEdges[node])
}

// Nodes returns every registered node, sorted.
func (g *Graph) Nodes() []string {
	return sortedKeys(g.Edges)
}

// RewritePlaceholder removes a placeholder node, connecting every
// predecessor directly to every successor (other than the placeholder
// itself): for every edge x→placeholder and every edge placeholder→y
// with y≠placeholder, it adds x→y, then deletes all edges incident to
// the placeholder and drops the placeholder node.
func (g *Graph) RewritePlaceholder(placeholder string) {
	preds := g.Predecessors(placeholder)
	succs := g.Successors(placeholder)
	for _, y := range succs {
		if y == placeholder {
			continue
		}
		for _, x := range preds {
			g.AddEdge(x, y)
		}
	}
	g.RemoveNode(placeholder)
}

// Reachable returns every node reachable from start, following forward
// edges, excluding start itself.
func (g *Graph) Reachable(start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for succ := range g.Edges[n] {
			if !seen[succ] {
				seen[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	delete(seen, start)
	return seen
}

// ReachesTo returns every node that can reach target, following reverse
// edges, excluding target itself.
func (g *Graph) ReachesTo(target string) map[string]bool {
	seen := map[string]bool{target: true}
	queue := []string{target}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for pred := range g.ReverseEdges[n] {
			if !seen[pred] {
				seen[pred] = true
				queue = append(queue, pred)
			}
		}
	}
	delete(seen, target)
	return seen
}

// Matrix renders g as a dense 0/1 adjacency matrix over labels, in the
// order given, for callers that want a literal matrix shape instead of
// the adjacency-set form.
func (g *Graph) Matrix(labels []string) [][]int {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	m := make([][]int, len(labels))
	for i := range m {
		m[i] = make([]int, len(labels))
	}
	for from, row := range g.Edges {
		fi, ok := idx[from]
		if !ok {
			continue
		}
		for to := range row {
			if ti, ok := idx[to]; ok {
				m[fi][ti] = 1
			}
		}
	}
	return m
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// toSet converts a slice to a set, ignoring duplicates.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

// setSlice returns a sorted slice view of a set.
func setSlice(s map[string]bool) []string {
	return sortedKeys(s)
}

// union returns the union of two sets, never mutating either argument.
func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// copySet returns a shallow copy of s.
func copySet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}
