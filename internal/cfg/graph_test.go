package cfg

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func edgeList(g *Graph) []string {
	var out []string
	for from, row := range g.Edges {
		for to := range row {
			out = append(out, from+"->"+to)
		}
	}
	sort.Strings(out)
	return out
}

func TestRewritePlaceholder(t *testing.T) {
	g := NewGraph()
	g.AddEdge("S", "ph")
	g.AddEdge("ph", "q")
	g.AddEdge("q", "ph")

	g.RewritePlaceholder("ph")

	got := edgeList(g)
	want := []string{"S->q", "q->q"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges after RewritePlaceholder mismatch (-want +got):\n%s", diff)
	}
	if g.HasNode("ph") {
		t.Error("placeholder node still present after rewrite")
	}
}

func TestReachableAndReachesTo(t *testing.T) {
	g := NewGraph()
	g.AddEdge("S", "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "E")

	reach := g.Reachable("S")
	for _, n := range []string{"a", "b", "E"} {
		if !reach[n] {
			t.Errorf("Reachable(S) missing %q", n)
		}
	}
	if reach["S"] {
		t.Error("Reachable(S) should exclude the start node itself")
	}

	back := g.ReachesTo("E")
	for _, n := range []string{"S", "a", "b"} {
		if !back[n] {
			t.Errorf("ReachesTo(E) missing %q", n)
		}
	}
	if back["E"] {
		t.Error("ReachesTo(E) should exclude the target node itself")
	}
}
