package render

import (
	"github.com/bctak/delphino/internal/cfg"
	"github.com/bctak/delphino/internal/merge"
)

// FromPerFunctionGraph converts a Stage C result into the Node/Edge
// shape Render expects, marking S and E as sentinels.
func FromPerFunctionGraph(pfg *cfg.PerFunctionGraph) ([]Node, []Edge) {
	var nodes []Node
	var edges []Edge
	for _, id := range pfg.Graph.Nodes() {
		nodes = append(nodes, Node{ID: id, Sentinel: id == cfg.S || id == cfg.E})
	}
	for _, from := range pfg.Graph.Nodes() {
		for _, to := range pfg.Graph.Successors(from) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return nodes, edges
}

// FromMergedGraph converts Stage D's output into the Node/Edge shape.
// No node here is ever a sentinel: MergedGraph never contains S or E.
func FromMergedGraph(mg *merge.MergedGraph) ([]Node, []Edge) {
	var nodes []Node
	var edges []Edge
	for _, id := range mg.Graph.Nodes() {
		nodes = append(nodes, Node{ID: id})
	}
	for _, from := range mg.Graph.Nodes() {
		for _, to := range mg.Graph.Successors(from) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return nodes, edges
}
