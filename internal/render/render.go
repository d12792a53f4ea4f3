// Package render implements the GraphRenderer: it takes a list of
// nodes plus a list of edges and emits a directed-graph document. No algorithmic content lives here —
// this package only knows how to draw what Stage C/D already computed.
package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Format selects which document dialect Render emits.
type Format string

const (
	FormatD2      Format = "d2"
	FormatMermaid Format = "mermaid"
)

// Node is one vertex to draw: a plain callee symbol or one of the two
// per-function sentinels.
type Node struct {
	ID       string
	Sentinel bool
}

// Edge is one directed edge to draw.
type Edge struct {
	From, To string
}

// Options configures document generation in one shared struct since
// both dialects here draw the same node/edge shape.
type Options struct {
	Direction string // "right"/"down" for D2, "LR"/"TD" for Mermaid
	MaxNodes  int    // 0 means unbounded
	Title     string
}

// DefaultOptions returns the renderer's defaults.
func DefaultOptions() Options {
	return Options{Direction: "right", MaxNodes: 0}
}

// Render emits a directed-graph document for the given nodes/edges in
// the requested format.
func Render(format Format, nodes []Node, edges []Edge, opts Options) (string, error) {
	nodes, edges = capNodes(nodes, edges, opts.MaxNodes)
	switch format {
	case FormatD2, "":
		return renderD2(nodes, edges, opts), nil
	case FormatMermaid:
		return renderMermaid(nodes, edges, opts), nil
	default:
		return "", fmt.Errorf("render: unknown format %q", format)
	}
}

// capNodes bounds a render to at most maxNodes vertices. It keeps the
// sentinels plus the alphabetically-first callees and silently drops
// edges touching anything past the cut, which favors determinism over
// coverage for very large per-function or merged graphs. maxNodes<=0
// means unbounded.
func capNodes(nodes []Node, edges []Edge, maxNodes int) ([]Node, []Edge) {
	if maxNodes <= 0 || len(nodes) <= maxNodes {
		return nodes, edges
	}
	sorted := sortedNodes(nodes)
	kept := make([]Node, 0, maxNodes)
	keepSet := make(map[string]bool, maxNodes)
	for _, n := range sorted {
		if n.Sentinel {
			kept = append(kept, n)
			keepSet[n.ID] = true
		}
	}
	for _, n := range sorted {
		if len(kept) >= maxNodes {
			break
		}
		if n.Sentinel {
			continue
		}
		kept = append(kept, n)
		keepSet[n.ID] = true
	}
	var keptEdges []Edge
	for _, e := range edges {
		if keepSet[e.From] && keepSet[e.To] {
			keptEdges = append(keptEdges, e)
		}
	}
	return kept, keptEdges
}

func renderD2(nodes []Node, edges []Edge, opts Options) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "right"
	}
	sb.WriteString(fmt.Sprintf("direction: %s\n", direction))
	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf("title: {\n  label: %s\n  near: top-center\n}\n", opts.Title))
	}
	sb.WriteString("\n")

	sorted := sortedNodes(nodes)
	sb.WriteString("# Nodes\n")
	for _, n := range sorted {
		role := "call"
		if n.Sentinel {
			role = "sentinel"
		}
		shape := shapeFor(role)
		id := sanitizeD2ID(n.ID)
		sb.WriteString(fmt.Sprintf("%s: {\n  label: \"%s\"\n  shape: %s\n}\n", id, n.ID, shape.D2Shape))
	}

	sb.WriteString("\n# Edges\n")
	for _, e := range sortedEdges(edges) {
		style := styleFor("calls")
		sb.WriteString(fmt.Sprintf("%s %s %s\n", sanitizeD2ID(e.From), style.D2Style, sanitizeD2ID(e.To)))
	}

	return sb.String()
}

func renderMermaid(nodes []Node, edges []Edge, opts Options) string {
	var sb strings.Builder

	direction := opts.Direction
	switch direction {
	case "down", "TD", "":
		direction = "TD"
	case "right", "LR":
		direction = "LR"
	}
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))
	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf("    subgraph title[\"%s\"]\n    end\n", escapeMermaid(opts.Title)))
	}

	sorted := sortedNodes(nodes)
	for _, n := range sorted {
		role := "call"
		if n.Sentinel {
			role = "sentinel"
		}
		sb.WriteString(fmt.Sprintf("    %s\n", mermaidNode(n.ID, role)))
	}
	for _, e := range sortedEdges(edges) {
		style := styleFor("calls")
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(e.From), style.MermaidStyle, sanitizeMermaidID(e.To)))
	}

	return sb.String()
}

func mermaidNode(id, role string) string {
	shape := shapeFor(role)
	safe := sanitizeMermaidID(id)
	label := escapeMermaid(id)
	switch shape.MermaidShape {
	case "([])":
		return fmt.Sprintf("%s([\"%s\"])", safe, label)
	default:
		return fmt.Sprintf("%s[\"%s\"]", safe, label)
	}
}

func sortedNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func sanitizeD2ID(id string) string {
	for _, r := range id {
		if !isAlnum(r) && r != '_' && r != '-' {
			return "\"" + strings.ReplaceAll(id, "\"", "\\\"") + "\""
		}
	}
	return id
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

var mermaidIDRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeMermaidID(id string) string {
	s := mermaidIDRegex.ReplaceAllString(id, "_")
	if s == "" {
		return "_empty"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
