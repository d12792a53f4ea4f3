package render

import (
	"strings"
	"testing"
)

func TestRenderD2ContainsNodesAndEdges(t *testing.T) {
	nodes := []Node{{ID: "S", Sentinel: true}, {ID: "a"}, {ID: "E", Sentinel: true}}
	edges := []Edge{{From: "S", To: "a"}, {From: "a", To: "E"}}

	out, err := Render(FormatD2, nodes, edges, DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := "a: {"; !strings.Contains(out, want) {
		t.Errorf("output missing node declaration %q:\n%s", want, out)
	}
	if want := "S -> a"; !strings.Contains(out, want) {
		t.Errorf("output missing edge %q:\n%s", want, out)
	}
}

func TestRenderMermaidSanitizesIDs(t *testing.T) {
	nodes := []Node{{ID: "weird.name"}}
	out, err := Render(FormatMermaid, nodes, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "weird_name") {
		t.Errorf("expected sanitized id in output:\n%s", out)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render("bogus", nil, nil, DefaultOptions()); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRenderMaxNodesCapsOutput(t *testing.T) {
	nodes := []Node{
		{ID: "S", Sentinel: true}, {ID: "E", Sentinel: true},
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}
	edges := []Edge{{From: "S", To: "a"}, {From: "a", To: "b"}, {From: "b", To: "c"}, {From: "c", To: "E"}}

	opts := DefaultOptions()
	opts.MaxNodes = 3
	out, err := Render(FormatD2, nodes, edges, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "c: {") {
		t.Errorf("expected node c to be dropped beyond MaxNodes=3:\n%s", out)
	}
	if !strings.Contains(out, "S: {") || !strings.Contains(out, "a: {") {
		t.Errorf("expected sentinels and the first callee to survive:\n%s", out)
	}
}

func TestRenderMaxNodesZeroIsUnbounded(t *testing.T) {
	nodes := []Node{{ID: "S", Sentinel: true}, {ID: "a"}, {ID: "b"}, {ID: "E", Sentinel: true}}
	out, err := Render(FormatD2, nodes, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"S: {", "a: {", "b: {", "E: {"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected unbounded render to keep %q:\n%s", want, out)
		}
	}
}
