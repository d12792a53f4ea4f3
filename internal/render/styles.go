package render

// nodeShape defines diagram shapes for the graph's three node roles:
// the sentinels get their own shape so a per-function graph visually
// marks its entry/exit, while ordinary callee symbols (user or
// external) render as plain rectangles.
type nodeShape struct {
	D2Shape      string
	MermaidShape string
}

var nodeShapes = map[string]nodeShape{
	"sentinel": {D2Shape: "oval", MermaidShape: "([])"},
	"call":     {D2Shape: "rectangle", MermaidShape: "[]"},
	"default":  {D2Shape: "rectangle", MermaidShape: "[]"},
}

// edgeStyle holds one style per edge kind. This graph has exactly one
// edge kind ("calls"), so the map exists only to keep a generalization
// seam open, should a future edge kind (e.g. an optional/MayAbstain
// edge) need its own style.
type edgeStyle struct {
	D2Style      string
	MermaidStyle string
}

var edgeStyles = map[string]edgeStyle{
	"calls":   {D2Style: "->", MermaidStyle: "-->"},
	"default": {D2Style: "->", MermaidStyle: "-->"},
}

func shapeFor(role string) nodeShape {
	if s, ok := nodeShapes[role]; ok {
		return s
	}
	return nodeShapes["default"]
}

func styleFor(kind string) edgeStyle {
	if s, ok := edgeStyles[kind]; ok {
		return s
	}
	return edgeStyles["default"]
}
