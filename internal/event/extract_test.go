package event

import (
	"strings"
	"testing"

	"github.com/bctak/delphino/internal/cgerr"
	"github.com/bctak/delphino/internal/scan"
	"github.com/bctak/delphino/internal/symbol"
)

// L renders one AST-dump line at the given nesting depth: a backtick
// marks the last child at that depth, a pipe marks any earlier
// sibling — only the former ever triggers a close-check, matching the
// convention Stage A's dumps use (only the last child of a node closes
// it out).
func L(depth int, last bool, content string) string {
	tc := "|"
	if last {
		tc = "`"
	}
	return strings.Repeat(" ", depth*2) + tc + "-" + content + "\n"
}

// callExpr renders a CallExpr/DeclRefExpr pair at depth (the call) and
// depth+1 (its callee reference), the two-line shape a resolved direct
// call takes in the dump.
func callExpr(depth int, last bool, fn string) string {
	return L(depth, last, "CallExpr 0x10 <f.c:2:3>") +
		L(depth+1, true, "DeclRefExpr 0x11 <f.c:2:3> Function 0x12 '"+fn+"' 'void ()'")
}

// dump wraps body in a single function foo's FunctionDecl/CompoundStmt
// header, the fixed prefix every test shares.
func dump(body string) string {
	return L(0, true, "FunctionDecl 0x1 <f.c:1:1> foo 'void ()'") +
		L(1, true, "CompoundStmt 0x2 <f.c:1:10>") +
		body
}

func newExtractor() (*Extractor, *symbol.Classifier) {
	c := symbol.NewClassifier(symbol.NewStaticTable("a", "b", "c", "printf", "worker"))
	return NewExtractor(c), c
}

func targets(evs []Event) []string {
	var out []string
	for _, e := range evs {
		if e.Tag == TagCall {
			out = append(out, e.Target)
		}
	}
	return out
}

func kinds(evs []Event, tag Tag) []ControlKind {
	var out []ControlKind
	for _, e := range evs {
		if e.Tag == tag {
			out = append(out, e.Kind)
		}
	}
	return out
}

func extractOne(t *testing.T, raw string) FunctionEvents {
	t.Helper()
	e, _ := newExtractor()
	s := scan.New(raw, "f.c")
	fns, err := e.Extract(s)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(fns) != 1 {
		t.Fatalf("got %d functions, want 1", len(fns))
	}
	return fns[0]
}

func TestSequentialCalls(t *testing.T) {
	raw := dump(
		callExpr(2, false, "a") +
			callExpr(2, false, "b") +
			callExpr(2, true, "c"),
	)
	got := targets(extractOne(t, raw).Events)
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("targets = %v, want %v", got, want)
	}
}

// TestIfElse covers a plain if/else, both branches wrapped in their
// own CompoundStmt so each call is nested one column past its
// enclosing branch's own depth.
func TestIfElse(t *testing.T) {
	raw := dump(
		L(2, false, "IfStmt 0x20 <f.c:2:3> has_else") +
			L(3, false, "BinaryOperator 0x21 <f.c:2:7>") +
			L(3, false, "CompoundStmt 0x22 <f.c:3:3>") + // then
			callExpr(4, true, "a") +
			L(3, true, "CompoundStmt 0x23 <f.c:5:3>") + // else
			callExpr(4, true, "b") +
			callExpr(2, true, "c"),
	)
	fn := extractOne(t, raw)
	starts := kinds(fn.Events, TagStart)
	ends := kinds(fn.Events, TagEnd)
	var sawIf, sawElse bool
	for _, k := range starts {
		if k == KindIf {
			sawIf = true
		}
		if k == KindElse {
			sawElse = true
		}
	}
	if !sawIf || !sawElse {
		t.Fatalf("starts = %v, want both If and Else", starts)
	}
	if len(starts) != len(ends) {
		t.Errorf("unbalanced Start/End: %d starts, %d ends", len(starts), len(ends))
	}
	got := targets(fn.Events)
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("targets = %v, want [a b c]", got)
	}
}

// TestIfElseIfElse covers a three-way chain (if / else if / else),
// checking that the else-if continuation reuses the chain's level and
// that the trailing else — left open at the end of the function, with
// no further sibling to close it — still gets an End via closeAll.
func TestIfElseIfElse(t *testing.T) {
	raw := dump(
		L(2, true, "IfStmt 0x20 <f.c:2:3> has_else") +
			L(3, false, "BinaryOperator 0x21 <f.c:2:7>") +
			L(3, false, "CompoundStmt 0x22 <f.c:3:3>") + // then = a()
			callExpr(4, true, "a") +
			L(3, true, "IfStmt 0x23 <f.c:4:3> has_else") + // else if
			L(4, false, "BinaryOperator 0x24 <f.c:4:7>") +
			L(4, false, "CompoundStmt 0x25 <f.c:5:3>") + // then = b()
			callExpr(5, true, "b") +
			L(4, true, "CompoundStmt 0x26 <f.c:7:3>") + // else = c()
			callExpr(5, true, "c"),
	)
	fn := extractOne(t, raw)
	starts := kinds(fn.Events, TagStart)
	ends := kinds(fn.Events, TagEnd)
	if len(starts) != len(ends) {
		t.Fatalf("unbalanced Start/End: starts=%v ends=%v", starts, ends)
	}
	var sawIf, sawElseIf, sawElse bool
	for _, k := range starts {
		switch k {
		case KindIf:
			sawIf = true
		case KindElseIf:
			sawElseIf = true
		case KindElse:
			sawElse = true
		}
	}
	if !sawIf || !sawElseIf || !sawElse {
		t.Fatalf("starts = %v, want If, ElseIf and Else all present", starts)
	}
	got := targets(fn.Events)
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("targets = %v, want [a b c]", got)
	}
}

func TestWhileLoopEmitsPlaceholder(t *testing.T) {
	raw := dump(
		L(2, true, "WhileStmt 0x30 <f.c:2:3>") +
			L(3, false, "BinaryOperator 0x31 <f.c:2:10>") +
			L(3, true, "CompoundStmt 0x32 <f.c:3:3>") +
			callExpr(4, true, "a"),
	)
	fn := extractOne(t, raw)
	got := targets(fn.Events)
	if len(got) != 2 {
		t.Fatalf("targets = %v, want 2 entries (placeholder + a)", got)
	}
	if !strings.HasPrefix(got[0], "__iteration_placeholder_") {
		t.Errorf("first call = %q, want iteration placeholder", got[0])
	}
	if got[1] != "a" {
		t.Errorf("second call = %q, want a", got[1])
	}
	ends := kinds(fn.Events, TagEnd)
	var sawWhile bool
	for _, k := range ends {
		if k == KindWhile {
			sawWhile = true
		}
	}
	if !sawWhile {
		t.Errorf("ends = %v, want a KindWhile close even though the loop is the function's last statement", ends)
	}
}

func TestForLoopEmitsPlaceholder(t *testing.T) {
	raw := dump(
		L(2, true, "ForStmt 0x80 <f.c:2:3>") +
			L(3, false, "DeclStmt 0x81 <f.c:2:8>") +
			L(3, false, "BinaryOperator 0x82 <f.c:2:15>") +
			L(3, false, "UnaryOperator 0x83 <f.c:2:22>") +
			L(3, true, "CompoundStmt 0x84 <f.c:3:3>") +
			callExpr(4, true, "a"),
	)
	fn := extractOne(t, raw)
	got := targets(fn.Events)
	if len(got) != 2 || !strings.HasPrefix(got[0], "__iteration_placeholder_") || got[1] != "a" {
		t.Fatalf("targets = %v, want [placeholder a]", got)
	}
	starts := kinds(fn.Events, TagStart)
	var n int
	for _, k := range starts {
		if k == KindForCondition1 || k == KindForCondition2 || k == KindFor {
			n++
		}
	}
	if n != 3 {
		t.Errorf("starts = %v, want ForCondition1, ForCondition2 and For all present", starts)
	}
}

func TestDoWhileLoop(t *testing.T) {
	raw := dump(
		L(2, true, "DoStmt 0x90 <f.c:2:3>") +
			L(3, false, "CompoundStmt 0x91 <f.c:3:3>") +
			callExpr(4, true, "a") +
			L(3, true, "BinaryOperator 0x92 <f.c:5:10>"),
	)
	fn := extractOne(t, raw)
	got := targets(fn.Events)
	if len(got) != 2 || !strings.HasPrefix(got[0], "__iteration_placeholder_") || got[1] != "a" {
		t.Fatalf("targets = %v, want [placeholder a]", got)
	}
	ends := kinds(fn.Events, TagEnd)
	var sawCond bool
	for _, k := range ends {
		if k == KindDoWhileCondition {
			sawCond = true
		}
	}
	if !sawCond {
		t.Errorf("ends = %v, want KindDoWhileCondition", ends)
	}
}

func TestReturnEmitsEndReturn(t *testing.T) {
	raw := dump(
		L(2, false, "ReturnStmt 0x40 <f.c:2:3>") +
			callExpr(2, true, "a"),
	)
	fn := extractOne(t, raw)
	ends := kinds(fn.Events, TagEnd)
	if len(ends) == 0 || ends[0] != KindReturn {
		t.Errorf("ends = %v, want first entry KindReturn", ends)
	}
}

func TestGotoIsUnsupported(t *testing.T) {
	raw := dump(L(2, true, "GotoStmt 0x50 <f.c:2:3>"))
	e, _ := newExtractor()
	s := scan.New(raw, "f.c")
	_, err := e.Extract(s)
	if err == nil {
		t.Fatal("expected an error for goto")
	}
}

func TestPthreadCreateReordersSpawnedFunction(t *testing.T) {
	raw := dump(
		L(2, true, "CallExpr 0x60 <f.c:2:3>") +
			L(3, false, "DeclRefExpr 0x61 <f.c:2:3> Function 0x62 'pthread_create' 'int ()'") +
			L(3, true, "DeclRefExpr 0x63 <f.c:2:20> Function 0x64 'worker' 'void *()'"),
	)
	got := targets(extractOne(t, raw).Events)
	want := []string{"worker", "pthread_create"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("targets = %v, want %v (spawned function reordered first)", got, want)
	}
}

func TestMaxNestingExceeded(t *testing.T) {
	var body strings.Builder
	indent := "    "
	for i := 0; i < MaxNesting+5; i++ {
		body.WriteString(indent + "|-IfStmt 0x70 <f.c:2:3>\n")
		body.WriteString(indent + "| |-BinaryOperator 0x71 <f.c:2:7>\n")
		body.WriteString(indent + "| `-CompoundStmt 0x72 <f.c:3:3>\n")
		indent += "  "
	}
	raw := dump(body.String())
	e, _ := newExtractor()
	s := scan.New(raw, "f.c")
	_, err := e.Extract(s)
	pse, ok := err.(*cgerr.ParseStructureError)
	if !ok {
		t.Fatalf("expected a ParseStructureError for exceeding MAX_NESTING, got %v", err)
	}
	if pse.Line == 0 {
		t.Error("error should cite the offending line index")
	}
	if len(pse.Context) == 0 {
		t.Error("error should carry a context window of dump text")
	}
}

// A break inside a loop body must carry the index of its own dump line
// so a later structural diagnostic can cite it.
func TestBreakCarriesLineIndex(t *testing.T) {
	raw := dump(
		L(2, true, "WhileStmt 0x30 <f.c:2:3>") +
			L(3, false, "BinaryOperator 0x31 <f.c:2:10>") +
			L(3, true, "CompoundStmt 0x32 <f.c:3:3>") +
			L(4, true, "BreakStmt 0x33 <f.c:4:5>"),
	)
	fn := extractOne(t, raw)
	var brk *Event
	for i := range fn.Events {
		if fn.Events[i].Tag == TagEnd && fn.Events[i].Kind == KindBreak {
			brk = &fn.Events[i]
		}
	}
	if brk == nil {
		t.Fatal("no End(KindBreak) event emitted")
	}
	if brk.Context.LineIndex == 0 {
		t.Error("break event's Context.LineIndex not set")
	}
}
