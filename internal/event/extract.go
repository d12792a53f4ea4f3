package event

import (
	"fmt"
	"strings"

	"github.com/bctak/delphino/internal/cgerr"
	"github.com/bctak/delphino/internal/scan"
	"github.com/bctak/delphino/internal/symbol"
)

// MaxNesting is the default bound on simultaneously open control-flow
// regions within one function. Exceeding it yields a
// ParseStructureError rather than silently truncating the graph.
const MaxNesting = 100

// frame is one open control-flow region on the extractor's region
// stack. Closing is column-driven: condCol is the alpha_col of the
// line immediately following the region's marker line (its first
// child in the AST dump), and the region is considered to have
// returned control to its parent once a line's tick_col+2 regresses
// to condCol or shallower — the same "back to the marker's own
// sibling depth" signal a depth-tracking AST walk would compute via an
// ongoing-depth stack, expressed here against the condition node's
// column instead of the marker's own column since the two are a fixed
// two-column offset apart in the dump convention Stage A emits.
type frame struct {
	kind     ControlKind
	level    int
	epoch    int
	condCol  int
	children int // children of this region observed so far
	want     int // children expected before the region truly closes
	hasElse  bool
}

// pendingElse records that an if/else-if frame just closed its
// then-branch and has an else slot still to be resolved. It lives on
// funcState rather than on the frame stack: the frame that triggered
// it is popped immediately (it has no further role), and the next
// line decides whether the else slot is an "else if" continuation or
// a plain "else".
type pendingElse struct {
	level, epoch int
}

// funcState tracks one function's in-progress extraction.
type funcState struct {
	name        string
	maxNesting  int
	events      []Event
	stack       []frame
	pendingTgt  []string // DeclRefExpr targets queued for the innermost open CallExpr
	pendingElse *pendingElse

	// ifLevel/ifEpoch count if-regions opened so far in this function;
	// they are a monotonic bookkeeping counter, not a live nesting
	// depth (a chain's else-if/else continuations reuse the opening
	// branch's level/epoch rather than allocating new ones).
	ifLevel, ifEpoch         int
	switchLevel, switchEpoch int
	loopLevel, loopEpoch     int
	doLevel, doEpoch         int
	caseIx                   int
	placeholderSeq           int
}

// placeholder synthesizes the unique iteration-placeholder symbol
// name emitted as a synthetic Call immediately after a loop body
// opens: Stage C uses it as the back-edge anchor and rewrites or
// removes every edge touching it once the loop's true back edge is
// known.
func (fs *funcState) placeholder() string {
	fs.placeholderSeq++
	return fmt.Sprintf("__iteration_placeholder_%d", fs.placeholderSeq)
}

func (fs *funcState) ctx(lineIdx int) Context {
	ctx := Context{
		Depth:       len(fs.stack),
		LineIndex:   lineIdx,
		IfLevel:     fs.ifLevel,
		IfEpoch:     fs.ifEpoch,
		SwitchLevel: fs.switchLevel,
		SwitchEpoch: fs.switchEpoch,
		LoopLevel:   fs.loopLevel,
		LoopEpoch:   fs.loopEpoch,
		DoLevel:     fs.doLevel,
		DoEpoch:     fs.doEpoch,
		CaseIx:      fs.caseIx,
	}
	for _, f := range fs.stack {
		switch f.kind {
		case KindIf, KindElseIf, KindElse, KindConditional:
			ctx.IfBranchIx++
		}
	}
	return ctx
}

func (fs *funcState) emit(e Event) { fs.events = append(fs.events, e) }

func (fs *funcState) push(f frame) error {
	if len(fs.stack) >= fs.maxNesting {
		return &cgerr.ParseStructureError{
			Message: "control-flow nesting exceeds MAX_NESTING in function " + fs.name,
		}
	}
	fs.stack = append(fs.stack, f)
	return nil
}

func (fs *funcState) top() *frame {
	if len(fs.stack) == 0 {
		return nil
	}
	return &fs.stack[len(fs.stack)-1]
}

func (fs *funcState) pop() frame {
	f := fs.stack[len(fs.stack)-1]
	fs.stack = fs.stack[:len(fs.stack)-1]
	return f
}

// closeAll emits an End for every frame still open when the function's
// line sequence runs out (its last statement is itself a control-flow
// region with no following sibling to trigger the usual column-
// regression close), innermost first.
func (fs *funcState) closeAll() {
	for len(fs.stack) > 0 {
		f := fs.pop()
		fs.emit(End(f.kind, f.level, f.epoch))
	}
}

// Extractor is Stage B: it walks the scanner's measured line sequence
// and produces one FunctionEvents per user function defined in the
// translation unit.
type Extractor struct {
	classifier *symbol.Classifier
	maxNesting int
}

// NewExtractor returns an Extractor bounded by the default MaxNesting.
// Use NewExtractorWithLimit to override it from config.
func NewExtractor(classifier *symbol.Classifier) *Extractor {
	return &Extractor{classifier: classifier, maxNesting: MaxNesting}
}

// NewExtractorWithLimit returns an Extractor whose nesting bound comes
// from config (internal/config's Limits.MaxNesting) rather than the
// package default; limit<=0 falls back to MaxNesting.
func NewExtractorWithLimit(classifier *symbol.Classifier, limit int) *Extractor {
	if limit <= 0 {
		limit = MaxNesting
	}
	return &Extractor{classifier: classifier, maxNesting: limit}
}

// Extract consumes s to completion and returns the per-function event
// lists, in the order functions are defined.
func (e *Extractor) Extract(s *scan.Scanner) ([]FunctionEvents, error) {
	var out []FunctionEvents
	var cur *funcState

	flush := func() {
		if cur != nil {
			cur.closeAll()
			if len(cur.events) > 0 {
				out = append(out, FunctionEvents{Name: cur.name, Events: cur.events})
			}
		}
		cur = nil
	}

	for {
		line, ok := s.Next()
		if !ok {
			break
		}
		text := line.Text

		switch {
		case strings.Contains(text, "FunctionDecl"):
			name := extractDeclName(text)
			next, hasNext := s.Peek(0)
			if hasNext && strings.Contains(next.Text, "CompoundStmt") {
				flush()
				e.classifier.MarkDefined(name)
				cur = &funcState{name: name, maxNesting: e.maxNesting}
			}
			continue
		}

		if cur == nil {
			continue
		}

		// Close any regions whose body has returned to the parent depth.
		// Repeated because closing one region can immediately also close
		// its enclosing ones.
		for {
			top := cur.top()
			if top == nil || line.TickCol == scan.NoCol || line.TickCol+2 > top.condCol {
				break
			}
			if !closeOrAdvance(cur, top) {
				break
			}
		}

		// An if/else-if frame just closed its then-branch and left an
		// else slot open (cur.pendingElse). If this line doesn't open a
		// further "else if", it IS the else branch's own first line:
		// open the Else frame now and let the switch below still handle
		// whatever marker this same line carries.
		if cur.pendingElse != nil && !strings.Contains(text, "IfStmt") {
			pe := cur.pendingElse
			cur.pendingElse = nil
			f := frame{kind: KindElse, level: pe.level, epoch: pe.epoch, condCol: line.AlphaCol, want: 1}
			if err := cur.push(f); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindElse, pe.level, pe.epoch))
		}

		switch {
		case strings.Contains(text, "GotoStmt"):
			return nil, &cgerr.UnsupportedConstructError{Construct: "goto", Line: line.Index}

		case strings.Contains(text, "BreakStmt"):
			cur.emit(EndAt(KindBreak, cur.loopLevel, cur.loopEpoch, cur.ctx(line.Index)))

		case strings.Contains(text, "ContinueStmt"):
			cur.emit(EndAt(KindContinue, cur.loopLevel, cur.loopEpoch, cur.ctx(line.Index)))

		case strings.Contains(text, "ReturnStmt"):
			cur.emit(EndAt(KindReturn, 0, 0, cur.ctx(line.Index)))

		case strings.Contains(text, "IfStmt"):
			if err := openIf(cur, s, line); err != nil {
				return nil, withContext(err, s, line.Index)
			}

		case strings.Contains(text, "ConditionalOperator"):
			cur.ifLevel++
			cur.ifEpoch++
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindConditional, level: cur.ifLevel, epoch: cur.ifEpoch, condCol: condCol, want: 2}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindConditional, cur.ifLevel, cur.ifEpoch))

		case strings.Contains(text, "SwitchStmt"):
			cur.switchLevel++
			cur.switchEpoch++
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindSwitch, level: cur.switchLevel, epoch: cur.switchEpoch, condCol: condCol, want: 1 << 30}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindSwitch, cur.switchLevel, cur.switchEpoch))

		case strings.Contains(text, "CaseStmt"):
			cur.caseIx++
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindCase, level: cur.switchLevel, epoch: cur.switchEpoch, condCol: condCol, want: 1}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindCase, cur.switchLevel, cur.switchEpoch))

		case strings.Contains(text, "DefaultStmt"):
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindDefault, level: cur.switchLevel, epoch: cur.switchEpoch, condCol: condCol, want: 1}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindDefault, cur.switchLevel, cur.switchEpoch))

		case strings.Contains(text, "WhileStmt"):
			cur.loopLevel++
			cur.loopEpoch++
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindWhileCondition, level: cur.loopLevel, epoch: cur.loopEpoch, condCol: condCol, want: 1}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindWhileCondition, cur.loopLevel, cur.loopEpoch))

		case strings.Contains(text, "DoStmt"):
			cur.doLevel++
			cur.doEpoch++
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindDoWhile, level: cur.doLevel, epoch: cur.doEpoch, condCol: condCol, want: 1}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindDoWhile, cur.doLevel, cur.doEpoch))
			cur.emit(Call(cur.placeholder(), cur.ctx(-1)))

		case strings.Contains(text, "ForStmt"):
			cur.loopLevel++
			cur.loopEpoch++
			condCol, _ := peekCol(s)
			if err := cur.push(frame{kind: KindForCondition1, level: cur.loopLevel, epoch: cur.loopEpoch, condCol: condCol, want: 1}); err != nil {
				return nil, withContext(err, s, line.Index)
			}
			cur.emit(Start(KindForCondition1, cur.loopLevel, cur.loopEpoch))

		case strings.Contains(text, "CallExpr"):
			cur.pendingTgt = append(cur.pendingTgt, "")

		case strings.Contains(text, "DeclRefExpr") && strings.Contains(text, "Function"):
			target := extractDeclName(text)
			if len(cur.pendingTgt) > 0 {
				cur.pendingTgt[len(cur.pendingTgt)-1] = target
				resolveCall(cur, line.Index)
			} else {
				emitArgCall(cur, target, line.Index)
			}
		}
	}
	flush()
	return out, nil
}

// spawnPrimitives are the two C runtime functions whose function-
// pointer argument is reordered ahead of the call itself, per spec:
// the spawned routine is treated as logically invoked by this call,
// so its Call event should precede the primitive's in the event list
// even though the primitive's own callee reference appears first in
// the AST dump.
var spawnPrimitives = map[string]bool{
	"clone":          true,
	"pthread_create": true,
}

// resolveCall pops the most recent pending call slot once its target
// has been resolved from a DeclRefExpr, emitting the Call event.
func resolveCall(cur *funcState, lineIdx int) {
	target := cur.pendingTgt[len(cur.pendingTgt)-1]
	cur.pendingTgt = cur.pendingTgt[:len(cur.pendingTgt)-1]
	cur.emit(Call(target, cur.ctx(lineIdx)))
}

// emitArgCall handles a DeclRefExpr(Function) that isn't itself a
// call's own callee reference — i.e. a function-pointer argument,
// such as the worker routine passed to clone/pthread_create. If the
// immediately preceding event is a Call to one of spawnPrimitives,
// this argument call is inserted ahead of it instead of after.
func emitArgCall(cur *funcState, target string, lineIdx int) {
	e := Call(target, cur.ctx(lineIdx))
	n := len(cur.events)
	if n > 0 {
		prev := cur.events[n-1]
		if prev.Tag == TagCall && spawnPrimitives[prev.Target] {
			cur.events[n-1] = e
			cur.events = append(cur.events, prev)
			return
		}
	}
	cur.emit(e)
}

// openIf handles both a fresh "if" and the "else if" continuation of
// an already-open chain (signalled by cur.pendingElse, consumed here).
func openIf(cur *funcState, s *scan.Scanner, line scan.Line) error {
	kind := KindIf
	var level, epoch int
	if cur.pendingElse != nil {
		kind = KindElseIf
		level, epoch = cur.pendingElse.level, cur.pendingElse.epoch
		cur.pendingElse = nil
	} else {
		cur.ifLevel++
		cur.ifEpoch++
		level, epoch = cur.ifLevel, cur.ifEpoch
	}
	hasElse := strings.Contains(line.Text, "has_else")
	condCol, _ := peekCol(s)
	f := frame{kind: kind, level: level, epoch: epoch, condCol: condCol, want: 2, hasElse: hasElse}
	if err := cur.push(f); err != nil {
		return withContext(err, s, line.Index)
	}
	cur.emit(Start(kind, level, epoch))
	return nil
}

// withContext stamps a ParseStructureError raised mid-walk with the
// offending line's index and a surrounding window of dump text, so the
// diagnostic cites where the structure went wrong rather than just
// what.
func withContext(err error, s *scan.Scanner, lineIdx int) error {
	if pse, ok := err.(*cgerr.ParseStructureError); ok {
		pse.Line = lineIdx
		pse.Context = s.ContextWindow(lineIdx, 3)
	}
	return err
}

// closeOrAdvance processes one column-regression event against the
// innermost open frame: either it's an internal child transition
// (condition -> body) or a true close. Returns true if the caller
// should re-check the (possibly now-different) top frame against the
// same line — which only holds when the transition popped to a
// shallower or equal frame, never when it pushed one for strictly
// deeper content the current line merely introduces.
func closeOrAdvance(cur *funcState, top *frame) bool {
	top.children++

	switch top.kind {
	case KindWhileCondition:
		// The body is a sibling of the condition at the same depth, so
		// the new frame keeps the same condCol; what changes is that the
		// line which triggered this transition (the body's own opening
		// marker) must not be re-tested against the frame it just
		// opened, since the body's content is nested strictly deeper
		// than this line, not past it.
		cur.emit(End(KindWhileCondition, top.level, top.epoch))
		level, epoch, condCol := top.level, top.epoch, top.condCol
		cur.pop()
		cur.push(frame{kind: KindWhile, level: level, epoch: epoch, condCol: condCol, want: 1})
		cur.emit(Start(KindWhile, level, epoch))
		cur.emit(Call(cur.placeholder(), cur.ctx(-1)))
		return false

	case KindWhile, KindFor, KindCase, KindDefault, KindElse:
		cur.emit(End(top.kind, top.level, top.epoch))
		cur.pop()
		return true

	case KindConditional:
		// The first branch of the ternary just closed; the second is
		// always an "else" side, no lookahead needed (unlike if/else-if,
		// a ConditionalOperator always has exactly two operand
		// branches, so top.kind mutating here is never revisited as
		// KindConditional again). Unlike while/for/do, there is no
		// separate wrapper line for the else operand: this same line is
		// both the trigger and the else operand's own first line, so it
		// must not be re-tested against the frame it just opened.
		cur.emit(End(KindConditional, top.level, top.epoch))
		top.kind = KindElse
		top.want = 1
		top.children = 0
		cur.emit(Start(KindElse, top.level, top.epoch))
		return false

	case KindForCondition1:
		// init, test and increment are all non-last siblings of the body
		// in the dump (only the body itself carries a backtick), so this
		// is the only trigger ForStmt's children ever produce: it stands
		// in for both the init/test -> increment and the increment ->
		// body transitions at once, emitting ForCondition2 as a
		// zero-width bracket immediately before For begins.
		level, epoch, condCol := top.level, top.epoch, top.condCol
		cur.emit(End(KindForCondition1, level, epoch))
		cur.emit(Start(KindForCondition2, level, epoch))
		cur.emit(End(KindForCondition2, level, epoch))
		cur.pop()
		cur.push(frame{kind: KindFor, level: level, epoch: epoch, condCol: condCol, want: 1})
		cur.emit(Start(KindFor, level, epoch))
		cur.emit(Call(cur.placeholder(), cur.ctx(-1)))
		return false

	case KindDoWhile:
		cur.emit(End(KindDoWhile, top.level, top.epoch))
		level, epoch, condCol := top.level, top.epoch, top.condCol
		cur.pop()
		cur.push(frame{kind: KindDoWhileCondition, level: level, epoch: epoch, condCol: condCol, want: 1})
		cur.emit(Start(KindDoWhileCondition, level, epoch))
		return false

	case KindDoWhileCondition:
		cur.emit(End(KindDoWhileCondition, top.level, top.epoch))
		cur.pop()
		return true

	case KindSwitch:
		cur.emit(End(KindSwitch, top.level, top.epoch))
		cur.pop()
		return true

	case KindIf, KindElseIf:
		// A non-last child (condition, and then-branch when an else
		// slot follows) carries no backtick of its own, so it never
		// reaches this switch at all — only the region's LAST AST child
		// does, once its own subtree returns to this depth. For a
		// has_else IfStmt, that last child IS the else slot, so the
		// very first trigger this frame ever sees is "then is done,
		// else begins" (children reaches want-1); the second trigger,
		// once the else slot's own subtree (tracked as its own KindElse
		// frame, pushed by the caller) unwinds all the way back past
		// this depth, is the frame's true close.
		if top.hasElse && top.children == top.want-1 {
			cur.emit(End(top.kind, top.level, top.epoch))
			level, epoch := top.level, top.epoch
			cur.pop()
			cur.pendingElse = &pendingElse{level: level, epoch: epoch}
			return true
		}
		if top.children < top.want {
			return false
		}
		cur.emit(End(top.kind, top.level, top.epoch))
		cur.pop()
		return true
	}
	return false
}

// peekCol returns the alpha_col of the line the scanner's cursor is
// currently sitting on (the first child of the marker just consumed).
func peekCol(s *scan.Scanner) (int, bool) {
	l, ok := s.Peek(0)
	if !ok {
		return scan.NoCol, false
	}
	return l.AlphaCol, true
}

// extractDeclName pulls the referenced identifier out of a
// FunctionDecl/DeclRefExpr dump line. A DeclRefExpr naming a Function
// quotes the name ("Function 0x... 'name' 'type'" in the dump
// convention Stage A emits); a FunctionDecl states its own name bare,
// immediately before the quoted type.
func extractDeclName(text string) string {
	fields := strings.Fields(text)
	if idx := indexOf(fields, "Function"); idx >= 0 {
		for i := idx + 1; i < len(fields); i++ {
			if name, ok := unquote(fields[i]); ok {
				return name
			}
		}
	}
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		if strings.HasPrefix(f, "'") {
			continue
		}
		if isIdent(f) {
			return f
		}
	}
	return ""
}

func indexOf(fields []string, want string) int {
	for i, f := range fields {
		if f == want {
			return i
		}
	}
	return -1
}

// unquote strips a single leading and trailing "'" from a dump token,
// reporting whether both were present.
func unquote(f string) (string, bool) {
	if len(f) >= 2 && strings.HasPrefix(f, "'") && strings.HasSuffix(f, "'") {
		return f[1 : len(f)-1], true
	}
	return "", false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
