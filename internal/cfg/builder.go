package cfg

import (
	"github.com/bctak/delphino/internal/cgerr"
	"github.com/bctak/delphino/internal/event"
)

// AbstainCap bounds the powerset iteration over MayAbstain candidates:
// beyond this many candidates, the ones past the cap are treated as
// never abstaining, which only omits edges (a safe under-
// approximation), never adds a false one. Which candidates fall past
// the cap follows map iteration order and is not fixed between runs.
const AbstainCap = 8

// PerFunctionGraph is the Stage C output for one user function: a
// Graph over {S, E} ∪ Callees(f), with all iteration placeholders
// already rewritten away.
type PerFunctionGraph struct {
	Name  string
	Graph *Graph
	// Abstains is true if S can reach E directly, i.e. some path through
	// f touches no external symbol (f ∈ MayAbstain).
	Abstains bool
}

// Start returns f's entry set: S's out-neighbors.
func (f *PerFunctionGraph) Start() []string { return f.Graph.Successors(S) }

// End returns f's exit set: E's in-neighbors.
func (f *PerFunctionGraph) End() []string { return f.Graph.Predecessors(E) }

// Build runs the PerFunctionGraphBuilder for every function in funcs,
// given the NeverCalls set. It first builds each function with
// MayAbstain = ∅ to discover candidates (functions whose S reaches E
// directly), then reruns over the bounded powerset of candidates per
// function, unioning edges across every run — the feasibility
// iteration for MayAbstain.
func Build(funcs []event.FunctionEvents, neverCalls map[string]bool) (map[string]*PerFunctionGraph, error) {
	return BuildWithAbstainCap(funcs, neverCalls, AbstainCap)
}

// BuildWithAbstainCap runs Build with the powerset candidate cap
// overridden from config (internal/config's Limits.AbstainCap)
// instead of the package default; cap<=0 falls back to AbstainCap.
func BuildWithAbstainCap(funcs []event.FunctionEvents, neverCalls map[string]bool, abstainCap int) (map[string]*PerFunctionGraph, error) {
	if abstainCap <= 0 {
		abstainCap = AbstainCap
	}
	out := make(map[string]*PerFunctionGraph, len(funcs))

	baseline := make(map[string]*PerFunctionGraph, len(funcs))
	for _, f := range funcs {
		pfg, err := buildOne(f, neverCalls, nil)
		if err != nil {
			return nil, err
		}
		baseline[f.Name] = pfg
	}

	candidates := make([]string, 0)
	for name, pfg := range baseline {
		if pfg.Abstains {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) > abstainCap {
		candidates = candidates[:abstainCap]
	}

	for _, f := range funcs {
		merged := baseline[f.Name].Graph
		for _, subset := range powerset(candidates) {
			if len(subset) == 0 {
				continue
			}
			pfg, err := buildOne(f, neverCalls, toSet(subset))
			if err != nil {
				return nil, err
			}
			mergeGraphs(merged, pfg.Graph)
		}
		out[f.Name] = &PerFunctionGraph{Name: f.Name, Graph: merged, Abstains: baseline[f.Name].Abstains}
	}
	return out, nil
}

// mergeGraphs adds every edge of src into dst: a monotone union, never
// removing an edge one run already established.
func mergeGraphs(dst, src *Graph) {
	for from, row := range src.Edges {
		for to := range row {
			dst.AddEdge(from, to)
		}
	}
}

// powerset returns every subset of items, including the empty set.
// Bounded by AbstainCap (at most 2^8 = 256 subsets) per the capped
// candidate list passed in.
func powerset(items []string) [][]string {
	out := [][]string{{}}
	for _, it := range items {
		n := len(out)
		for i := 0; i < n; i++ {
			next := make([]string, len(out[i]), len(out[i])+1)
			copy(next, out[i])
			out = append(out, append(next, it))
		}
	}
	return out
}

// frame is one open control-flow region on Stage C's own region stack,
// replayed from the Start/End events Stage B produced. Unlike the
// extractor's frame (keyed by dump column), this one is keyed purely by
// the event stream's nesting — Stage C never re-derives column cues.
type frame struct {
	kind event.ControlKind

	// preset is the node set live just before this region opened.
	preset map[string]bool

	// chain accumulation (If/ElseIf/Else and Conditional/Else):
	chainUnion map[string]bool
	sawElse    bool

	// switch accumulation:
	breakSet    map[string]bool
	defaultSeen bool

	// loop accumulation (While/For/DoWhile and their Condition frames):
	continueSet map[string]bool
	condEnd     map[string]bool // prev captured when the condition region closed
	backTarget  map[string]bool // condition's own first-call set, if any
	placeholder string

	// firstCall is lazily set to the node set reached by the first Call
	// processed while this frame is innermost; used as the loop
	// back-edge target in preference to the placeholder when the
	// condition itself makes a call.
	firstCall map[string]bool
}

// abstainAsNoop reports whether target should be treated as a no-op
// call under the abstain subset: a NeverCalls member always is (it has
// no external callee at all), and so is any MayAbstain candidate
// currently in the subset under test.
func abstainAsNoop(target string, neverCalls, abstainSubset map[string]bool) bool {
	if neverCalls[target] {
		return true
	}
	return abstainSubset[target]
}

// buildOne runs Stage C once for a single function, treating every
// member of abstainSubset as contributing nothing. abstainSubset is
// nil on the baseline (MayAbstain = ∅) run.
func buildOne(fn event.FunctionEvents, neverCalls, abstainSubset map[string]bool) (*PerFunctionGraph, error) {
	g := NewGraph()
	g.AddNode(S)
	g.AddNode(E)

	prev := map[string]bool{S: true}
	var stack []*frame
	var placeholders []string

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	// markFirstCall records the first call reached while a frame is
	// innermost, on that innermost frame only, if it hasn't seen one yet
	// (an if/switch/loop condition nested inside another only cares
	// about its own first call). Enclosing frames are left untouched.
	markFirstCall := func(result map[string]bool) {
		if fr := top(); fr != nil && fr.firstCall == nil {
			fr.firstCall = copySet(result)
		}
	}

	onCall := func(target string) error {
		if abstainAsNoop(target, neverCalls, abstainSubset) {
			return nil
		}
		g.AddEdges(setSlice(prev), []string{target})
		prev = map[string]bool{target: true}
		markFirstCall(prev)
		return nil
	}

	// jumpTo attaches prev to sink (a loop/switch's break/continue
	// accumulator; return wires prev to E itself) and clears prev, so that
	// subsequent Call events in the now-unreachable tail of this region
	// add no further edges.
	jumpTo := func(sink map[string]bool) {
		for n := range prev {
			if sink != nil {
				sink[n] = true
			}
		}
		prev = map[string]bool{}
	}

	findEnclosingLoopOrSwitch := func() (*frame, error) {
		for i := len(stack) - 1; i >= 0; i-- {
			switch stack[i].kind {
			case event.KindWhile, event.KindFor, event.KindDoWhile, event.KindDoWhileCondition:
				return stack[i], nil
			case event.KindSwitch:
				return stack[i], nil
			}
		}
		return nil, nil
	}

	findEnclosingLoop := func() *frame {
		for i := len(stack) - 1; i >= 0; i-- {
			switch stack[i].kind {
			case event.KindWhile, event.KindFor, event.KindDoWhile, event.KindDoWhileCondition:
				return stack[i]
			}
		}
		return nil
	}

	finalizeChain := func(fr *frame) {
		result := copySet(fr.chainUnion)
		if !fr.sawElse {
			for n := range fr.preset {
				result[n] = true
			}
		}
		prev = result
	}

	for i := 0; i < len(fn.Events); i++ {
		ev := fn.Events[i]
		switch ev.Tag {
		case event.TagCall:
			target := ev.Target
			if err := onCall(target); err != nil {
				return nil, err
			}

		case event.TagStart:
			switch ev.Kind {
			case event.KindIf, event.KindConditional:
				stack = append(stack, &frame{kind: ev.Kind, preset: copySet(prev), chainUnion: map[string]bool{}})
				prev = copySet(prev)

			case event.KindElseIf:
				fr := top()
				if fr == nil {
					return nil, &cgerr.InvariantViolation{Message: "else-if with no open if chain"}
				}
				prev = copySet(fr.preset)

			case event.KindElse:
				fr := top()
				if fr == nil {
					return nil, &cgerr.InvariantViolation{Message: "else with no open chain"}
				}
				fr.sawElse = true
				prev = copySet(fr.preset)

			case event.KindSwitch:
				stack = append(stack, &frame{kind: event.KindSwitch, preset: copySet(prev), breakSet: map[string]bool{}})

			case event.KindCase, event.KindDefault:
				sw := top()
				if sw == nil || sw.kind != event.KindSwitch {
					return nil, &cgerr.InvariantViolation{Message: "case/default with no open switch"}
				}
				if ev.Kind == event.KindDefault {
					sw.defaultSeen = true
				}
				for n := range sw.preset {
					prev[n] = true
				}
				stack = append(stack, &frame{kind: ev.Kind})

			case event.KindWhileCondition:
				stack = append(stack, &frame{kind: event.KindWhileCondition, preset: copySet(prev)})

			case event.KindFor:
				// Emitted right after ForCondition1 closes and
				// ForCondition2's zero-width bracket is synthesized;
				// condEnd is whatever prev is right now (init/test made
				// no call, or ended on its last call). The extractor emits
				// the iteration placeholder as the very next Call event
				// (event/extract.go's closeOrAdvance), so Stage C reads its
				// name from the stream instead of minting its own — the
				// main loop still processes that Call normally on its next
				// iteration, wiring prev->placeholder like any other call.
				condFr := popCondition(&stack)
				ph := fn.Events[i+1].Target
				placeholders = append(placeholders, ph)
				fr := &frame{
					kind:        event.KindFor,
					continueSet: map[string]bool{},
					condEnd:     copySet(prev),
					backTarget:  condFr.firstCall,
					placeholder: ph,
				}
				stack = append(stack, fr)

			case event.KindWhile:
				condFr := popCondition(&stack)
				ph := fn.Events[i+1].Target
				placeholders = append(placeholders, ph)
				fr := &frame{
					kind:        event.KindWhile,
					continueSet: map[string]bool{},
					condEnd:     copySet(prev),
					backTarget:  condFr.firstCall,
					placeholder: ph,
				}
				stack = append(stack, fr)

			case event.KindDoWhile:
				ph := fn.Events[i+1].Target
				placeholders = append(placeholders, ph)
				stack = append(stack, &frame{
					kind:        event.KindDoWhile,
					continueSet: map[string]bool{},
					placeholder: ph,
				})

			case event.KindDoWhileCondition:
				body := top()
				if body == nil || body.kind != event.KindDoWhile {
					return nil, &cgerr.InvariantViolation{Message: "do-while condition with no open body"}
				}
				stack = stack[:len(stack)-1]
				// Unlike while/for (where the condition precedes the body,
				// so continue's target IS the loop-close target), a
				// do-while continue must re-enter the condition check
				// rather than jump straight back into the body. Merge it
				// into prev here so the condition's own Call events (just
				// below) wire it up like any other predecessor; breakSet
				// still bypasses the condition entirely.
				for n := range body.continueSet {
					prev[n] = true
				}
				stack = append(stack, &frame{
					kind:        event.KindDoWhileCondition,
					breakSet:    body.breakSet,
					placeholder: body.placeholder,
				})

			case event.KindForCondition1:
				stack = append(stack, &frame{kind: event.KindForCondition1, preset: copySet(prev)})

			case event.KindForCondition2:
				// Zero-width bracket: Start/End pair with no events in
				// between. Nothing to do.
			}

		case event.TagEnd:
			switch ev.Kind {
			case event.KindIf, event.KindConditional:
				fr := top()
				if fr == nil || (fr.kind != event.KindIf && fr.kind != event.KindConditional) {
					return nil, &cgerr.InvariantViolation{Message: "End(If) with mismatched frame"}
				}
				for n := range prev {
					fr.chainUnion[n] = true
				}
				if peekOpensChain(fn.Events, i) {
					// Chain continues (else-if/else): leave fr open so
					// the next Start(ElseIf)/Start(Else) reuses its
					// preset and accumulator.
					continue
				}
				stack = stack[:len(stack)-1]
				finalizeChain(fr)

			case event.KindElseIf:
				fr := top()
				if fr == nil {
					return nil, &cgerr.InvariantViolation{Message: "End(ElseIf) with no open chain"}
				}
				for n := range prev {
					fr.chainUnion[n] = true
				}
				if peekOpensChain(fn.Events, i) {
					continue
				}
				stack = stack[:len(stack)-1]
				finalizeChain(fr)

			case event.KindElse:
				fr := top()
				if fr == nil {
					return nil, &cgerr.InvariantViolation{Message: "End(Else) with no open chain"}
				}
				for n := range prev {
					fr.chainUnion[n] = true
				}
				stack = stack[:len(stack)-1]
				finalizeChain(fr)

			case event.KindSwitch:
				fr := top()
				if fr == nil || fr.kind != event.KindSwitch {
					return nil, &cgerr.InvariantViolation{Message: "End(Switch) with mismatched frame"}
				}
				stack = stack[:len(stack)-1]
				result := union(fr.breakSet, prev)
				if !fr.defaultSeen {
					for n := range fr.preset {
						result[n] = true
					}
				}
				prev = result

			case event.KindCase, event.KindDefault:
				fr := top()
				if fr == nil {
					return nil, &cgerr.InvariantViolation{Message: "End(Case/Default) with mismatched frame"}
				}
				stack = stack[:len(stack)-1]
				// prev carries through as the next case's fallthrough
				// base; nothing to finalize here.

			case event.KindWhile:
				fr := top()
				if fr == nil || fr.kind != event.KindWhile {
					return nil, &cgerr.InvariantViolation{Message: "End(While) with mismatched frame"}
				}
				stack = stack[:len(stack)-1]
				closeLoop(g, fr, &prev)

			case event.KindFor:
				fr := top()
				if fr == nil || fr.kind != event.KindFor {
					return nil, &cgerr.InvariantViolation{Message: "End(For) with mismatched frame"}
				}
				stack = stack[:len(stack)-1]
				closeLoop(g, fr, &prev)

			case event.KindDoWhileCondition:
				fr := top()
				if fr == nil || fr.kind != event.KindDoWhileCondition {
					return nil, &cgerr.InvariantViolation{Message: "End(DoWhileCondition) with mismatched frame"}
				}
				stack = stack[:len(stack)-1]
				// Unlike While/For, the condition is evaluated after the
				// body, so its own tail (not a pre-body snapshot) is the
				// set that flows past the loop once it evaluates false.
				// The back edge still targets the body's entry (the
				// placeholder, fr.backTarget left unset) since a new
				// iteration restarts at the body, not the condition.
				// Do-while's body is mandatory regardless: no preset
				// re-injection on top of it.
				fr.condEnd = copySet(prev)
				closeLoop(g, fr, &prev)

			case event.KindWhileCondition, event.KindForCondition1:
				// Popped implicitly by the matching Start(While)/
				// Start(For)/Start(DoWhileCondition) above via
				// popCondition; nothing left on the stack to close.

			case event.KindDoWhile:
				// The body frame is kept alive: Start(DoWhileCondition)
				// pops and replaces it with the condition frame below.

			case event.KindBreak:
				fr, err := findEnclosingLoopOrSwitch()
				if err != nil {
					return nil, err
				}
				if fr == nil {
					return nil, &cgerr.ParseStructureError{Message: "break with no enclosing loop or switch", Line: ev.Context.LineIndex}
				}
				if fr.breakSet == nil {
					fr.breakSet = map[string]bool{}
				}
				jumpTo(fr.breakSet)

			case event.KindContinue:
				fr := findEnclosingLoop()
				if fr == nil {
					return nil, &cgerr.ParseStructureError{Message: "continue with no enclosing loop", Line: ev.Context.LineIndex}
				}
				jumpTo(fr.continueSet)

			case event.KindReturn:
				g.AddEdges(setSlice(prev), []string{E})
				prev = map[string]bool{}
			}
		}
	}

	// Function body exhausted: whatever is still live flows to E.
	g.AddEdges(setSlice(prev), []string{E})

	for _, ph := range placeholders {
		if g.HasNode(ph) {
			g.RewritePlaceholder(ph)
		}
	}

	return &PerFunctionGraph{
		Name:     fn.Name,
		Graph:    g,
		Abstains: directlyReachesE(g),
	}, nil
}

// directlyReachesE reports whether S has a direct edge to E, i.e. some
// path through the function touches no external symbol (MayAbstain).
func directlyReachesE(g *Graph) bool {
	return g.Edges[S][E]
}

// popCondition pops the innermost WhileCondition/ForCondition1 frame
// (the caller already knows which) and returns it for its Start(While)/
// Start(For) successor to consume.
func popCondition(stack *[]*frame) *frame {
	s := *stack
	fr := s[len(s)-1]
	*stack = s[:len(s)-1]
	return fr
}

// closeLoop finalizes a While/For/DoWhileCondition frame: wires the
// back edge (to the condition's own first call if it made one, else to
// the placeholder, rewritten later to the body's actual first call),
// splices any still-pending continueSet to the same target (empty for
// do-while, whose continues are merged upstream into the condition's
// own flow instead, since its condition follows the body rather than
// preceding it), and sets *prev to whatever flows to code after the
// loop.
func closeLoop(g *Graph, fr *frame, prev *map[string]bool) {
	tail := *prev
	target := fr.backTarget
	if target == nil {
		target = map[string]bool{fr.placeholder: true}
	}
	g.AddEdges(setSlice(tail), setSlice(target))
	g.AddEdges(setSlice(fr.continueSet), setSlice(target))

	after := map[string]bool{}
	for n := range fr.breakSet {
		after[n] = true
	}
	for n := range fr.condEnd {
		after[n] = true
	}
	*prev = after
}

// peekOpensChain reports whether the event right after index i (an
// End(If)/End(ElseIf)) is a Start(ElseIf) or Start(Else). Chain
// continuation is decided by this one-token lookahead rather than by
// trusting numeric level/epoch identity.
func peekOpensChain(events []event.Event, i int) bool {
	if i+1 >= len(events) {
		return false
	}
	next := events[i+1]
	return next.Tag == event.TagStart && (next.Kind == event.KindElseIf || next.Kind == event.KindElse)
}
