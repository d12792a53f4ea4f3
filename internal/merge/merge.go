// Package merge implements Stage D, the GraphMerger: it collapses the
// set of per-function graphs Stage C produced into a single
// MergedGraph over non-user symbols, by substituting every
// user-function call site with that function's own (fully expanded)
// entry and exit sets.
package merge

import "github.com/bctak/delphino/internal/cfg"

const (
	s = cfg.S
	e = cfg.E
)

// MergedGraph is the symbol-level closure: a directed graph whose
// nodes are the callee names isUser rejects — no user function, and
// neither sentinel, ever appears in it. Merge does not filter out
// names the classifier left unresolved, so those appear alongside the
// external symbols.
type MergedGraph struct {
	Graph *cfg.Graph
}

// expander carries the memo tables shared across a single Merge call:
// expandStart/expandEnd substitute a user function's entry/exit nodes
// with their own, recursively expanded, external-only equivalents.
type expander struct {
	graphs map[string]*cfg.PerFunctionGraph
	isUser func(string) bool

	startMemo map[string]map[string]bool
	endMemo   map[string]map[string]bool
}

// Merge runs the GraphMerger over every per-function graph Stage C
// produced, returning a MergedGraph free of user functions and sentinels.
func Merge(graphs map[string]*cfg.PerFunctionGraph, isUser func(string) bool) *MergedGraph {
	ex := &expander{
		graphs:    graphs,
		isUser:    isUser,
		startMemo: make(map[string]map[string]bool),
		endMemo:   make(map[string]map[string]bool),
	}

	out := cfg.NewGraph()
	for _, pfg := range graphs {
		for src, succs := range pfg.Graph.Edges {
			if src == s || src == e {
				continue
			}
			dst := ex.expandDestinations(succs)
			if ex.isUser(src) {
				out.AddEdges(setSlice(ex.expandEnd(src)), setSlice(dst))
			} else {
				out.AddEdges([]string{src}, setSlice(dst))
			}
		}
	}
	return &MergedGraph{Graph: out}
}

// expandDestinations resolves one internal edge's raw destination set
// into external symbols only: a user-function member is replaced by
// its own expanded start set (calling it transitions into its entry
// points), an external member passes through unchanged, and E (the
// callee returned without calling anything further) contributes
// nothing.
func (ex *expander) expandDestinations(raw map[string]bool) map[string]bool {
	out := make(map[string]bool, len(raw))
	for member := range raw {
		if member == e {
			continue
		}
		if ex.isUser(member) {
			for n := range ex.expandStart(member) {
				out[n] = true
			}
			continue
		}
		out[member] = true
	}
	return out
}

// expandStart returns name's fully expanded entry set: its own S
// successors, with every user-function member substituted by that
// function's own expanded entry set, recursively, until only external
// symbols remain. E (name abstains on that path, S reaches E directly
// with nothing called in between) contributes nothing.
func (ex *expander) expandStart(name string) map[string]bool {
	return ex.expand(name, ex.startMemo, func(pfg *cfg.PerFunctionGraph) []string { return pfg.Start() }, e)
}

// expandEnd returns name's fully expanded exit set: its own E
// predecessors, with every user-function member substituted by that
// function's own expanded exit set, recursively. S (name may reach E
// directly, i.e. abstain) contributes nothing — it isn't a symbol a
// caller can be said to have "called last".
func (ex *expander) expandEnd(name string) map[string]bool {
	return ex.expand(name, ex.endMemo, func(pfg *cfg.PerFunctionGraph) []string { return pfg.End() }, s)
}

// expand computes name's external-only boundary closure from the raw,
// unexpanded per-function boundary sets: starting from name's own
// boundary, every user-function member is queued for its own raw
// boundary in turn until no new user function appears, accumulating
// only external symbols — the iterate-until-fixed-point substitution,
// expressed as a worklist. Each function's closure is derived
// independently and in full before it is memoized, so mutual recursion
// (a calls b, b calls a, each with its own external escape) reaches
// every transitively reachable external symbol regardless of which
// function's call sites happen to be merged first.
func (ex *expander) expand(name string, memo map[string]map[string]bool, boundary func(*cfg.PerFunctionGraph) []string, skip string) map[string]bool {
	if v, ok := memo[name]; ok {
		return v
	}

	result := make(map[string]bool)
	queued := map[string]bool{name: true}
	work := []string{name}
	for len(work) > 0 {
		u := work[len(work)-1]
		work = work[:len(work)-1]
		pfg, ok := ex.graphs[u]
		if !ok {
			// Unknown user function (shouldn't happen given a consistent
			// symbol table): contributes nothing rather than panicking
			// on a lookup into a nil graph.
			continue
		}
		for _, member := range boundary(pfg) {
			if member == skip {
				continue
			}
			if ex.isUser(member) {
				if !queued[member] {
					queued[member] = true
					work = append(work, member)
				}
				continue
			}
			result[member] = true
		}
	}
	memo[name] = result
	return result
}

func setSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}
