package cfg

import "github.com/bctak/delphino/internal/event"

// NeverCalls computes the CallEliminationOracle: the set of user
// functions whose transitive call set (ignoring order and control flow
// entirely — a plain name-call graph) never touches an external symbol.
// These contribute nothing to the merged graph and Stage C treats any
// Call event targeting one as a no-op.
func NeverCalls(funcs []event.FunctionEvents, isUser func(string) bool, isExternal func(string) bool) map[string]bool {
	calls := make(map[string]map[string]bool, len(funcs))
	for _, f := range funcs {
		set := make(map[string]bool)
		for _, e := range f.Events {
			if e.Tag == event.TagCall {
				set[e.Target] = true
			}
		}
		calls[f.Name] = set
	}

	memo := make(map[string]bool)
	var reachesExternal func(name string, visiting map[string]bool) bool
	reachesExternal = func(name string, visiting map[string]bool) bool {
		if v, ok := memo[name]; ok {
			return v
		}
		if visiting[name] {
			// A call cycle among user functions with no external callee
			// anywhere in it never reaches one; treat as not-reaching
			// while the cycle unwinds, memoized definitively afterward.
			return false
		}
		visiting[name] = true
		defer delete(visiting, name)

		result := false
		for callee := range calls[name] {
			if isExternal(callee) {
				result = true
				break
			}
			if isUser(callee) {
				if reachesExternal(callee, visiting) {
					result = true
					break
				}
			}
		}
		memo[name] = result
		return result
	}

	out := make(map[string]bool)
	for _, f := range funcs {
		if !reachesExternal(f.Name, map[string]bool{}) {
			out[f.Name] = true
		}
	}
	return out
}
