package cfg

import (
	"testing"

	"github.com/bctak/delphino/internal/event"
)

func fe(name string, calls ...string) event.FunctionEvents {
	var evs []event.Event
	for _, c := range calls {
		evs = append(evs, event.Call(c, event.Context{}))
	}
	return event.FunctionEvents{Name: name, Events: evs}
}

func TestNeverCalls(t *testing.T) {
	// helper() only ever calls other user functions that bottom out
	// without touching anything external; worker() calls printf.
	funcs := []event.FunctionEvents{
		fe("helper", "inner"),
		fe("inner"),
		fe("worker", "printf"),
		fe("cyclic_a", "cyclic_b"),
		fe("cyclic_b", "cyclic_a"),
	}
	isUser := func(n string) bool {
		switch n {
		case "helper", "inner", "worker", "cyclic_a", "cyclic_b":
			return true
		}
		return false
	}
	isExternal := func(n string) bool { return n == "printf" }

	got := NeverCalls(funcs, isUser, isExternal)

	for _, want := range []string{"helper", "inner", "cyclic_a", "cyclic_b"} {
		if !got[want] {
			t.Errorf("NeverCalls missing %q", want)
		}
	}
	if got["worker"] {
		t.Error("NeverCalls should not include worker (reaches printf)")
	}
}
