package symtab

import "testing"

func TestParseNM(t *testing.T) {
	out := `0000000000021000 T printf
0000000000021100 T malloc
                 U some_undefined_symbol
`
	table := parseNM(out)
	if !table.Has("printf") {
		t.Error("expected printf in parsed table")
	}
	if !table.Has("malloc") {
		t.Error("expected malloc in parsed table")
	}
	if table.Has("nonexistent") {
		t.Error("did not expect nonexistent symbol")
	}
}

func TestBundledHasCommonSymbols(t *testing.T) {
	for _, name := range []string{"malloc", "printf", "pthread_create", "clone"} {
		if !Bundled.Has(name) {
			t.Errorf("expected bundled table to contain %q", name)
		}
	}
}
