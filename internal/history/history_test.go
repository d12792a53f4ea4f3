package history

import (
	"reflect"
	"sort"
	"testing"
)

func TestDiffRuns(t *testing.T) {
	from := []string{"a->b", "b->c"}
	to := []string{"b->c", "c->d"}

	d := DiffRuns(from, to)
	sort.Strings(d.Added)
	sort.Strings(d.Removed)

	if !reflect.DeepEqual(d.Added, []string{"c->d"}) {
		t.Errorf("Added = %v", d.Added)
	}
	if !reflect.DeepEqual(d.Removed, []string{"a->b"}) {
		t.Errorf("Removed = %v", d.Removed)
	}
}

func TestDiffRunsIdentical(t *testing.T) {
	edges := []string{"a->b"}
	d := DiffRuns(edges, edges)
	if len(d.Added) != 0 || len(d.Removed) != 0 {
		t.Errorf("expected no diff for identical runs, got %+v", d)
	}
}
