package cache

import "testing"

func TestOpenPutGet(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	key := Key("int main(){}", "clang 17", "cfg-hash")
	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("expected no cached entry yet, got ok=%v err=%v", ok, err)
	}

	want := Entry{FilePath: "main.c", ASTDump: "dump text", MergedGraph: "{}"}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("expected cached entry, got ok=%v err=%v", ok, err)
	}
	if got.FilePath != want.FilePath || got.ASTDump != want.ASTDump || got.MergedGraph != want.MergedGraph {
		t.Errorf("got %+v, want %+v", *got, want)
	}
}

func TestKeyIsDeterministicAndDiscriminating(t *testing.T) {
	a := Key("content", "v1", "h1")
	b := Key("content", "v1", "h1")
	if a != b {
		t.Error("Key should be deterministic")
	}
	if Key("content2", "v1", "h1") == a {
		t.Error("different content should produce a different key")
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	key := Key("x", "v", "h")
	if err := c.Put(key, Entry{FilePath: "x.c", ASTDump: "d", MergedGraph: "{}"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Error("expected cache to be empty after Clear")
	}
}
