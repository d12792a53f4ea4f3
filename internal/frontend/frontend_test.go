package frontend

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFixtureDump(t *testing.T) {
	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "dump.txt")
	if err := os.WriteFile(dumpPath, []byte("hello dump\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f := &Fixture{DumpPath: dumpPath}
	got, err := f.Dump("ignored.c")
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if got != "hello dump\n" {
		t.Errorf("got %q", got)
	}
}

func TestFixtureDumpMissingFile(t *testing.T) {
	f := &Fixture{DumpPath: "/nonexistent/path/dump.txt"}
	if _, err := f.Dump("x.c"); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestClangDumpMissingSourceFile(t *testing.T) {
	c := NewClang("", nil)
	if _, err := c.Dump("/nonexistent/file.c"); err == nil {
		t.Fatal("expected error for missing source file")
	}
}
