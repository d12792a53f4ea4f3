package scan

import "testing"

func TestNewFindsBodyStart(t *testing.T) {
	raw := "TranslationUnitDecl 0x1\n" +
		"|-TypedefDecl 0x2 <built-in>\n" +
		"`-FunctionDecl 0x3 <foo.c:1:1, line:3:1> foo 'void ()'\n" +
		"  `-CompoundStmt 0x4 <foo.c:1:10, line:3:1>\n"

	s := New(raw, "foo.c")
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	first, ok := s.Next()
	if !ok {
		t.Fatal("expected a line")
	}
	if first.AlphaCol == NoCol {
		t.Errorf("expected an alpha/angle column on FunctionDecl line, got NoCol")
	}
}

func TestColumnMeasurement(t *testing.T) {
	raw := "<marker.c\n" +
		"  `-CallExpr 0x1 <col:5>\n"
	s := New(raw, "marker.c")
	line, ok := s.Next()
	if !ok {
		t.Fatal("expected first line")
	}
	if line.AlphaCol != 0 {
		t.Errorf("AlphaCol = %d, want 0 (the '<')", line.AlphaCol)
	}

	line2, ok := s.Next()
	if !ok {
		t.Fatal("expected second line")
	}
	if line2.TickCol != 2 {
		t.Errorf("TickCol = %d, want 2", line2.TickCol)
	}
	if line2.AlphaCol != 4 {
		t.Errorf("AlphaCol = %d, want 4 ('C' of CallExpr)", line2.AlphaCol)
	}
}

func TestNoMarkerYieldsEmpty(t *testing.T) {
	s := New("nothing here\n", "missing.c")
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestContextWindow(t *testing.T) {
	raw := "<f.c\nA\nB\nC\nD\nE\n"
	s := New(raw, "f.c")
	win := s.ContextWindow(2, 1)
	if len(win) != 3 {
		t.Fatalf("ContextWindow len = %d, want 3", len(win))
	}
}
