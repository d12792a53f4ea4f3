// Package scan implements the ASTLineScanner: it exposes a
// finite, restartable sequence of text lines starting from the first
// line whose content references the source file path, and measures,
// per line, the alpha_col and tick_col structural cues that are the
// sole nesting signal the rest of the pipeline relies on.
package scan

import (
	"bufio"
	"math"
	"strings"
)

// Line is one measured line of the AST dump.
type Line struct {
	Text     string
	Index    int // position within the body, 0-based
	AlphaCol int // zero-based column of first alpha char or '<'; math.MaxInt if none
	TickCol  int // zero-based column of first backtick; math.MaxInt if none
}

// NoCol is the sentinel for "no such character on this line".
const NoCol = math.MaxInt

// Scanner is a restartable sequence over the translation unit's body
// lines, keyed off the first line referencing filePath.
type Scanner struct {
	lines []Line
	pos   int
}

// New scans raw (the full AST dump text) and locates the body start:
// the first line containing "<" + filePath, matching the original's
// file_marker = f"<{file_path}". Lines before that point are dropped;
// every remaining line is measured.
func New(raw string, filePath string) *Scanner {
	marker := "<" + filePath
	all := splitLines(raw)

	start := -1
	for i, l := range all {
		if strings.Contains(l, marker) {
			start = i
			break
		}
	}
	if start < 0 {
		// No match: behave as an empty body: callers (frontend) should
		// treat this as a cgerr.InputError upstream; the scanner itself
		// just yields nothing to scan.
		return &Scanner{}
	}

	body := all[start:]
	lines := make([]Line, len(body))
	for i, text := range body {
		lines[i] = Line{
			Text:     text,
			Index:    i,
			AlphaCol: alphaOrAngleCol(text),
			TickCol:  tickCol(text),
		}
	}
	return &Scanner{lines: lines}
}

func splitLines(raw string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

// alphaOrAngleCol returns the column of the first ASCII letter or '<',
// whichever comes first, or NoCol if neither appears.
func alphaOrAngleCol(line string) int {
	best := NoCol
	for i, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '<' {
			best = i
			break
		}
	}
	return best
}

// tickCol returns the column of the first backtick, or NoCol if none.
func tickCol(line string) int {
	idx := strings.IndexByte(line, '`')
	if idx < 0 {
		return NoCol
	}
	return idx
}

// Len returns the total number of body lines.
func (s *Scanner) Len() int { return len(s.lines) }

// Reset rewinds the cursor to the first body line.
func (s *Scanner) Reset() { s.pos = 0 }

// Next returns the next line and advances the cursor, or ok=false at
// end of sequence.
func (s *Scanner) Next() (Line, bool) {
	if s.pos >= len(s.lines) {
		return Line{}, false
	}
	l := s.lines[s.pos]
	s.pos++
	return l, true
}

// Peek returns the line offset ahead of the cursor without advancing
// it (offset=0 is the same line Next would return), or ok=false if out
// of range.
func (s *Scanner) Peek(offset int) (Line, bool) {
	idx := s.pos + offset
	if idx < 0 || idx >= len(s.lines) {
		return Line{}, false
	}
	return s.lines[idx], true
}

// At returns the line at absolute index i, or ok=false if out of
// range. Used by error paths to build a context window.
func (s *Scanner) At(i int) (Line, bool) {
	if i < 0 || i >= len(s.lines) {
		return Line{}, false
	}
	return s.lines[i], true
}

// Pos returns the current cursor position (index of the next line
// Next() would return).
func (s *Scanner) Pos() int { return s.pos }

// ContextWindow returns up to n lines of text before and after index i
// (inclusive), for error diagnostics.
func (s *Scanner) ContextWindow(i, n int) []string {
	lo := i - n
	if lo < 0 {
		lo = 0
	}
	hi := i + n
	if hi >= len(s.lines) {
		hi = len(s.lines) - 1
	}
	out := make([]string, 0, hi-lo+1)
	for j := lo; j <= hi; j++ {
		out = append(out, s.lines[j].Text)
	}
	return out
}
