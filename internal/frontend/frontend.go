// Package frontend is the Stage A collaborator: it is out of scope
// for the core algorithm, but something has to actually invoke the
// external C front end and hand back the AST dump text.
package frontend

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/bctak/delphino/internal/cgerr"
)

// Frontend produces the AST dump text for a C source file.
type Frontend interface {
	Dump(path string) (string, error)
}

// Clang shells out to `clang -Xclang -ast-dump -fsyntax-only <file>`.
type Clang struct {
	// Bin is the clang binary to invoke; defaults to "clang".
	Bin string
	// ExtraArgs are appended after the fixed ast-dump flags (e.g.
	// -I include paths, -std=), per internal/config's Frontend section.
	ExtraArgs []string
}

// NewClang returns a Clang frontend using the given binary, or "clang"
// if bin is empty.
func NewClang(bin string, extraArgs []string) *Clang {
	if bin == "" {
		bin = "clang"
	}
	return &Clang{Bin: bin, ExtraArgs: extraArgs}
}

// Dump invokes clang against path and returns its stdout (the AST
// dump). A missing file is reported before ever shelling out, since
// clang's own message for that case is not worth parsing.
func (c *Clang) Dump(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", &cgerr.InputError{Path: path, Err: err}
	}

	args := append([]string{"-Xclang", "-ast-dump", "-fsyntax-only"}, c.ExtraArgs...)
	args = append(args, path)

	cmd := exec.Command(c.Bin, args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return "", &cgerr.InputError{Path: path, Err: fmt.Errorf("clang failed: %s", string(ee.Stderr))}
		}
		return "", &cgerr.InputError{Path: path, Err: err}
	}
	return string(out), nil
}

// Fixture reads a pre-captured dump file instead of invoking clang,
// for hermetic tests and for CI environments without a C front end
// installed.
type Fixture struct {
	DumpPath string
}

func (f *Fixture) Dump(path string) (string, error) {
	data, err := os.ReadFile(f.DumpPath)
	if err != nil {
		return "", &cgerr.InputError{Path: f.DumpPath, Err: err}
	}
	return string(data), nil
}
