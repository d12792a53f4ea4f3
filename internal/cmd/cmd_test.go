package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/bctak/delphino/internal/cgerr"
)

func TestFormatErrAttachesContextWindow(t *testing.T) {
	err := &cgerr.ParseStructureError{
		Message: "nesting too deep",
		Line:    12,
		Context: []string{"  if (x) {", "    foo();"},
	}
	got := formatErr(err)
	if got == nil {
		t.Fatal("expected non-nil error")
	}
	if !errors.Is(got, err) {
		t.Errorf("formatErr should wrap the original error")
	}
	if !strings.Contains(got.Error(), "    foo();") {
		t.Errorf("formatErr message %q should carry the context window", got.Error())
	}
}

func TestFormatErrPassesThroughOtherErrors(t *testing.T) {
	err := errors.New("boom")
	if got := formatErr(err); got != err {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestExtFor(t *testing.T) {
	if extFor("mermaid") != ".mmd" {
		t.Error("expected .mmd for mermaid format")
	}
	if extFor("d2") != ".d2" {
		t.Error("expected .d2 for d2 format")
	}
}

func TestRootCmdRequiresOneArg(t *testing.T) {
	if err := rootCmd.Args(rootCmd, []string{}); err == nil {
		t.Error("expected an error with zero args")
	}
	if err := rootCmd.Args(rootCmd, []string{"a.c"}); err != nil {
		t.Errorf("expected no error with one arg, got %v", err)
	}
}
