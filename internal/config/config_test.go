package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Limits.MaxNesting != DefaultConfig().Limits.MaxNesting {
		t.Errorf("expected default MaxNesting, got %d", cfg.Limits.MaxNesting)
	}
}

func TestLoadFromPathMergesPartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("limits:\n  max_nesting: 50\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Limits.MaxNesting != 50 {
		t.Errorf("expected overridden MaxNesting=50, got %d", cfg.Limits.MaxNesting)
	}
	if cfg.Limits.AbstainCap != DefaultConfig().Limits.AbstainCap {
		t.Errorf("expected default AbstainCap, got %d", cfg.Limits.AbstainCap)
	}
	if cfg.Render.Format != "d2" {
		t.Errorf("expected default render format, got %q", cfg.Render.Format)
	}
}

func TestLoadFromPathRejectsInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("render:\n  format: bogus\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected validation error for bogus format")
	}
}

func TestFindConfigDirWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ConfigDirName), 0755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindConfigDir(nested)
	if err != nil {
		t.Fatalf("FindConfigDir: %v", err)
	}
	want := filepath.Join(root, ConfigDirName)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFindConfigDirNotFound(t *testing.T) {
	if _, err := FindConfigDir(t.TempDir()); err != ErrConfigNotFound {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}
