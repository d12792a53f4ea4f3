// Package config provides delphino's configuration: defaults, YAML
// loading/merging/validation, and config-directory discovery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of delphino's configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of delphino's configuration directory.
const ConfigDirName = ".delphino"

// Config holds all delphino configuration.
type Config struct {
	Limits   LimitsConfig   `yaml:"limits"`
	Render   RenderConfig   `yaml:"render"`
	Frontend FrontendConfig `yaml:"frontend"`
	Cache    CacheConfig    `yaml:"cache"`
}

// LimitsConfig bounds the pipeline's internal state.
type LimitsConfig struct {
	MaxNesting int `yaml:"max_nesting"`
	AbstainCap int `yaml:"abstain_cap"`
}

// RenderConfig configures GraphRenderer output.
type RenderConfig struct {
	Format    string `yaml:"format"`
	Direction string `yaml:"direction"`
	MaxNodes  int    `yaml:"max_nodes"`
}

// FrontendConfig configures the Stage A collaborator.
type FrontendConfig struct {
	ClangBin  string   `yaml:"clang_bin"`
	ExtraArgs []string `yaml:"extra_args"`
	LibcPath  string   `yaml:"libc_path"`
}

// CacheConfig configures internal/cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ErrConfigNotFound is returned when no config file can be found.
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .delphino/config.yaml, falling back to
// defaults, searching from workDir upward.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific path, merging with
// defaults and validating the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .delphino directory by walking up from
// startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return configDir, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .delphino directory in workDir if it
// doesn't exist, returning its path.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)
	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return configDir, nil
}

// Validate checks that config values are coherent.
func Validate(cfg *Config) error {
	if cfg.Limits.MaxNesting <= 0 {
		return fmt.Errorf("%w: limits.max_nesting must be positive, got %d", ErrInvalidConfig, cfg.Limits.MaxNesting)
	}
	if cfg.Limits.AbstainCap <= 0 {
		return fmt.Errorf("%w: limits.abstain_cap must be positive, got %d", ErrInvalidConfig, cfg.Limits.AbstainCap)
	}
	if !isValidFormat(cfg.Render.Format) {
		return fmt.Errorf("%w: render.format must be one of %v, got %q", ErrInvalidConfig, ValidFormats, cfg.Render.Format)
	}
	if cfg.Render.MaxNodes < 0 {
		return fmt.Errorf("%w: render.max_nodes must be non-negative, got %d", ErrInvalidConfig, cfg.Render.MaxNodes)
	}
	return nil
}

// ValidFormats lists the valid values for render.format.
var ValidFormats = []string{"d2", "mermaid"}

func isValidFormat(f string) bool {
	for _, v := range ValidFormats {
		if f == v {
			return true
		}
	}
	return false
}

// SaveDefault writes the default configuration to
// .delphino/config.yaml in workDir.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	header := "# delphino configuration\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}
