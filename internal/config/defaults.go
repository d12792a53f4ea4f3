package config

// DefaultConfig returns configuration with sensible defaults, used
// when no config file exists or a loaded file is missing fields.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxNesting: 100,
			AbstainCap: 8,
		},
		Render: RenderConfig{
			Format:    "d2",
			Direction: "right",
			MaxNodes:  0,
		},
		Frontend: FrontendConfig{
			ClangBin: "clang",
			LibcPath: "/lib/x86_64-linux-gnu/libc.so.6",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "",
		},
	}
}

// Merge merges loaded config with defaults; loaded values take
// precedence whenever they are non-zero.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Limits:   mergeLimits(loaded.Limits, defaults.Limits),
		Render:   mergeRender(loaded.Render, defaults.Render),
		Frontend: mergeFrontend(loaded.Frontend, defaults.Frontend),
		Cache:    mergeCache(loaded.Cache, defaults.Cache),
	}
}

func mergeLimits(loaded, defaults LimitsConfig) LimitsConfig {
	result := defaults
	if loaded.MaxNesting != 0 {
		result.MaxNesting = loaded.MaxNesting
	}
	if loaded.AbstainCap != 0 {
		result.AbstainCap = loaded.AbstainCap
	}
	return result
}

func mergeRender(loaded, defaults RenderConfig) RenderConfig {
	result := defaults
	if loaded.Format != "" {
		result.Format = loaded.Format
	}
	if loaded.Direction != "" {
		result.Direction = loaded.Direction
	}
	if loaded.MaxNodes != 0 {
		result.MaxNodes = loaded.MaxNodes
	}
	return result
}

func mergeFrontend(loaded, defaults FrontendConfig) FrontendConfig {
	result := defaults
	if loaded.ClangBin != "" {
		result.ClangBin = loaded.ClangBin
	}
	if len(loaded.ExtraArgs) > 0 {
		result.ExtraArgs = loaded.ExtraArgs
	}
	if loaded.LibcPath != "" {
		result.LibcPath = loaded.LibcPath
	}
	return result
}

func mergeCache(loaded, defaults CacheConfig) CacheConfig {
	result := CacheConfig{}
	// Enabled: YAML can't distinguish "absent" from "false", so a
	// loaded zero value falls back to the default only when the
	// default itself is true.
	result.Enabled = loaded.Enabled
	if !loaded.Enabled && defaults.Enabled {
		result.Enabled = defaults.Enabled
	}
	if loaded.Path != "" {
		result.Path = loaded.Path
	} else {
		result.Path = defaults.Path
	}
	return result
}
