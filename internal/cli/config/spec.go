package config

import "time"

// CLIConfig is the configuration for regmesh-cli.
type CLIConfig struct {
	DefaultServer string        `yaml:"default_server"`
	DefaultOutput string        `yaml:"default_output"` // table, json, yaml
	Timeout       time.Duration `yaml:"timeout"`

	// Profiles maps a profile name to a server.
	Profiles map[string]Profile `yaml:"profiles"`

	// CurrentProfile is used when --server is not given.
	CurrentProfile string `yaml:"current_profile"`
}

// Profile is a named server.
type Profile struct {
	Server  string        `yaml:"server"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://127.0.0.1:8848",
		DefaultOutput: "table",
		Timeout:       30 * time.Second,
		Profiles:      make(map[string]Profile),
	}
}
