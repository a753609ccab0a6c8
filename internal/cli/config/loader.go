package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".regmesh", "cli.yaml")
}

// Load reads the CLI configuration. A missing file yields the defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return cfg, nil
}

// Save writes the CLI configuration with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Target returns the server and timeout to use. An explicit server wins,
// then the current profile, then the default server.
func (c *CLIConfig) Target(server string) (string, error) {
	if server != "" {
		return server, nil
	}
	if c.CurrentProfile != "" {
		p, ok := c.Profiles[c.CurrentProfile]
		if !ok {
			return "", fmt.Errorf("current profile %q is not defined", c.CurrentProfile)
		}
		return p.Server, nil
	}
	return c.DefaultServer, nil
}

// RequestTimeout returns the timeout of the current profile, falling back to
// the global timeout.
func (c *CLIConfig) RequestTimeout() time.Duration {
	if p, ok := c.Profiles[c.CurrentProfile]; ok && p.Timeout > 0 {
		return p.Timeout
	}
	return c.Timeout
}
