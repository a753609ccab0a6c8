package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DefaultServer != "http://127.0.0.1:8848" {
		t.Errorf("DefaultServer = %q", cfg.DefaultServer)
	}
	if cfg.DefaultOutput != "table" {
		t.Errorf("DefaultOutput = %q", cfg.DefaultOutput)
	}
	if cfg.Profiles == nil || len(cfg.Profiles) != 0 {
		t.Error("Profiles should be an empty map")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if filepath.Base(path) != "cli.yaml" || filepath.Base(filepath.Dir(path)) != ".regmesh" {
		t.Errorf("DefaultConfigPath() = %q", path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load should not error for a missing file: %v", err)
	}
	if cfg.DefaultServer != Default().DefaultServer {
		t.Error("missing file should yield defaults")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cli.yaml")

	cfg := Default()
	cfg.DefaultOutput = "json"
	cfg.Profiles["prod"] = Profile{Server: "https://prod:8848", Timeout: 5 * time.Second}
	cfg.CurrentProfile = "prod"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.DefaultOutput != "json" || got.CurrentProfile != "prod" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Profiles["prod"].Server != "https://prod:8848" {
		t.Errorf("profile = %+v", got.Profiles["prod"])
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("default_output: yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultOutput != "yaml" {
		t.Errorf("DefaultOutput = %q", cfg.DefaultOutput)
	}
	if cfg.DefaultServer != Default().DefaultServer || cfg.Profiles == nil {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("profiles: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestTarget(t *testing.T) {
	cfg := Default()
	cfg.Profiles["dev"] = Profile{Server: "http://dev:8848", Timeout: 2 * time.Second}

	if got, _ := cfg.Target("http://explicit:1"); got != "http://explicit:1" {
		t.Errorf("explicit server should win, got %q", got)
	}
	if got, _ := cfg.Target(""); got != cfg.DefaultServer {
		t.Errorf("no profile should use default, got %q", got)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v", cfg.RequestTimeout())
	}

	cfg.CurrentProfile = "dev"
	if got, _ := cfg.Target(""); got != "http://dev:8848" {
		t.Errorf("profile server expected, got %q", got)
	}
	if cfg.RequestTimeout() != 2*time.Second {
		t.Errorf("RequestTimeout() = %v", cfg.RequestTimeout())
	}

	cfg.CurrentProfile = "missing"
	if _, err := cfg.Target(""); err == nil {
		t.Error("expected error for undefined profile")
	}
}
