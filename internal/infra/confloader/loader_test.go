package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr           string   `koanf:"addr"`
			RateLimit      int      `koanf:"rate_limit"`
			AdminAllowList []string `koanf:"admin_allow_list"`
		} `koanf:"http"`
	} `koanf:"server"`
	Naming struct {
		ReportInterval time.Duration `koanf:"report_interval"`
	} `koanf:"naming"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regmesh.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/path/to/config.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "0.0.0.0:8848"
    rate_limit: 50
naming:
  report_interval: 10s
`)

	l := NewLoader(WithConfigFile(path))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "0.0.0.0:8848" {
		t.Errorf("Addr = %q", cfg.Server.HTTP.Addr)
	}
	if cfg.Server.HTTP.RateLimit != 50 {
		t.Errorf("RateLimit = %d", cfg.Server.HTTP.RateLimit)
	}
	if cfg.Naming.ReportInterval != 10*time.Second {
		t.Errorf("ReportInterval = %v", cfg.Naming.ReportInterval)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader(WithConfigFile("/nonexistent/regmesh.yaml"))
	var cfg testConfig
	if err := l.Load(&cfg); err == nil {
		t.Error("Load() should fail for a missing file")
	}
	if l.IsLoaded() {
		t.Error("IsLoaded() should be false after a failed Load()")
	}
}

func TestLoader_KeepsTargetDefaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	var cfg testConfig
	cfg.Server.HTTP.Addr = "127.0.0.1:8848"
	cfg.Naming.ReportInterval = 5 * time.Second

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:8848" || cfg.Naming.ReportInterval != 5*time.Second {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestLoader_EnvKey(t *testing.T) {
	l := NewLoader()
	tests := map[string]string{
		"REGMESH_LOG__LEVEL":          "log.level",
		"REGMESH_STORAGE__DATA_DIR":   "storage.data_dir",
		"REGMESH_SERVER__HTTP__ADDR":  "server.http.addr",
		"REGMESH_LOADER__MAX_CLIENTS": "loader.max_clients",
	}
	for name, want := range tests {
		if got := l.EnvKey(name); got != want {
			t.Errorf("EnvKey(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: "file:8848"
    rate_limit: 10
log:
  level: info
`)
	t.Setenv("RMTEST_SERVER__HTTP__ADDR", "env:8848")
	t.Setenv("RMTEST_SERVER__HTTP__ADMIN_ALLOW_LIST", "10.0.0.1, 10.0.0.0/8,")

	l := NewLoader(
		WithEnvPrefix("RMTEST_"),
		WithConfigFile(path),
		WithListKeys("server.http.admin_allow_list"),
	)
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.HTTP.Addr != "env:8848" {
		t.Errorf("env should override file, got %q", cfg.Server.HTTP.Addr)
	}
	if cfg.Server.HTTP.RateLimit != 10 {
		t.Errorf("file value lost, RateLimit = %d", cfg.Server.HTTP.RateLimit)
	}
	if got := cfg.Server.HTTP.AdminAllowList; len(got) != 2 || got[1] != "10.0.0.0/8" {
		t.Errorf("AdminAllowList = %v", got)
	}

	// Flags are applied last.
	if err := l.LoadMap(map[string]any{"log.level": "warn"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("flag should override file, got %q", cfg.Log.Level)
	}
	if !l.Exists("log.level") || l.GetString("log.level") != "warn" {
		t.Error("log.level should be readable")
	}
}

func TestLoader_Keys(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{
		"log": map[string]any{"level": "info"},
	}); err != nil {
		t.Fatal(err)
	}
	keys := l.Keys()
	if len(keys) != 1 || keys[0] != "log.level" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := mapProvider(nil).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
