package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yaml")

	yaml := `
server:
  port: 9090
  host: "127.0.0.1"
bakuhu:
  base_path: "/srv/bakuhu"
runtime:
  thread_pool_workers: 4
monitor:
  base_interval_ms: 2000
  max_interval_ms: 8000
shogun:
  no_change_threshold: 3
tmux:
  sanitize: false
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Bakuhu.BasePath != "/srv/bakuhu" {
		t.Errorf("Bakuhu.BasePath = %q", cfg.Bakuhu.BasePath)
	}
	if cfg.Runtime.ThreadPoolWorkers != 4 {
		t.Errorf("Runtime.ThreadPoolWorkers = %d, want 4", cfg.Runtime.ThreadPoolWorkers)
	}
	if cfg.Monitor.BaseInterval() != 2*time.Second || cfg.Monitor.MaxInterval() != 8*time.Second {
		t.Errorf("Monitor intervals = %v/%v, want 2s/8s", cfg.Monitor.BaseInterval(), cfg.Monitor.MaxInterval())
	}
	if cfg.Tmux.Sanitize {
		t.Error("Tmux.Sanitize = true, want false")
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Monitor.NoChangeThreshold != 2 {
		t.Errorf("Monitor.NoChangeThreshold = %d, want default 2", cfg.Monitor.NoChangeThreshold)
	}
	if cfg.Shogun.BaseIntervalMS != 1000 || cfg.Shogun.NoChangeThreshold != 3 {
		t.Errorf("Shogun = %+v, want base 1000 threshold 3", cfg.Shogun)
	}
	if cfg.Tmux.MultiagentSession != "multiagent" {
		t.Errorf("Tmux.MultiagentSession = %q, want default", cfg.Tmux.MultiagentSession)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.toml")

	data := `
[server]
port = 7000

[shogun]
base_interval_ms = 500
max_interval_ms = 1500
no_change_threshold = 1
`
	if err := os.WriteFile(cfgPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Shogun.BaseIntervalMS != 500 || cfg.Shogun.MaxIntervalMS != 1500 {
		t.Errorf("Shogun = %+v", cfg.Shogun)
	}
	if cfg.Monitor.BaseIntervalMS != 5000 {
		t.Errorf("Monitor.BaseIntervalMS = %d, want default 5000", cfg.Monitor.BaseIntervalMS)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/settings.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/settings.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}

	if cfg.Server.Port != 30001 {
		t.Errorf("Server.Port = %d, want default 30001", cfg.Server.Port)
	}
	if cfg.Runtime.ThreadPoolWorkers != 2 {
		t.Errorf("Runtime.ThreadPoolWorkers = %d, want default 2", cfg.Runtime.ThreadPoolWorkers)
	}
	if cfg.Monitor.BaseIntervalMS != 5000 || cfg.Monitor.MaxIntervalMS != 10000 {
		t.Errorf("Monitor = %+v, want 5000/10000", cfg.Monitor)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no workers", func(c *Config) { c.Runtime.ThreadPoolWorkers = 0 }, "thread_pool_workers"},
		{"zero base", func(c *Config) { c.Monitor.BaseIntervalMS = 0 }, "monitor.base_interval_ms"},
		{"max below base", func(c *Config) { c.Shogun.MaxIntervalMS = 10 }, "shogun.max_interval_ms"},
		{"zero threshold", func(c *Config) { c.Shogun.NoChangeThreshold = 0 }, "no_change_threshold"},
		{"zero capture lines", func(c *Config) { c.Tmux.CaptureLines = 0 }, "capture line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWSConfigJSON(t *testing.T) {
	data, err := json.Marshal(defaultConfig().WSConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"monitor":{"base_interval_ms":5000,"max_interval_ms":10000},"shogun":{"base_interval_ms":1000,"max_interval_ms":3000}}`
	if string(data) != want {
		t.Errorf("WSConfig JSON = %s, want %s", data, want)
	}
}

func TestDashboardPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bakuhu.BasePath = "/srv/bakuhu"
	if got := cfg.DashboardPath(); got != "/srv/bakuhu/dashboard.md" {
		t.Errorf("DashboardPath() = %q", got)
	}
}
