package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Bakuhu    BakuhuConfig    `yaml:"bakuhu" toml:"bakuhu"`
	Runtime   RuntimeConfig   `yaml:"runtime" toml:"runtime"`
	Monitor   PollerConfig    `yaml:"monitor" toml:"monitor"`
	Shogun    PollerConfig    `yaml:"shogun" toml:"shogun"`
	Tmux      TmuxConfig      `yaml:"tmux" toml:"tmux"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" toml:"port"`
	Host           string   `yaml:"host" toml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// BakuhuConfig points at the working tree shared by the agents. dashboard.md
// and queue/shogun_to_karo.yaml are resolved relative to BasePath.
type BakuhuConfig struct {
	BasePath string `yaml:"base_path" toml:"base_path"`
}

type RuntimeConfig struct {
	ThreadPoolWorkers int `yaml:"thread_pool_workers" toml:"thread_pool_workers"`
}

// PollerConfig holds the adaptive polling bounds for one broadcaster.
// Intervals are in milliseconds to match the settings file format.
type PollerConfig struct {
	BaseIntervalMS    int `yaml:"base_interval_ms" toml:"base_interval_ms" json:"base_interval_ms"`
	MaxIntervalMS     int `yaml:"max_interval_ms" toml:"max_interval_ms" json:"max_interval_ms"`
	NoChangeThreshold int `yaml:"no_change_threshold" toml:"no_change_threshold" json:"-"`
}

// BaseInterval returns the base interval as a duration.
func (p PollerConfig) BaseInterval() time.Duration {
	return time.Duration(p.BaseIntervalMS) * time.Millisecond
}

// MaxInterval returns the max interval as a duration.
func (p PollerConfig) MaxInterval() time.Duration {
	return time.Duration(p.MaxIntervalMS) * time.Millisecond
}

type TmuxConfig struct {
	ShogunSession      string `yaml:"shogun_session" toml:"shogun_session"`
	MultiagentSession  string `yaml:"multiagent_session" toml:"multiagent_session"`
	CaptureLines       int    `yaml:"capture_lines" toml:"capture_lines"`
	ShogunCaptureLines int    `yaml:"shogun_capture_lines" toml:"shogun_capture_lines"`
	Sanitize           bool   `yaml:"sanitize" toml:"sanitize"`
}

// TelemetryConfig enables OTLP metric export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Headers  string `yaml:"headers" toml:"headers"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 30001,
			Host: "0.0.0.0",
		},
		Bakuhu: BakuhuConfig{
			BasePath: ".",
		},
		Runtime: RuntimeConfig{
			ThreadPoolWorkers: 2,
		},
		Monitor: PollerConfig{
			BaseIntervalMS:    5000,
			MaxIntervalMS:     10000,
			NoChangeThreshold: 2,
		},
		Shogun: PollerConfig{
			BaseIntervalMS:    1000,
			MaxIntervalMS:     3000,
			NoChangeThreshold: 2,
		},
		Tmux: TmuxConfig{
			ShogunSession:      "shogun",
			MultiagentSession:  "multiagent",
			CaptureLines:       50,
			ShogunCaptureLines: 300,
			Sanitize:           true,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load reads the settings file at path on top of the defaults. Files ending
// in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Validate checks the values the broadcasters and server depend on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Runtime.ThreadPoolWorkers < 1 {
		return fmt.Errorf("runtime.thread_pool_workers must be at least 1, got %d", c.Runtime.ThreadPoolWorkers)
	}
	for name, p := range map[string]PollerConfig{"monitor": c.Monitor, "shogun": c.Shogun} {
		if p.BaseIntervalMS <= 0 {
			return fmt.Errorf("%s.base_interval_ms must be positive, got %d", name, p.BaseIntervalMS)
		}
		if p.MaxIntervalMS < p.BaseIntervalMS {
			return fmt.Errorf("%s.max_interval_ms (%d) is below base_interval_ms (%d)", name, p.MaxIntervalMS, p.BaseIntervalMS)
		}
		if p.NoChangeThreshold < 1 {
			return fmt.Errorf("%s.no_change_threshold must be at least 1, got %d", name, p.NoChangeThreshold)
		}
	}
	if c.Tmux.CaptureLines < 1 || c.Tmux.ShogunCaptureLines < 1 {
		return errors.New("tmux capture line limits must be positive")
	}
	return nil
}

// DashboardPath returns the location of dashboard.md.
func (c *Config) DashboardPath() string {
	return filepath.Join(c.Bakuhu.BasePath, "dashboard.md")
}

// WSConfig is the reconnect tuning served to browser clients.
type WSConfig struct {
	Monitor PollerConfig `json:"monitor"`
	Shogun  PollerConfig `json:"shogun"`
}

// WSConfig returns the interval bounds of both broadcasters.
func (c *Config) WSConfig() WSConfig {
	return WSConfig{Monitor: c.Monitor, Shogun: c.Shogun}
}
