package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shogun-panel/panel/internal/config"
	"github.com/shogun-panel/panel/internal/mock"
	"github.com/shogun-panel/panel/internal/tmux"
)

var version = "dev"

var (
	// Global flags.
	flagConfig string
	flagMock   bool
)

// paneSource is implemented by tmux.Bridge and mock.Generator.
type paneSource interface {
	CaptureShogun(ctx context.Context) (string, error)
	CaptureAll(ctx context.Context) ([]tmux.PaneCapture, error)
	SendToShogun(ctx context.Context, text string) error
	SendSpecialKey(ctx context.Context, key string) error
}

var rootCmd = &cobra.Command{
	Use:   "shogun-panel",
	Short: "Live dashboard for a tmux-hosted shogun and its agents",
	Long: `shogun-panel watches the shogun tmux session and the multiagent session,
streams their pane output to browsers over websockets and injects operator
commands back into the shogun pane.

Running without a subcommand starts the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", envOrDefault("SHOGUN_PANEL_CONFIG", "config.yaml"), "path to config file (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVar(&flagMock, "mock", false, "use synthetic pane output instead of tmux")
	addServeFlags(rootCmd)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig reads --config, falling back to defaults when the file is
// missing.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newSource returns the tmux bridge, or a mock generator with --mock.
func newSource(cfg *config.Config) paneSource {
	if flagMock {
		return mock.NewGenerator()
	}
	return tmux.NewBridge(tmux.ExecRunner{}, tmux.Options{
		ShogunSession:      cfg.Tmux.ShogunSession,
		MultiagentSession:  cfg.Tmux.MultiagentSession,
		CaptureLines:       cfg.Tmux.CaptureLines,
		ShogunCaptureLines: cfg.Tmux.ShogunCaptureLines,
		Sanitize:           cfg.Tmux.Sanitize,
	})
}
