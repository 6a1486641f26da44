package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shogun-panel/panel/internal/config"
	"github.com/shogun-panel/panel/internal/dashboard"
	"github.com/shogun-panel/panel/internal/executor"
	"github.com/shogun-panel/panel/internal/frontend"
	"github.com/shogun-panel/panel/internal/mock"
	"github.com/shogun-panel/panel/internal/queue"
	"github.com/shogun-panel/panel/internal/telemetry"
	"github.com/shogun-panel/panel/internal/ws"
)

const shutdownTimeout = 10 * time.Second

var (
	flagPort        int
	flagHost        string
	flagDev         bool
	flagFrontendDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagPort, "port", 0, "override server port")
	cmd.Flags().StringVar(&flagHost, "host", "", "override listen host")
	cmd.Flags().BoolVar(&flagDev, "dev", false, "serve the frontend from the filesystem")
	cmd.Flags().StringVar(&flagFrontendDir, "frontend-dir", "", "frontend directory for --dev (default: internal/frontend/static)")
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagPort > 0 {
		cfg.Server.Port = flagPort
	}
	if flagHost != "" {
		cfg.Server.Host = flagHost
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry.Version = version
	tel, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint: cfg.Telemetry.Endpoint,
		Headers:  cfg.Telemetry.Headers,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	if tel.Enabled() {
		log.Printf("Exporting telemetry to %s", cfg.Telemetry.Endpoint)
	}

	exec := executor.New(cfg.Runtime.ThreadPoolWorkers)

	src := newSource(cfg)
	if gen, ok := src.(*mock.Generator); ok {
		log.Println("Starting in mock mode")
		gen.Start(ctx)
	} else {
		log.Printf("Watching tmux sessions %q and %q", cfg.Tmux.ShogunSession, cfg.Tmux.MultiagentSession)
	}

	shogun := ws.NewStreamBroadcaster("shogun", src.CaptureShogun, exec, newPoller(cfg.Shogun), ws.WithTelemetry(tel))
	monitor := ws.NewMonitorBroadcaster("monitor", src.CaptureAll, exec, newPoller(cfg.Monitor), ws.WithTelemetry(tel))

	dash := dashboard.New(cfg.DashboardPath())
	if err := dash.Watch(); err != nil {
		log.Printf("dashboard watch disabled: %v", err)
	}

	frontendDir, embedded := resolveFrontend()
	server := ws.NewServer(cfg, exec, shogun, monitor, src, frontendDir, flagDev, embedded)
	server.SetQueue(queue.NewStore(cfg.Bakuhu.BasePath))
	server.SetDashboard(dash)

	shogun.Start()
	monitor.Start()

	httpServer := ws.NewHTTPServer(cfg.Server.Host, cfg.Server.Port, server.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	shogun.Stop()
	monitor.Stop()
	exec.Shutdown()
	dash.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	tel.Shutdown(flushCtx)

	return err
}

func newPoller(p config.PollerConfig) *ws.Poller {
	return ws.NewPoller(p.BaseInterval(), p.MaxInterval(), p.NoChangeThreshold)
}

// resolveFrontend picks the static asset source. With --dev the directory is
// served from disk; otherwise the embedded bundle is used, falling back to
// the source tree when the binary was built without -tags embed.
func resolveFrontend() (string, http.Handler) {
	dir := flagFrontendDir
	if dir == "" {
		cwd, _ := os.Getwd()
		dir = filepath.Join(cwd, "internal", "frontend", "static")
	}
	if flagDev {
		return dir, nil
	}

	if h := frontend.Handler(); h != nil {
		return "", h
	}
	if _, err := os.Stat(dir); err == nil {
		log.Printf("No embedded frontend, falling back to: %s", dir)
		return "", http.FileServer(http.Dir(dir))
	}
	log.Println("No frontend available; serving API only")
	return "", nil
}
