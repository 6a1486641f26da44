package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shogun-panel/panel/internal/config"
	"github.com/shogun-panel/panel/internal/dashboard"
	"github.com/shogun-panel/panel/internal/executor"
	"github.com/shogun-panel/panel/internal/procstat"
	"github.com/shogun-panel/panel/internal/queue"
	"github.com/shogun-panel/panel/internal/tmux"
)

const (
	dashboardNotFound = "Dashboard not found"
	maxBodyBytes      = 1 << 20
)

// Commander injects operator input into the shogun pane.
type Commander interface {
	SendToShogun(ctx context.Context, text string) error
	SendSpecialKey(ctx context.Context, key string) error
}

type Server struct {
	config          *config.Config
	exec            *executor.Executor
	shogun          *StreamBroadcaster
	monitor         *MonitorBroadcaster
	commander       Commander
	queue           *queue.Store
	dashboard       *dashboard.Cache
	frontendDir     string
	dev             bool
	embeddedHandler http.Handler
	allowedOrigins  map[string]bool
	allowedHosts    map[string]bool
	started         time.Time
}

func NewServer(cfg *config.Config, exec *executor.Executor, shogun *StreamBroadcaster, monitor *MonitorBroadcaster, commander Commander, frontendDir string, dev bool, embeddedHandler http.Handler) *Server {
	s := &Server{
		config:          cfg,
		exec:            exec,
		shogun:          shogun,
		monitor:         monitor,
		commander:       commander,
		frontendDir:     frontendDir,
		dev:             dev,
		embeddedHandler: embeddedHandler,
		allowedOrigins:  make(map[string]bool),
		allowedHosts:    make(map[string]bool),
		started:         time.Now(),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

// SetQueue configures the store behind /api/queue and /api/history.
// Must be called before SetupRoutes.
func (s *Server) SetQueue(q *queue.Store) {
	s.queue = q
}

// SetDashboard configures the cache behind /api/dashboard.
// Must be called before SetupRoutes.
func (s *Server) SetDashboard(d *dashboard.Cache) {
	s.dashboard = d
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/ws", NewHandler("shogun ws", s.shogun, s.checkOrigin))
	mux.Handle("/ws/monitor", NewHandler("monitor ws", s.monitor, s.checkOrigin))
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/special-key", s.handleSpecialKey)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/monitor/clear", s.handleMonitorClear)
	mux.HandleFunc("/api/ws-config", s.handleWSConfig)
	mux.HandleFunc("/api/status", s.handleStatus)

	if s.dev {
		log.Printf("Serving frontend from filesystem: %s", s.frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(s.frontendDir)))
	} else if s.embeddedHandler != nil {
		log.Println("Serving embedded frontend")
		mux.Handle("/", s.embeddedHandler)
	}
}

// Handler returns the routed mux wrapped in the security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// formInstruction reads the required "instruction" form field.
func formInstruction(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return "", false
	}
	instruction := r.PostForm.Get("instruction")
	if strings.TrimSpace(instruction) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "instruction is required"})
		return "", false
	}
	return instruction, true
}

// runCommand sends a command through the executor lock so it never races a
// pane capture.
func (s *Server) runCommand(ctx context.Context, fn func(context.Context) error) error {
	_, err := executor.RunLocked(ctx, s.exec, func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	instruction, ok := formInstruction(w, r)
	if !ok {
		return
	}

	err := s.runCommand(r.Context(), func(ctx context.Context) error {
		return s.commander.SendToShogun(ctx, instruction)
	})
	if err != nil {
		log.Printf("send command error: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type specialKeyRequest struct {
	Key *string `json:"key"`
}

func (s *Server) handleSpecialKey(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req specialKeyRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil || req.Key == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "body must be JSON with a \"key\" field"})
		return
	}
	key := *req.Key

	err = s.runCommand(r.Context(), func(ctx context.Context) error {
		return s.commander.SendSpecialKey(ctx, key)
	})
	switch {
	case errors.Is(err, tmux.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
	case err != nil:
		log.Printf("send key error: %v", err)
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "key": key})
	}
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if s.queue == nil {
		http.Error(w, "queue not available", http.StatusServiceUnavailable)
		return
	}
	instruction, ok := formInstruction(w, r)
	if !ok {
		return
	}

	id, err := s.queue.Add(instruction)
	if err != nil {
		log.Printf("queue command error: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued", "cmd_id": id})
}

type historyResponse struct {
	Commands []queue.Command `json:"commands"`
	BasePath string          `json:"base_path"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.queue == nil {
		http.Error(w, "queue not available", http.StatusServiceUnavailable)
		return
	}

	cmds, err := s.queue.History()
	if err != nil {
		writeError(w, err)
		return
	}
	// Newest first.
	for i, j := 0, len(cmds)-1; i < j; i, j = i+1, j-1 {
		cmds[i], cmds[j] = cmds[j], cmds[i]
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Commands: cmds,
		BasePath: r.Header.Get("X-Forwarded-Prefix"),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.dashboard == nil {
		http.Error(w, "dashboard not available", http.StatusServiceUnavailable)
		return
	}

	// File reads do not touch tmux, so they skip the capture lock.
	entry, err := executor.RunUnlocked(r.Context(), s.exec, s.dashboard.Snapshot)
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<pre>Error: %s</pre>", html.EscapeString(err.Error()))
		return
	}
	content, etag := entry.Content, entry.ETag
	if content == "" {
		content = dashboardNotFound
		etag = ""
	}
	if etag != "" {
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	if r.URL.Query().Get("format") == "raw" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, content)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<div id="dashboard-raw-data" style="display:none">%s</div><div id="dashboard-display"></div>`,
		html.EscapeString(content))
}

func (s *Server) handleMonitorClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.monitor.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleWSConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.config.WSConfig())
}

type statusResponse struct {
	Shogun      BroadcasterStatus  `json:"shogun"`
	Monitor     BroadcasterStatus  `json:"monitor"`
	Panes       int                `json:"panes"`
	Workers     int                `json:"workers"`
	InFlight    int                `json:"in_flight"`
	Process     *procstat.Snapshot `json:"process,omitempty"`
	UptimeSec   float64            `json:"uptime_sec"`
	BasePath    string             `json:"base_path"`
	AllowedKeys []string           `json:"allowed_keys"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	resp := statusResponse{
		Shogun:      s.shogun.Status(),
		Monitor:     s.monitor.Status(),
		Panes:       len(s.monitor.PaneIDs()),
		Workers:     s.exec.Workers(),
		InFlight:    s.exec.InFlight(),
		UptimeSec:   time.Since(s.started).Seconds(),
		BasePath:    r.Header.Get("X-Forwarded-Prefix"),
		AllowedKeys: tmux.AllowedKeys(),
	}
	if snap, err := procstat.Collect(r.Context()); err == nil {
		resp.Process = &snap
	} else {
		log.Printf("process stats error: %v", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

// NewHTTPServer builds the listening server for the configured address.
func NewHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
