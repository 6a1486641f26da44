package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shogun-panel/panel/internal/tui/client"
	"github.com/shogun-panel/panel/internal/tui/theme"
	"github.com/shogun-panel/panel/internal/tui/views/dashboard"
	"github.com/shogun-panel/panel/internal/tui/views/eventlog"
	"github.com/shogun-panel/panel/internal/tui/views/panes"
	"github.com/shogun-panel/panel/internal/tui/views/status"
)

const (
	listWidth      = 24
	maxPaneLines   = 2000
	statusInterval = 5 * time.Second
	chromeHeight   = 7 // status bar, banner, input, event and help lines
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDashboard
	OverlayEvents
)

// API is the subset of the HTTP client the model calls.
type API interface {
	GetWSConfig() (*client.WSConfig, error)
	GetStatus() (*client.Status, error)
	GetDashboard() (string, error)
	SendCommand(instruction string) error
	QueueCommand(instruction string) (string, error)
	SendKey(key string) error
	ClearMonitor() error
}

type wsConfigMsg struct {
	cfg *client.WSConfig
	err error
}

type statusMsg struct {
	st  *client.Status
	err error
}

type statusTickMsg struct{}

type dashboardMsg struct {
	md  string
	err error
}

// actionMsg reports the outcome of an operator action.
type actionMsg struct {
	what string
	err  error
}

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	api    API
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	// Pane state mirrored from /ws/monitor.
	panes    map[string][]string
	unseen   map[string]bool
	order    []string
	selected int

	output    viewport.Model
	input     textinput.Model
	typing    bool
	queueMode bool
	overlay   Overlay

	statusBar status.Model
	dashboard dashboard.Model
	events    eventlog.Model

	connected bool
}

// New creates the root model.
func New(ws *client.WSClient, api API) Model {
	ctx, cancel := context.WithCancel(context.Background())

	in := textinput.New()
	in.Placeholder = "orders for the shogun"
	in.Prompt = "> "
	in.CharLimit = 4000

	return Model{
		ws:        ws,
		api:       api,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		panes:     make(map[string][]string),
		unseen:    make(map[string]bool),
		output:    viewport.New(40, 10),
		input:     in,
		statusBar: status.New(),
		dashboard: dashboard.New(),
		events:    eventlog.New(),
	}
}

// Init fetches the reconnect tuning and starts the WebSocket connection.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchWSConfig(), m.listen(), m.fetchStatus())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.layout()
		m.dashboard.Resize(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		// The server resends every pane as a reset after subscribing.
		m.panes = make(map[string][]string)
		m.unseen = make(map[string]bool)
		m.rebuildOrder()
		m.refreshOutput(true)
		m.events.Add(eventlog.KindWS, "connected")
		return m, m.readNext()

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.events.Add(eventlog.KindWS, "disconnected: %v", msg.Err)
		}
		return m, m.listen()

	case client.WSMonitorMsg:
		m.applyUpdates(msg.Payload.Updates)
		return m, m.readNext()

	case client.WSStreamMsg:
		return m, m.readNext()

	case wsConfigMsg:
		if msg.err != nil {
			m.events.Add(eventlog.KindError, "ws-config: %v", msg.err)
			return m, nil
		}
		if m.ws != nil {
			m.ws.SetBackoff(msg.cfg.Monitor.Base(), msg.cfg.Monitor.Max())
		}
		m.events.Add(eventlog.KindWS, "reconnect backoff %v..%v", msg.cfg.Monitor.Base(), msg.cfg.Monitor.Max())
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.events.Add(eventlog.KindError, "status: %v", msg.err)
		} else {
			m.statusBar.Server = msg.st
			for _, b := range []client.BroadcasterStatus{msg.st.Shogun, msg.st.Monitor} {
				if b.Health.Status != "" && b.Health.Status != client.StatusHealthy {
					m.events.Add(eventlog.KindHealth, "%s %s: %s", b.Name, b.Health.Status, b.Health.LastError)
				}
			}
		}
		return m, tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })

	case statusTickMsg:
		return m, m.fetchStatus()

	case dashboardMsg:
		if msg.err != nil {
			m.dashboard.SetError(msg.err)
		} else {
			m.dashboard.SetMarkdown(msg.md, m.width)
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.events.Add(eventlog.KindError, "%s: %v", msg.what, msg.err)
		} else {
			m.events.Add(eventlog.KindCommand, "%s", msg.what)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.stopTyping()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			text := m.input.Value()
			queue := m.queueMode
			m.stopTyping()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			if queue {
				return m, m.queueCommand(text)
			}
			return m, m.sendCommand(text)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case m.overlay == OverlayEvents && key.Matches(msg, m.keys.Up):
			m.events.ScrollUp(1)
		case m.overlay == OverlayEvents && key.Matches(msg, m.keys.Down):
			m.events.ScrollDown(1)
		case m.overlay == OverlayDashboard && key.Matches(msg, m.keys.Refresh):
			return m, m.fetchDashboard()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Down):
		if len(m.order) > 0 {
			m.selected = (m.selected + 1) % len(m.order)
			m.refreshOutput(true)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.order) > 0 {
			m.selected = (m.selected - 1 + len(m.order)) % len(m.order)
			m.refreshOutput(true)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Input), key.Matches(msg, m.keys.Queue):
		m.typing = true
		m.queueMode = key.Matches(msg, m.keys.Queue)
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Clear):
		for id := range m.panes {
			m.panes[id] = nil
		}
		m.refreshOutput(true)
		return m, m.clearMonitor()

	case key.Matches(msg, m.keys.Dashboard):
		m.overlay = OverlayDashboard
		return m, m.fetchDashboard()

	case key.Matches(msg, m.keys.Events):
		m.overlay = OverlayEvents
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchStatus()

	case key.Matches(msg, m.keys.Escape):
		return m, m.sendKey("Escape")
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	if m.ws != nil {
		m.ws.Close()
	}
	return m, tea.Quit
}

func (m *Model) stopTyping() {
	m.typing = false
	m.queueMode = false
	m.input.Reset()
	m.input.Blur()
}

// applyUpdates mirrors one monitor_update into the pane state.
func (m *Model) applyUpdates(updates map[string]client.PaneUpdate) {
	current := m.selectedID()
	for id, u := range updates {
		m.panes[id] = client.Apply(m.panes[id], u, maxPaneLines)
		if id != current {
			m.unseen[id] = true
		}
	}
	m.rebuildOrder()
	if current == "" {
		m.selected = 0
	} else {
		for i, id := range m.order {
			if id == current {
				m.selected = i
			}
		}
	}
	m.refreshOutput(current != m.selectedID())
}

func (m *Model) rebuildOrder() {
	m.order = make([]string, 0, len(m.panes))
	for id := range m.panes {
		m.order = append(m.order, id)
	}
	sort.Strings(m.order)
	if m.selected >= len(m.order) {
		m.selected = max(len(m.order)-1, 0)
	}
}

func (m Model) selectedID() string {
	if m.selected < len(m.order) {
		return m.order[m.selected]
	}
	return ""
}

// refreshOutput loads the selected pane into the viewport. The view follows
// new output when it was already at the bottom or when jump is set.
func (m *Model) refreshOutput(jump bool) {
	id := m.selectedID()
	delete(m.unseen, id)
	follow := jump || m.output.AtBottom()
	m.output.SetContent(strings.Join(m.panes[id], "\n"))
	if follow {
		m.output.GotoBottom()
	}
}

func (m *Model) layout() {
	m.output.Width = max(m.width-listWidth-3, 10)
	m.output.Height = max(m.height-chromeHeight, 3)
	m.input.Width = max(m.width-4, 10)
	m.refreshOutput(false)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.statusBar.View()}
	if !m.connected {
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).
			Render("  DISCONNECTED  Reconnecting..."))
	}

	switch m.overlay {
	case OverlayDashboard:
		sections = append(sections, m.dashboard.View(m.width, m.height-chromeHeight+2))
	case OverlayEvents:
		sections = append(sections, m.events.View(m.width, m.height-chromeHeight+2))
	default:
		items := make([]panes.Item, 0, len(m.order))
		for _, id := range m.order {
			items = append(items, panes.Item{ID: id, Lines: len(m.panes[id]), Unseen: m.unseen[id]})
		}
		body := lipgloss.JoinHorizontal(lipgloss.Top,
			panes.View(items, m.selected, listWidth, m.output.Height),
			lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).
				BorderForeground(theme.ColorBorder).Render(m.output.View()),
		)
		sections = append(sections, body)
	}

	if m.typing {
		label := "command"
		if m.queueMode {
			label = "queue"
		}
		sections = append(sections, theme.StyleDimmed.Render("  "+label+":"), m.input.View())
	}
	if e, ok := m.events.Last(); ok {
		sections = append(sections, theme.StyleDimmed.Render("  "+e.Time.Format("15:04:05")+" "+e.Message))
	}
	sections = append(sections, theme.StyleDimmed.Render(
		"  j/k:pane  i:command  Q:queue  esc:Escape  c:clear  d:dashboard  l:events  q:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// --- commands ---

func (m Model) listen() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.Listen(m.ctx)
}

func (m Model) readNext() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.ReadLoop(m.ctx)
}

func (m Model) fetchWSConfig() tea.Cmd {
	api := m.api
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, err := api.GetWSConfig()
		return wsConfigMsg{cfg: cfg, err: err}
	}
}

func (m Model) fetchStatus() tea.Cmd {
	api := m.api
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		st, err := api.GetStatus()
		return statusMsg{st: st, err: err}
	}
}

func (m Model) fetchDashboard() tea.Cmd {
	api := m.api
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		md, err := api.GetDashboard()
		return dashboardMsg{md: md, err: err}
	}
}

func (m Model) sendCommand(text string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		return actionMsg{what: "sent command", err: api.SendCommand(text)}
	}
}

func (m Model) queueCommand(text string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		id, err := api.QueueCommand(text)
		return actionMsg{what: "queued " + id, err: err}
	}
}

func (m Model) sendKey(name string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		return actionMsg{what: "sent key " + name, err: api.SendKey(name)}
	}
}

func (m Model) clearMonitor() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		return actionMsg{what: "cleared monitor", err: api.ClearMonitor()}
	}
}
