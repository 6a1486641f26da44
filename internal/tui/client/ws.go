package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// WSClient manages one WebSocket connection to the panel server.
type WSClient struct {
	url string

	mu       sync.Mutex
	writeMu  sync.Mutex // serialises pings with the close frame
	conn     *websocket.Conn
	pingStop context.CancelFunc
	base     time.Duration
	max      time.Duration
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{url: url, base: reconnectBaseDelay, max: reconnectMaxDelay}
}

// SetBackoff changes the reconnect delay bounds. Non-positive values keep
// the current bound.
func (c *WSClient) SetBackoff(base, max time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if base > 0 {
		c.base = base
	}
	if max > 0 {
		c.max = max
	}
	if c.max < c.base {
		c.max = c.base
	}
}

func (c *WSClient) backoff() (time.Duration, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base, c.max
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the WebSocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSMonitorMsg delivers a multi-pane update.
type WSMonitorMsg struct{ Payload MonitorUpdate }

// WSStreamMsg delivers a single-pane update.
type WSStreamMsg struct{ Payload StreamUpdate }

// Listen returns a Bubble Tea command that dials until it connects or ctx is
// cancelled, doubling the delay between attempts up to the backoff max.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay, _ := c.backoff()
		for {
			if ctx.Err() != nil {
				return nil
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				log.Printf("ws dial error: %v (retry in %v)", err, delay)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				_, max := c.backoff()
				delay = min(delay*2, max)
				continue
			}

			c.mu.Lock()
			if c.pingStop != nil {
				c.pingStop()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.pingStop = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads the next payload from the
// connection. It should be started after receiving WSConnectedMsg and again
// after every payload.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.drop(conn)
				return WSDisconnectedMsg{Err: err}
			}
			if msg := decode(data); msg != nil {
				return msg
			}
		}
	}
}

// Close sends a close frame and drops the connection.
func (c *WSClient) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.drop(conn)
}

func (c *WSClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		if c.pingStop != nil {
			c.pingStop()
			c.pingStop = nil
		}
	}
	c.mu.Unlock()
	conn.Close()
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// decode maps a raw payload to its Bubble Tea message, or nil when the
// payload is not understood.
func decode(data []byte) tea.Msg {
	var head struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(data, &head) != nil {
		return nil
	}
	switch head.Type {
	case MsgMonitorUpdate:
		var p MonitorUpdate
		if json.Unmarshal(data, &p) == nil {
			return WSMonitorMsg{Payload: p}
		}
	case string(UpdateReset), string(UpdateDelta):
		var p StreamUpdate
		if json.Unmarshal(data, &p) == nil {
			return WSStreamMsg{Payload: p}
		}
	}
	return nil
}
