package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrClientClosed = errors.New("ws: client closed")
	ErrClientSlow   = errors.New("ws: client send buffer full")
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	maxReadBytes   = 4096
)

// Subscriber receives encoded payloads from a broadcaster. Send must not
// block; a returned error marks the subscriber dead.
type Subscriber interface {
	Send(data []byte) error
	Close() error
}

// client is a Subscriber backed by a websocket connection. Writes happen on
// the writePump goroutine so a slow peer never stalls a broadcast pass.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
	dead   bool
}

func newClient(conn *websocket.Conn) *client {
	conn.SetReadLimit(maxReadBytes)
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer func() {
		c.markDead()
		c.conn.Close()
		close(c.done)
	}()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (c *client) markDead() {
	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()
}

// Send queues data for the peer.
func (c *client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.dead {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSlow
	}
}

// Close stops the writer and drops the connection. It is safe to call more
// than once and from any goroutine.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop discards incoming messages until the peer goes away and returns
// the error that ended the connection.
func (c *client) readLoop() error {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}
