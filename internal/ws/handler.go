package ws

import (
	"errors"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

// Subscribable is the part of a broadcaster a connection handler needs.
type Subscribable interface {
	Subscribe(s Subscriber) error
	Unsubscribe(s Subscriber)
}

// Handler upgrades HTTP requests to websockets and keeps each connection
// subscribed to one broadcaster until the peer goes away.
type Handler struct {
	name     string
	target   Subscribable
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. checkOrigin may be nil to accept any origin.
func NewHandler(name string, target Subscribable, checkOrigin func(*http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		name:     name,
		target:   target,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("%s: client connected: %s", h.name, r.RemoteAddr)
	c := newClient(conn)
	h.handle(c)
	log.Printf("%s: client disconnected: %s", h.name, r.RemoteAddr)
}

// handle subscribes c and blocks reading keep-alive messages until the
// connection ends. c is always unsubscribed and closed on return.
func (h *Handler) handle(c *client) {
	defer c.Close()

	if err := h.target.Subscribe(c); err != nil {
		log.Printf("%s: subscribe failed: %v", h.name, err)
		return
	}
	defer h.target.Unsubscribe(c)

	if err := c.readLoop(); err != nil && !isExpectedClose(err) {
		log.Printf("%s: read error: %v", h.name, err)
	}
}

// isExpectedClose reports whether err is an ordinary end of connection.
func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
