// Package hub fans reconciliation events out to WebSocket observers.
package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one observable occurrence: an alert dispatch or a poll cycle
// boundary.
type Event struct {
	Type    string `json:"type"` // alert.dispatched, poll.completed
	Rule    string `json:"rule,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type Hub struct {
	mu       sync.Mutex
	conns    map[*conn]struct{}
	upgrader websocket.Upgrader
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte
}

func New(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Hub{
		conns: make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser clients.
					return true
				}
				if allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				host := u.Hostname()
				return host == "localhost" || host == "127.0.0.1" || host == "::1"
			},
		},
	}
}

// Broadcast delivers evt to every connected observer. Slow observers are
// dropped rather than blocking the caller.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("hub: marshal: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- data:
		default:
			delete(h.conns, c)
			close(c.send)
		}
	}
}

// HandleConnect upgrades an HTTP request into an event stream subscription.
func (h *Hub) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade: %v", err)
		return
	}

	c := &conn{ws: ws, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.readLoop(h)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
}

func (c *conn) writeLoop() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames; the stream is one-way. It exists to
// notice closed connections.
func (c *conn) readLoop(h *Hub) {
	defer func() {
		h.remove(c)
		c.ws.Close()
	}()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
