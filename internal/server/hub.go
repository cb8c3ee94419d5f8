package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dshills/livetex/internal/artifact"
	"github.com/dshills/livetex/internal/lint"
	"github.com/dshills/livetex/internal/logging"
	"github.com/dshills/livetex/internal/preview"
)

// Message types pushed to viewers.
const (
	TypeArtifact    = "artifact"
	TypeDiagnostics = "diagnostics"
	TypeError       = "error"
)

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxReadSize    = 512
)

// Message is a change notification sent over the events socket. Viewers
// treat artifact messages as a hint and re-fetch /artifact.
type Message struct {
	Type        string    `json:"type"`
	Seq         uint64    `json:"seq,omitempty"`
	ArtifactID  string    `json:"artifact_id,omitempty"`
	Size        int64     `json:"size,omitempty"`
	Diagnostics *lint.Set `json:"diagnostics,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Message     string    `json:"message,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   string    `json:"timestamp"`
}

func artifactMessage(h *artifact.Handle) Message {
	if h == nil {
		return Message{Type: TypeArtifact}
	}
	return Message{
		Type:       TypeArtifact,
		Seq:        h.Seq,
		ArtifactID: h.ID.String(),
		Size:       h.Size(),
	}
}

func diagnosticsMessage(set *lint.Set) Message {
	return Message{Type: TypeDiagnostics, Seq: set.Seq, Diagnostics: set}
}

// client is one connected viewer.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected viewers and broadcasts messages to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	stop       chan struct{}
	stopOnce   sync.Once

	logger *logging.Logger
}

// NewHub creates a hub. Call Run to start delivering messages.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		stop:       make(chan struct{}),
		logger:     logging.OrNull(logger).WithComponent("hub"),
	}
}

// Run delivers registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("viewer connected (%d)", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("viewer disconnected (%d)", n)

		case data := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow viewer; drop it rather than block the others.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close stops Run and disconnects all viewers.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every connected viewer. It never blocks; when
// the queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := encode(msg)
	if err != nil {
		h.logger.Error("encode %s message: %v", msg.Type, err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping %s message", msg.Type)
	}
}

// Notify implements preview.Notifier by broadcasting an error message.
func (h *Hub) Notify(n preview.Notification) {
	msg := Message{
		Type:    TypeError,
		Seq:     n.Seq,
		Kind:    n.Kind.String(),
		Message: n.Message,
	}
	if n.Err != nil {
		msg.Detail = n.Err.Error()
	}
	h.Broadcast(msg)
}

// join registers c and reports whether the hub is still running.
func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

// readPump discards viewer input and detects disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("viewer closed unexpectedly: %v", err)
			}
			return
		}
	}
}

// writePump sends queued messages, one per frame, and keeps the
// connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
