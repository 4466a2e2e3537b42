package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const (
	MessageSnapshot     = "snapshot"
	MessageNotification = "notification"

	clientSendBuffer = 16
	writeWait        = 5 * time.Second
)

var (
	_ ports.StateObserver = (*Hub)(nil)
	_ ports.Notifier      = (*Hub)(nil)
)

// WSMessage is the envelope for every message pushed to browsers.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatePayload is the snapshot together with its classified rows.
type StatePayload struct {
	domain.Snapshot
	Rows []domain.TrafficRow `json:"rows"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans committed snapshots and notifications out to websocket clients.
// Each client has its own writer goroutine; a client whose buffer fills up
// is dropped so a slow browser never stalls the poller.
type Hub struct {
	upgrader   websocket.Upgrader
	classifier domain.Classifier
	current    func() domain.Snapshot

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. current, if set, supplies the snapshot sent to a
// client right after it connects.
func NewHub(classifier domain.Classifier, current func() domain.Snapshot) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		classifier: classifier,
		current:    current,
		clients:    map[*client]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	if h.current != nil {
		if data, err := h.encodeSnapshot(h.current()); err == nil {
			c.send <- data
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("remote", r.RemoteAddr).Msg("Websocket client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// OnSnapshot broadcasts s with its classified rows.
func (h *Hub) OnSnapshot(s domain.Snapshot) {
	data, err := h.encodeSnapshot(s)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode snapshot for websocket")
		return
	}
	h.broadcast(data)
}

func (h *Hub) OnNotification(n *domain.Notification) {
	data, err := json.Marshal(WSMessage{Type: MessageNotification, Payload: n})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode notification for websocket")
		return
	}
	h.broadcast(data)
}

func (h *Hub) encodeSnapshot(s domain.Snapshot) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:    MessageSnapshot,
		Payload: StatePayload{Snapshot: s, Rows: h.classifier.ClassifyAll(s)},
	})
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Debug().Msg("Dropping slow websocket client")
		h.remove(c)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer h.remove(c)
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
