package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Hub keeps the open websocket subscriptions and forwards every payload to
// the clients subscribed to its topic. A client that falls behind loses
// messages rather than blocking publishers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*subscriber]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

type subscriber struct {
	conn   *websocket.Conn
	topics map[string]bool
	send   chan []byte
}

// NewHub returns an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Send queues payload for every subscriber of topic.
func (h *Hub) Send(_ context.Context, topic string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		if !s.topics[topic] {
			continue
		}
		select {
		case s.send <- payload:
		default:
			h.log.Debug("websocket subscriber is slow; dropping message", zap.String("topic", topic))
		}
	}
	return nil
}

// Clients returns the number of open subscriptions.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes it to the topics named by
// the repeated "topic" query parameter (both topics when absent).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics := map[string]bool{}
	for _, t := range r.URL.Query()["topic"] {
		if !KnownTopic(t) {
			http.Error(w, "unknown topic", http.StatusBadRequest)
			return
		}
		topics[t] = true
	}
	if len(topics) == 0 {
		topics[TopicClubs] = true
		topics[TopicEvents] = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{conn: conn, topics: topics, send: make(chan []byte, sendBuffer)}
	h.add(s)

	go h.writeLoop(s)
	h.readLoop(s)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.send)
	}
	h.mu.Unlock()
}

// readLoop discards inbound frames until the peer goes away.
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		h.remove(s)
		s.conn.Close()
	}()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	for payload := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.conn.Close()
			return
		}
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		delete(h.clients, s)
		close(s.send)
	}
}
