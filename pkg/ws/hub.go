package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/ratelimit"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 4096

	// Per-connection send throttle: burst of 50 frames, 25/s sustained.
	sendBurst  = 50.0
	sendPerSec = 25.0
)

// Hub fans broadcast frames out to all connected WebSocket subscribers.
// Slow or throttled clients drop frames rather than stall the hub.
type Hub struct {
	logger   *applogger.Logger
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	clients   map[*client]struct{}
	broadcast chan []byte
	done      chan struct{}
	once      sync.Once
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates the hub and starts its broadcast loop.
func NewHub(logger *applogger.Logger) *Hub {
	h := &Hub{
		logger:  logger,
		limiter: ratelimit.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[*client]struct{}),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !h.limiter.Allow(c.id, sendBurst, sendPerSec) {
					continue // throttled, drop frame for this client
				}
				select {
				case c.send <- msg:
				default:
					// client too slow, drop frame
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a frame for all subscribers. Returns an error only when
// the hub buffer is full; delivery to individual clients is best effort.
func (h *Hub) Broadcast(msg []byte) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return fmt.Errorf("hub closed")
	default:
		return fmt.Errorf("broadcast buffer full")
	}
}

// ServeHTTP upgrades the request and runs the client pumps until disconnect.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("ws upgrade: %w", err)
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected",
		applogger.String("client_id", c.id),
		applogger.Int("clients", count))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Subscribers are receive-only; inbound frames just keep the
		// connection alive.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Info("ws client disconnected",
			applogger.String("client_id", c.id),
			applogger.Int("clients", len(h.clients)))
	}
	h.mu.Unlock()
	h.limiter.Forget(c.id)
	_ = c.conn.Close()
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
			_ = c.conn.Close()
		}
		h.mu.Unlock()
	})
}
