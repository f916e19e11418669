// Package monitoring pushes live service status to websocket clients. It is
// additive to the poll-based health endpoints: the hub only reads the loaded
// model snapshot, never changes it.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// StatusHub fans status messages out to connected websocket clients.
type StatusHub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	log        *zap.Logger

	mu        sync.RWMutex
	connected int
}

func NewStatusHub(log *zap.Logger) *StatusHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusHub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Run owns the client set until the context is cancelled.
func (h *StatusHub) Run(ctx context.Context) {
	defer h.log.Info("status hub stopped")

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
				delete(h.clients, c)
			}
			h.setConnected(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.setConnected(len(h.clients))
			h.log.Info("status client connected", zap.Int("total", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.setConnected(len(h.clients))
			h.log.Info("status client disconnected", zap.Int("total", len(h.clients)))

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client, drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.setConnected(len(h.clients))
		}
	}
}

// BroadcastJSON encodes payload once and queues it for every client.
func (h *StatusHub) BroadcastJSON(payload interface{}) {
	message, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to encode status message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("status broadcast queue full, dropping message")
	}
}

// ConnectedClients reports the current client count.
func (h *StatusHub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connected
}

func (h *StatusHub) setConnected(n int) {
	h.mu.Lock()
	h.connected = n
	h.mu.Unlock()
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *StatusHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *StatusHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; the stream is one-way. It exists to
// notice closed connections and honor pongs.
func (h *StatusHub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
