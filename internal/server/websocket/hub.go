// Package websocket carries reconciliation updates to review clients
// over persistent WebSocket connections.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// sendBuffer is the per-client outbound queue; a client that falls this
// far behind is disconnected rather than allowed to stall the hub.
const sendBuffer = 256

// Message is one update delivered to WebSocket clients.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Hub tracks connected clients and fans broadcast messages out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	outbound chan Message
	joining  chan *Client
	leaving  chan *Client
	logger   *zerolog.Logger
}

// NewHub creates a hub. Run must be started before clients register.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		outbound: make(chan Message, sendBuffer),
		joining:  make(chan *Client),
		leaving:  make(chan *Client),
		logger:   logger,
	}
}

// Run executes the hub loop until the context is cancelled, then closes
// every client's send queue. Call it in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info().Msg("WebSocket hub shut down")
			return

		case client := <-h.joining:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", total).
				Msg("WebSocket client connected")

		case client := <-h.leaving:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", total).
				Msg("WebSocket client disconnected")

		case message := <-h.outbound:
			h.deliver(message)
		}
	}
}

// deliver pushes a message to every client, dropping clients whose
// queues are full.
func (h *Hub) deliver(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Register hands a new client to the hub loop.
func (h *Hub) Register(client *Client) {
	h.joining <- client
}

// Broadcast queues a message for every client without blocking.
func (h *Hub) Broadcast(message Message) {
	select {
	case h.outbound <- message:
	default:
		h.logger.Warn().Msg("Broadcast channel full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one WebSocket connection managed by the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient wraps an upgraded connection for hub management.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
}

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait bounds how long the peer may go silent; pingPeriod must
	// stay under it so a healthy peer always answers in time.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; clients only listen, so
	// anything large is a misbehaving peer.
	maxMessageSize = 512
)

// ReadPump drains the connection until it errors, keeping the read
// deadline fresh from pongs, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leaving <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}
	}
}

// WritePump relays queued messages to the peer and pings it on an
// interval. Returns when the hub closes the queue or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.hub.logger.Error().Err(err).Msg("Failed to marshal WebSocket message")
				continue
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
