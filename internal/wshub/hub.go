package wshub

import (
	"bugfind/internal/gamedata"
	"bugfind/internal/logger"
	"bugfind/internal/metrics"
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type       string `json:"t"`
	TargetID   string `json:"target,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type  string             `json:"t"`
	View  *gamedata.GameData `json:"view,omitempty"`
	Error string             `json:"error,omitempty"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub fans the participant's views out to every local connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	last    []byte
	log     zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     logger.New("wshub"),
	}
}

// Register adds a client and queues the latest view for it.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		metrics.ViewClients.Inc()
	}
	h.clients[c.ID] = c
	if h.last != nil {
		select {
		case c.Send <- h.last:
		default:
		}
	}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	close(c.Send)
	delete(h.clients, id)
	metrics.ViewClients.Dec()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishView records v as the latest view and sends it to every client.
func (h *Hub) PublishView(v gamedata.GameData) {
	data, err := json.Marshal(ServerMessage{Type: "view", View: &v})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal view")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	h.sendLocked(data)
}

// SendError reports a failed action to the client with id only.
func (h *Hub) SendError(id string, err error) {
	data, mErr := json.Marshal(ServerMessage{Type: "error", Error: err.Error()})
	if mErr != nil {
		h.log.Error().Err(mErr).Msg("marshal error")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[id]; ok {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// Non-blocking: a client with a full channel misses the message.
func (h *Hub) sendLocked(data []byte) {
	for id, c := range h.clients {
		select {
		case c.Send <- data:
		default:
			h.log.Debug().Str("client", id).Msg("send buffer full, dropping view")
		}
	}
}
