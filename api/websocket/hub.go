package websocket

import (
	"sync"

	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/pkg/config"
)

const defaultBroadcastBuffer = 256

// Hub fans events out to connected WebSocket clients. Clients may subscribe
// to a single service and then only receive that service's events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	settings   Settings
}

type Settings struct {
	WriteTimeout    int64
	PingInterval    int64
	PongTimeout     int64
	MaxMessageSize  int64
	ClientBuffer    int
	BroadcastBuffer int
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	broadcastBuffer := defaultBroadcastBuffer
	settings := Settings{ClientBuffer: 64}
	if cfg != nil {
		if cfg.BroadcastBuffer > 0 {
			broadcastBuffer = cfg.BroadcastBuffer
		}
		if cfg.ClientBuffer > 0 {
			settings.ClientBuffer = cfg.ClientBuffer
		}
		settings.MaxMessageSize = cfg.MaxMessageSize
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		settings:   settings,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Infof("WebSocket client connected (total: %d)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Infof("WebSocket client disconnected (total: %d)", h.ClientCount())

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

// BroadcastToService delivers only to clients subscribed to the service.
func (h *Hub) BroadcastToService(serviceName string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.serviceName == serviceName {
			select {
			case client.send <- message:
			default:
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
