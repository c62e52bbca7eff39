package hub

import (
	"context"
	"sync"

	"github.com/Worldstreet-team/xtreme-livestream/pkg/log"
)

// Hub tracks connected chat clients grouped by stream. Message
// delivery is not routed through the hub; each client's view handles
// its own fan-out subscription. The hub exists for lifecycle and for
// viewer counting.
type Hub struct {
	clients    map[string]*Client
	streams    map[string]map[string]*Client
	register   chan *Client
	unregister chan *Client

	// OnCountChange fires after a stream's client count changes. Called
	// from the hub goroutine; implementations must not block.
	OnCountChange func(streamID string, count int)

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		streams:    make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if _, ok := h.streams[client.StreamID]; !ok {
				h.streams[client.StreamID] = make(map[string]*Client)
			}
			h.streams[client.StreamID][client.ID] = client
			count := len(h.streams[client.StreamID])
			h.mu.Unlock()

			log.L().Debug().
				Str(log.FieldClientID, client.ID).
				Str(log.FieldStreamID, client.StreamID).
				Int("viewers", count).
				Msg("client registered")
			h.notifyCount(client.StreamID, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client.ID)
			count := 0
			if streamClients, ok := h.streams[client.StreamID]; ok {
				delete(streamClients, client.ID)
				count = len(streamClients)
				if count == 0 {
					delete(h.streams, client.StreamID)
				}
			}
			h.mu.Unlock()

			client.closeSend()

			client.View.Close()
			log.L().Debug().
				Str(log.FieldClientID, client.ID).
				Str(log.FieldStreamID, client.StreamID).
				Int("viewers", count).
				Msg("client unregistered")
			h.notifyCount(client.StreamID, count)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// StreamClientCount returns the number of connected clients on a stream.
func (h *Hub) StreamClientCount(streamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[streamID])
}

func (h *Hub) notifyCount(streamID string, count int) {
	if h.OnCountChange != nil {
		h.OnCountChange(streamID, count)
	}
}
