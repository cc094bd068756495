package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"capacity-planner-api/internal/allocation"
)

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active user connections and fans committed ledger events
// out to them.
type Hub struct {
	mu              sync.RWMutex
	userIdToClients map[string]map[Client]struct{}
}

var hubInstance *Hub
var once sync.Once

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{userIdToClients: make(map[string]map[Client]struct{})}
}

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub()
	})
	return hubInstance
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIdToClients[userID]; !ok {
		h.userIdToClients[userID] = make(map[Client]struct{})
	}
	h.userIdToClients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userIdToClients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userIdToClients, userID)
		}
	}
}

// BroadcastAll sends a message to every connected client.
func (h *Hub) BroadcastAll(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, clients := range h.userIdToClients {
		for c := range clients {
			// a failed write is cleaned up by the handler's reader loop
			if c.Send(message) {
				sent++
			}
		}
	}
	return sent
}

// Clients returns the number of registered connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.userIdToClients {
		n += len(clients)
	}
	return n
}

// Publish implements allocation.Notifier. Every principal sees every
// event; the payload carries only ids.
func (h *Hub) Publish(evt allocation.Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		log.Printf("realtime: encode %s: %v", evt.Type, err)
		return
	}
	h.BroadcastAll(msg)
}

var _ allocation.Notifier = (*Hub)(nil)
