package gateway

import (
	"sync"

	"github.com/SaeKazamatsuri/BEAVER-server/internal/observability"
	"github.com/rs/zerolog"
)

// Hub is the explicit room-membership table: connected clients and the set
// of clients bound to each room.
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	observability.EnsureRegistered()

	return &Hub{
		logger:  logger,
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Add registers a newly connected client (not yet in any room).
func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	observability.SetConnectedClients(len(h.clients))
}

// Remove unregisters a client and drops it from its room, if any.
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client.ID)
	if room := client.room; room != "" {
		if members, ok := h.rooms[room]; ok {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	observability.SetConnectedClients(len(h.clients))
}

// Join binds a client to a room.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.ID] = client
}

// Members returns a snapshot of the clients bound to room.
func (h *Hub) Members(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[room]))
	for _, client := range h.rooms[room] {
		members = append(members, client)
	}
	return members
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Broadcast queues a frame for every member of room and returns how many
// members it was queued for. Sends are independent and non-blocking; a
// member whose buffer is full is dropped so the rest of the room is never
// delayed. Already-closed members are skipped and not counted.
func (h *Hub) Broadcast(room string, frame []byte) int {
	members := h.Members(room)

	delivered := 0
	for _, client := range members {
		if client.enqueue(frame) {
			delivered++
			continue
		}
		if client.isClosed() {
			continue
		}
		h.logger.Warn().
			Str("clientId", client.ID).
			Str("room", room).
			Msg("Client send buffer full, dropping connection")
		client.close()
	}

	observability.RecordBroadcastDeliveries(delivered)
	return delivered
}
