package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub manages WebSocket connections and group subscriptions.
type Hub struct {
	clients    map[*Client]bool
	groups     map[string]map[*Client]bool // group -> clients
	register   chan *Client
	unregister chan *Client
	joined     chan string
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joined:     make(chan string, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes hub events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("connID", client.connID))

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		// Remove from all groups
		for group := range client.groups {
			if clients, ok := h.groups[group]; ok {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.groups, group)
				}
			}
		}
		client.close()
	}
	h.mu.Unlock()
	h.logger.Debug("client unregistered", zap.String("connID", client.connID))
}

// drop asks Run to unregister the client unless the hub has stopped.
func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// shutdown gracefully closes all client connections.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)

	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
	h.groups = make(map[string]map[*Client]bool)
}

// JoinGroup adds a client to a group.
func (h *Hub) JoinGroup(client *Client, group string) {
	h.mu.Lock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true
	client.groups[group] = true
	h.mu.Unlock()

	h.logger.Debug("client joined group",
		zap.String("connID", client.connID),
		zap.String("group", group),
	)

	// Let the streamer push the current chain without waiting for a tick
	select {
	case h.joined <- group:
	default:
	}
}

// LeaveGroup removes a client from a group.
func (h *Hub) LeaveGroup(client *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.groups[group]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groups, group)
		}
	}
	delete(client.groups, group)

	h.logger.Debug("client left group",
		zap.String("connID", client.connID),
		zap.String("group", group),
	)
}

// Joined signals groups that just gained a subscriber.
func (h *Hub) Joined() <-chan string {
	return h.joined
}

// GetActiveGroups returns all groups with at least one subscriber.
func (h *Hub) GetActiveGroups() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var groups []string
	for group, clients := range h.groups {
		if len(clients) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastData sends a chain update to all clients in a group. Each client
// receives the form matching its negotiated protocol.
func (h *Hub) BroadcastData(group string, jsonMsg, binaryMsg []byte) {
	h.mu.RLock()
	clients, ok := h.groups[group]
	if !ok {
		h.mu.RUnlock()
		return
	}
	// Copy clients to avoid holding lock during send
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		f := frame{data: jsonMsg}
		if client.protocol == protocolProtobuf {
			f = frame{binary: true, data: binaryMsg}
		}
		if !client.trySend(f) {
			// Buffer full, schedule disconnect
			go h.drop(client)
		}
	}
}
