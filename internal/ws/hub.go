package ws

import (
	"sync"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
)

// Hub manages WebSocket clients and broadcasts new comments.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client
	clients map[string]*Client

	// nodes maps node ID to set of client IDs
	nodes map[string]map[string]struct{}

	// sends tracks in-flight broadcast goroutines
	sends sync.WaitGroup
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		nodes:   make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
}

// Unregister removes a client from the hub and its node subscription.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client.NodeID(), client.ID)
	delete(h.clients, client.ID)
}

// Subscribe moves a client onto a node's broadcast list.
func (h *Hub) Subscribe(client *Client, nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old := client.NodeID(); old != "" && old != nodeID {
		h.removeLocked(old, client.ID)
	}

	if h.nodes[nodeID] == nil {
		h.nodes[nodeID] = make(map[string]struct{})
	}

	h.nodes[nodeID][client.ID] = struct{}{}
	client.SetNodeID(nodeID)
}

// Unsubscribe removes a client from a node's broadcast list.
func (h *Hub) Unsubscribe(client *Client, nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(nodeID, client.ID)

	if client.NodeID() == nodeID {
		client.SetNodeID("")
	}
}

func (h *Hub) removeLocked(nodeID, clientID string) {
	if nodeID == "" {
		return
	}

	if clients, ok := h.nodes[nodeID]; ok {
		delete(clients, clientID)

		if len(clients) == 0 {
			delete(h.nodes, nodeID)
		}
	}
}

// Broadcast sends a message to all clients subscribed to a node,
// except the one identified by excludeClientID.
func (h *Hub) Broadcast(nodeID string, msg Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID := range h.nodes[nodeID] {
		if clientID == excludeClientID {
			continue
		}

		client, ok := h.clients[clientID]
		if !ok {
			continue
		}

		h.sends.Add(1)

		// Send in goroutine to avoid blocking on slow clients
		go func(c *Client) {
			defer h.sends.Done()

			_ = c.Send(msg)
		}(client)
	}
}

// Publish broadcasts a comment.created message to the node's subscribers.
func (h *Hub) Publish(nodeID string, c comment.Comment) {
	h.Broadcast(nodeID, Message{
		Type: MessageTypeCommentCreated,
		Payload: CommentPayload{
			NodeID:  nodeID,
			Comment: c,
		},
	}, "")
}

// CloseAll disconnects every client and drops all subscriptions.
// It returns the number of clients that were connected.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.nodes = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}

	return len(clients)
}

// Flush waits for in-flight broadcasts to finish.
func (h *Hub) Flush() {
	h.sends.Wait()
}

// ClientCount returns the number of clients subscribed to a node.
func (h *Hub) ClientCount(nodeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.nodes[nodeID])
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
