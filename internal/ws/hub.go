package ws

import (
	"slices"
	"sync"
)

// Hub manages WebSocket clients and broadcasts drive changes to the clients
// watching the affected folders.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client
	clients map[string]*Client

	// topics maps topic to set of client IDs
	topics map[string]map[string]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		topics:  make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
}

// Unregister removes a client from the hub and its subscription.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(client.ID, client.Topic())
	delete(h.clients, client.ID)
}

// Subscribe moves a client to topic, leaving its previous topic.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old := client.Topic(); old != "" && old != topic {
		h.leave(client.ID, old)
	}

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]struct{})
	}

	h.topics[topic][client.ID] = struct{}{}
	client.SetTopic(topic)
}

// Unsubscribe removes a client from topic.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(client.ID, topic)

	if client.Topic() == topic {
		client.SetTopic("")
	}
}

func (h *Hub) leave(clientID, topic string) {
	if clients, ok := h.topics[topic]; ok {
		delete(clients, clientID)

		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Broadcast sends a message to every client subscribed to any of topics
// or to AllTopic. Each client receives the message at most once.
func (h *Hub) Broadcast(msg Message, topics ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[string]struct{})

	for _, topic := range slices.Concat(topics, []string{AllTopic}) {
		for clientID := range h.topics[topic] {
			if _, done := sent[clientID]; done {
				continue
			}

			client, ok := h.clients[clientID]
			if !ok {
				continue
			}

			sent[clientID] = struct{}{}

			// Send in goroutine to avoid blocking on slow clients
			go func(c *Client) {
				_ = c.Send(msg)
			}(client)
		}
	}
}

// ClientCount returns the number of clients subscribed to a topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
