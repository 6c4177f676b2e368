// Package websocket provides WebSocket connection management and message broadcasting.
package websocket

import (
	"log"
	"sort"
	"sync"
)

// outbound pairs a serialized message with its type so the hub can honor
// per-client topic subscriptions.
type outbound struct {
	msgType MessageType
	data    []byte
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to fan out
	broadcast chan outbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client access
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop.
// This should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected (total: %d)", len(h.clients))

		case message := <-h.broadcast:
			// Full lock: slow clients get dropped from the map mid-loop.
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(message.msgType) {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					// Client send buffer full, close connection
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent sends a typed message to the clients subscribed to it.
func (h *Hub) BroadcastEvent(msgType MessageType, message []byte) {
	select {
	case h.broadcast <- outbound{msgType: msgType, data: message}:
	default:
		log.Println("Broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	send chan []byte

	// topics the client subscribed to; empty means receive everything
	mu     sync.Mutex
	topics map[string]bool
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub) *Client {
	return &Client{
		hub:    hub,
		send:   make(chan []byte, 256),
		topics: make(map[string]bool),
	}
}

// Send returns the send channel for the client.
func (c *Client) Send() chan []byte {
	return c.send
}

// Subscribe adds topics to the client's subscription set and returns the
// full set after the change.
func (c *Client) Subscribe(topics []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		c.topics[topic] = true
	}
	return c.topicList()
}

// Unsubscribe removes topics from the client's subscription set and returns
// the full set after the change.
func (c *Client) Unsubscribe(topics []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.topics, topic)
	}
	return c.topicList()
}

func (c *Client) topicList() []string {
	list := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		list = append(list, topic)
	}
	sort.Strings(list)
	return list
}

// wants reports whether the client should receive a message of the given
// type. Clients with no subscriptions receive everything; a subscription
// matches the full type ("group.created") or its category ("group").
func (c *Client) wants(msgType MessageType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.topics) == 0 {
		return true
	}
	if c.topics[string(msgType)] {
		return true
	}
	for i, r := range msgType {
		if r == '.' {
			return c.topics[string(msgType[:i])]
		}
	}
	return false
}
