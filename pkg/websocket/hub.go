package websocket

import (
	"sync"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/logger"
)

// MessageHandler is a function that handles incoming messages
type MessageHandler func(*Client, *Message)

// Hub maintains the set of active clients and routes outbound messages.
// Dispatch uses it to push offers to connected drivers; drivers without a
// connection fall back to polling their pending offers.
type Hub struct {
	// Registered clients by user ID
	clients map[int64]*Client

	// Clients grouped by trip ID (rider and assigned driver)
	trips map[int64]map[int64]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Broadcast messages to specific targets
	Broadcast chan *BroadcastMessage

	// Message handlers by message type
	handlers map[string]MessageHandler

	mu sync.RWMutex
}

// BroadcastMessage represents a message to be broadcast
type BroadcastMessage struct {
	Target   string // "user", "trip", "all"
	TargetID int64
	Message  *Message
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]*Client),
		trips:      make(map[int64]map[int64]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *BroadcastMessage, 256),
		handlers:   make(map[string]MessageHandler),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	logger.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case broadcast := <-h.Broadcast:
			h.broadcastMessage(broadcast)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A reconnect replaces the previous connection
	if existingClient, ok := h.clients[client.ID]; ok {
		close(existingClient.Send)
	}

	h.clients[client.ID] = client
	logger.Debug("websocket client registered",
		zap.Int64("user_id", client.ID),
		zap.String("role", client.Role),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)

		tripID := client.GetTrip()
		if tripID != 0 {
			if trip, ok := h.trips[tripID]; ok {
				delete(trip, client.ID)
				if len(trip) == 0 {
					delete(h.trips, tripID)
				}
			}
		}

		close(client.Send)
		logger.Debug("websocket client unregistered", zap.Int64("user_id", client.ID))
	}
}

func (h *Hub) broadcastMessage(broadcast *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch broadcast.Target {
	case "user":
		if client, ok := h.clients[broadcast.TargetID]; ok {
			client.SendMessage(broadcast.Message)
		}

	case "trip":
		if trip, ok := h.trips[broadcast.TargetID]; ok {
			for _, client := range trip {
				client.SendMessage(broadcast.Message)
			}
		}

	case "all":
		for _, client := range h.clients {
			client.SendMessage(broadcast.Message)
		}
	}
}

// HandleMessage routes incoming messages to appropriate handlers
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if exists {
		handler(client, msg)
	} else {
		logger.Debug("no handler for websocket message type", zap.String("type", msg.Type))
	}
}

// RegisterHandler registers a message handler for a specific type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// AddClientToTrip adds a client to a trip room
func (h *Hub) AddClientToTrip(clientID, tripID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}

	if _, ok := h.trips[tripID]; !ok {
		h.trips[tripID] = make(map[int64]*Client)
	}

	h.trips[tripID][clientID] = client
	client.SetTrip(tripID)
}

// RemoveClientFromTrip removes a client from a trip room
func (h *Hub) RemoveClientFromTrip(clientID, tripID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if trip, ok := h.trips[tripID]; ok {
		delete(trip, clientID)
		if len(trip) == 0 {
			delete(h.trips, tripID)
		}
	}

	if client, ok := h.clients[clientID]; ok {
		client.SetTrip(0)
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID int64, msg *Message) {
	h.Broadcast <- &BroadcastMessage{
		Target:   "user",
		TargetID: userID,
		Message:  msg,
	}
}

// SendToTrip sends a message to all clients in a trip room
func (h *Hub) SendToTrip(tripID int64, msg *Message) {
	h.Broadcast <- &BroadcastMessage{
		Target:   "trip",
		TargetID: tripID,
		Message:  msg,
	}
}

// IsConnected reports whether a user currently holds a connection
func (h *Hub) IsConnected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
