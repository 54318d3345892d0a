package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Message types pushed to clients
const (
	MessageTypeOffer      = "dispatch_offer"
	MessageTypeTripStatus = "trip_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	TripID    int64                  `json:"trip_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID     int64           // User ID
	TripID int64           // Current trip ID, zero when not on a trip
	Role   string          // "rider" or "driver"
	Conn   *websocket.Conn // WebSocket connection
	Send   chan *Message   // Buffered channel of outbound messages
	Hub    *Hub            // Reference to hub
	mu     sync.RWMutex
}

// NewClient creates a new WebSocket client
func NewClient(id int64, conn *websocket.Conn, hub *Hub, role string) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		Send: make(chan *Message, 256),
		Hub:  hub,
		Role: role,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", zap.Int64("user_id", c.ID), zap.Error(err))
			}
			break
		}

		msg.Timestamp = time.Now().UTC()
		msg.UserID = c.ID

		c.Hub.HandleMessage(c, &msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage sends a message to the client. A full send buffer drops the
// connection; the client is expected to reconnect and fall back to polling.
func (c *Client) SendMessage(msg *Message) {
	select {
	case c.Send <- msg:
	default:
		logger.Warn("websocket client channel full, closing connection", zap.Int64("user_id", c.ID))
		close(c.Send)
		c.Hub.Unregister <- c
	}
}

// SetTrip associates the client with a trip
func (c *Client) SetTrip(tripID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TripID = tripID
}

// GetTrip returns the current trip ID
func (c *Client) GetTrip() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TripID
}
