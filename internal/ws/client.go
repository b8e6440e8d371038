package ws

import (
	"encoding/json"
	"sync"
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Client represents a connected live-feed reader.
type Client struct {
	ID   string
	conn Conn

	mu     sync.Mutex
	nodeID string // Currently subscribed node
}

// NewClient creates a new client wrapper.
func NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
	}
}

// Send sends a message to the client.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteJSON(msg)
}

// SendError sends an error message to the client.
func (c *Client) SendError(code, message string) error {
	return c.Send(Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Receive reads a message from the client.
func (c *Client) Receive() (Message, error) {
	var raw struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := c.conn.ReadJSON(&raw); err != nil {
		return Message{}, err
	}

	msg := Message{Type: raw.Type}

	switch raw.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		var payload NodePayload
		if len(raw.Payload) > 0 {
			if err := json.Unmarshal(raw.Payload, &payload); err != nil {
				return Message{}, err
			}
		}

		msg.Payload = payload
	case MessageTypePing:
		// no payload
	case MessageTypeSubscribed, MessageTypeCommentCreated, MessageTypePong, MessageTypeError:
		// Server-to-client messages - keep raw payload
		msg.Payload = raw.Payload
	}

	return msg, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// NodeID returns the node the client is subscribed to.
func (c *Client) NodeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nodeID
}

// SetNodeID sets the node the client is subscribed to.
func (c *Client) SetNodeID(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodeID = nodeID
}
