package ws

import "github.com/Keekuun/nexus-studio-sub001/internal/comment"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// Client to Server messages.
	MessageTypeSubscribe   MessageType = "subscribe"   // Client follows a node
	MessageTypeUnsubscribe MessageType = "unsubscribe" // Client stops following a node
	MessageTypePing        MessageType = "ping"        // Client keepalive

	// Server to Client messages.
	MessageTypeSubscribed     MessageType = "subscribed"      // Server confirms a subscription
	MessageTypeCommentCreated MessageType = "comment.created" // Server pushes a new comment
	MessageTypePong           MessageType = "pong"            // Server answers a ping
	MessageTypeError          MessageType = "error"           // Server reports an error
)

// Message is the envelope for all WebSocket communication.
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// NodePayload names the node a subscribe/unsubscribe message refers to.
type NodePayload struct {
	NodeID string `json:"nodeId"`
}

// SubscribedPayload confirms a subscription and carries the node's current comments.
type SubscribedPayload struct {
	NodeID   string            `json:"nodeId"`
	Comments []comment.Comment `json:"comments"`
}

// CommentPayload pushes a newly created comment.
type CommentPayload struct {
	NodeID  string          `json:"nodeId"`
	Comment comment.Comment `json:"comment"`
}

// ErrorPayload reports an error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInternalError  = "internal_error"
)
