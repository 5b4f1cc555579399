package hub

import "github.com/xiaot623/uatdesk/internal/domain"

// Message types from client to server
const (
	TypePing = "ping"
)

// Message types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeEvent    = "event"
	TypePong     = "pong"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloAckMessage is sent once a subscription is established.
type HelloAckMessage struct {
	BaseMessage
	ConnectionID string       `json:"connection_id"`
	Actor        domain.Actor `json:"actor"`
}

// EventMessage carries one session event.
type EventMessage struct {
	BaseMessage
	Event domain.SessionEvent `json:"event"`
}

// ErrorMessage reports a protocol error to the client.
type ErrorMessage struct {
	BaseMessage
	Message string `json:"message"`
}
