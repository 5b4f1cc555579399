// Package hub fans session events out to subscribed WebSocket connections.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/uatdesk/internal/domain"
)

// Connection represents a single WebSocket subscriber.
type Connection struct {
	ID        string
	SessionID string
	Actor     domain.Actor
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex

	// sendMu guards Send against a send after the hub closed it.
	sendMu sync.Mutex
	closed bool
}

// Hub manages connections grouped by session.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *SessionMessage
	done       chan struct{}

	mu sync.RWMutex
}

// SessionMessage is used to broadcast a message to a session.
type SessionMessage struct {
	SessionID string
	Data      []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *SessionMessage, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]bool)
			}
			h.sessions[conn.SessionID][conn.ID] = true
			h.mu.Unlock()
			log.Printf("Subscriber registered: %s (session: %s, actor: %s)", conn.ID, conn.SessionID, conn.Actor.Kind)

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.sessions[msg.SessionID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				if err := conn.enqueue(msg.Data); err == ErrBufferFull {
					log.Printf("WARN: subscriber %s buffer full, closing", connID)
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.sessions[conn.SessionID]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	conn.closeSend()
	log.Printf("Subscriber unregistered: %s", conn.ID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		conn.closeSend()
		delete(h.connections, id)
	}
	h.sessions = make(map[string]map[string]bool)
}

// NewConnection creates a connection bound to a session. It is not registered yet.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string, actor domain.Actor) *Connection {
	return &Connection{
		ID:        "sub_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Actor:     actor,
		Conn:      ws,
		Send:      make(chan []byte, 64),
	}
}

// Register registers a connection with the hub. It returns false once the hub
// has stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish broadcasts a session event to every subscriber of the session. It
// never blocks the caller; events are dropped when the broadcast queue is full.
func (h *Hub) Publish(sessionID string, event domain.SessionEvent) {
	data, err := json.Marshal(EventMessage{
		BaseMessage: BaseMessage{Type: TypeEvent, Ts: time.Now().UnixMilli(), SessionID: sessionID},
		Event:       event,
	})
	if err != nil {
		log.Printf("WARN: failed to marshal event %s: %v", event.EventID, err)
		return
	}

	select {
	case h.broadcast <- &SessionMessage{SessionID: sessionID, Data: data}:
	default:
		log.Printf("WARN: broadcast queue full, dropping event %s for session %s", event.EventID, sessionID)
	}
}

// SendJSONToConnection queues a JSON message for a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.enqueue(data)
}

// HasSubscribers reports whether a session has any active connections.
func (h *Hub) HasSubscribers(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// enqueue queues data for the write pump without blocking. It returns
// ErrConnectionClosed once the hub has dropped the connection.
func (c *Connection) enqueue(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// closeSend closes Send once; the write pump then sends a close frame.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Close closes the underlying WebSocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrConnectionClosed is returned when queueing to a removed connection.
var ErrConnectionClosed = errors.New("connection closed")

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
