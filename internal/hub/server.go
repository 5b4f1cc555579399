package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/uatdesk/internal/domain"
)

// Options tunes the WebSocket connection lifecycle.
type Options struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// Server upgrades HTTP requests into session subscriptions.
type Server struct {
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(h *Hub, opts Options) *Server {
	return &Server{
		hub:  h,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Portal links are shared across origins; the token is the credential.
				return true
			},
		},
	}
}

// Serve upgrades the request and subscribes the connection to sessionID.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, sessionID string, actor domain.Actor) error {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws, sessionID, actor)

	// Queue the ack first so it precedes any broadcast event.
	ack := HelloAckMessage{
		BaseMessage:  BaseMessage{Type: TypeHelloAck, Ts: time.Now().UnixMilli(), SessionID: sessionID},
		ConnectionID: conn.ID,
		Actor:        actor,
	}
	if err := s.hub.SendJSONToConnection(conn, ack); err != nil {
		log.Printf("WARN: failed to queue hello_ack for %s: %v", conn.ID, err)
	}

	if !s.hub.Register(conn) {
		return ws.Close()
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump reads client messages until the connection fails.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleMessage(conn, message)
	}
}

// writePump writes queued messages and keepalive pings.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage answers pings. Subscriptions are read-only otherwise.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypePing:
		s.hub.SendJSONToConnection(conn, BaseMessage{Type: TypePong, Ts: time.Now().UnixMilli(), SessionID: conn.SessionID})
	default:
		s.sendError(conn, "unknown message type: "+base.Type)
	}
}

func (s *Server) sendError(conn *Connection, message string) {
	s.hub.SendJSONToConnection(conn, ErrorMessage{
		BaseMessage: BaseMessage{Type: TypeError, Ts: time.Now().UnixMilli(), SessionID: conn.SessionID},
		Message:     message,
	})
}
