package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/uatdesk/internal/hub"
)

var watchRaw bool

var watchCmd = &cobra.Command{
	Use:   "watch [ws-url]",
	Short: "Print live events of a session, e.g. ws://localhost:8080/p/<token>/ws",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

// Client is a session subscription.
type Client struct {
	conn *websocket.Conn
	done chan struct{}
}

// NewClient connects to a portal WebSocket endpoint.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// WaitHello reads the hello_ack that opens every subscription.
func (c *Client) WaitHello() (*hub.HelloAckMessage, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read hello_ack: %w", err)
	}

	var base hub.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type == hub.TypeError {
		var errMsg hub.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return nil, fmt.Errorf("subscription failed: %s", errMsg.Message)
	}
	if base.Type != hub.TypeHelloAck {
		return nil, fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	var ack hub.HelloAckMessage
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	return &ack, nil
}

// ReadMessages prints messages until the connection closes.
func (c *Client) ReadMessages(w io.Writer, raw bool) {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}
			fmt.Fprintln(w, formatMessage(data, raw))
		}
	}
}

// formatMessage renders one server message as a single line, or as indented
// JSON when raw is set or the message is not an event.
func formatMessage(data []byte, raw bool) string {
	var base hub.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Sprintf("unreadable message: %s", string(data))
	}

	if !raw && base.Type == hub.TypeEvent {
		var msg hub.EventMessage
		if err := json.Unmarshal(data, &msg); err == nil {
			ts := time.UnixMilli(msg.Event.Ts).Format("15:04:05")
			return fmt.Sprintf("%s %-24s %s:%s %s", ts, msg.Event.Type, msg.Event.ActorType, msg.Event.ActorID, string(msg.Event.Payload))
		}
	}

	var pretty map[string]interface{}
	json.Unmarshal(data, &pretty)
	formatted, _ := json.MarshalIndent(pretty, "", "  ")
	return fmt.Sprintf("[%s]\n%s", base.Type, string(formatted))
}

func runWatch(cmd *cobra.Command, args []string) error {
	log.SetFlags(log.Ltime)

	client, err := NewClient(args[0])
	if err != nil {
		return err
	}
	defer client.Close()

	ack, err := client.WaitHello()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching session %s as %s (%s). Ctrl-C to stop.\n", ack.SessionID, ack.Actor.Name, ack.Actor.Kind)

	finished := make(chan struct{})
	go func() {
		client.ReadMessages(cmd.OutOrStdout(), watchRaw)
		close(finished)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	select {
	case <-finished:
		return fmt.Errorf("connection closed by server")
	case <-interrupt:
		client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return nil
	}
}
