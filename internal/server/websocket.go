package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/taskmaster/internal/runner"
	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

type (
	// Client represents a WebSocket client connection for event streaming
	Client struct {
		conn      *websocket.Conn
		consumer  runner.EventConsumer
		filter    EventFilter
		onClose   func(*Client)
		closeOnce sync.Once
	}

	// EventFilter reports whether an event should be sent to a client
	EventFilter func(api.Event) bool
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an HTTP connection to WebSocket and streams
// every runner event until the client subscribes to a narrower set
func HandleWebSocket(
	r *runner.Runner, w http.ResponseWriter, req *http.Request,
	onClose func(*Client),
) *Client {
	consumer := r.Events()
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		consumer.Close()
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return nil
	}

	client := &Client{
		conn:     conn,
		consumer: consumer,
		filter:   func(api.Event) bool { return true },
		onClose:  onClose,
	}

	go client.run()
	return client
}

func (s *Server) handleWebSocket(c *gin.Context) {
	client := HandleWebSocket(s.runner, c.Writer, c.Request,
		s.unregisterWebSocket,
	)
	if client != nil {
		s.registerWebSocket(client)
	}
}

// Close terminates the connection. The client's event loop exits once
// the pending read fails
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

func (c *Client) run() {
	defer func() {
		c.consumer.Close()
		c.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case event, ok := <-c.consumer.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != "subscribe" {
		return
	}

	c.filter = BuildFilter(&sub.Data)
}

func (c *Client) sendEventIfMatched(event api.Event) bool {
	if !c.filter(event) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

// BuildFilter creates an event filter from a client subscription. Empty
// fields of the subscription match every event
func BuildFilter(sub *api.ClientSubscription) EventFilter {
	ids := slices.Clone(sub.WorkflowIDs)
	types := slices.Clone(sub.EventTypes)
	return func(ev api.Event) bool {
		if len(ids) > 0 && !slices.Contains(ids, ev.WorkflowID) {
			return false
		}
		if len(types) > 0 && !slices.Contains(types, ev.Type) {
			return false
		}
		return true
	}
}
