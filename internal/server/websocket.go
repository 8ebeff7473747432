package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/log"
)

// Client represents a WebSocket connection streaming execution events
type Client struct {
	conn     *websocket.Conn
	consumer topic.Consumer[*api.ExecutionEvent]
	filter   events.Filter
	done     chan struct{}
	once     sync.Once
}

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 1024
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

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		consumer: s.eventHub.NewConsumer(),
		filter:   func(*api.ExecutionEvent) bool { return false },
		done:     make(chan struct{}),
	}
	s.registerWebSocket(client)

	go func() {
		defer s.unregisterWebSocket(client)
		client.run()
	}()
}

// Close stops the client's event stream and closes its connection
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) run() {
	defer func() {
		c.Close()
		c.consumer.Close()
		_ = c.conn.Close()
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
			if !c.handleSubscribe(message) {
				return
			}

		case event, ok := <-c.consumer.Receive():
			if !ok {
				c.sendClose()
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}

		case <-c.done:
			c.sendClose()
			return
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	defer close(incoming)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case incoming <- message:
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleSubscribe(message []byte) bool {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return true
	}

	if sub.Type != api.MessageSubscribe {
		return true
	}

	c.filter = BuildFilter(&sub.Data)
	return c.write(api.SubscribedResult{
		Type: api.MessageSubscribed,
		Data: sub.Data,
	})
}

func (c *Client) sendEventIfMatched(ev *api.ExecutionEvent) bool {
	if !c.filter(ev) {
		return true
	}
	return c.write(api.WebSocketEvent{
		Type: api.MessageEvent,
		Data: ev,
	})
}

func (c *Client) write(msg any) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
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

func (c *Client) sendClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// BuildFilter creates an event filter from a client subscription. Every
// non-empty criterion must match
func BuildFilter(sub *api.ClientSubscription) events.Filter {
	var filters []events.Filter
	if len(sub.Flows) > 0 {
		filters = append(filters, events.FilterFlows(sub.Flows...))
	}
	if len(sub.States) > 0 {
		filters = append(filters, events.FilterStates(sub.States...))
	}
	if sub.ExecutionID != "" {
		filters = append(filters, events.FilterExecution(sub.ExecutionID))
	}
	if len(filters) == 0 {
		return events.AcceptAll
	}
	return events.AndFilters(filters...)
}
