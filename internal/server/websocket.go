package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kode4food/caravan/topic"

	"github.com/stepwise/formwizard/internal/events"
	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/log"
)

// Client represents a WebSocket client connection for event streaming
type Client struct {
	server   *Server
	conn     *websocket.Conn
	consumer topic.Consumer[*events.Event]
	filter   events.Filter
	done     chan struct{}
}

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

func (s *Server) handleWebSocket(c *gin.Context) {
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Error:  ErrNoEventHub.Error(),
			Status: http.StatusServiceUnavailable,
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	noopFilter := func(*events.Event) bool { return false }
	client := &Client{
		server:   s,
		conn:     conn,
		consumer: s.hub.NewConsumer(),
		filter:   noopFilter,
		done:     make(chan struct{}),
	}
	s.registerWebSocket(client)

	go client.run()
}

// Close shuts down the client connection and its event consumer
func (c *Client) Close() {
	close(c.done)
}

func (c *Client) run() {
	defer func() {
		c.server.unregisterWebSocket(c)
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
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

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

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(api.MessageResponse{
		Message: "subscribed",
	}); err != nil {
		slog.Error("WebSocket write failed",
			slog.String("context", "subscribed"),
			log.Error(err))
	}
}

func (c *Client) sendEventIfMatched(event *events.Event) bool {
	if !c.filter(event) {
		return true
	}

	wsEvent := transformEvent(event)
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(wsEvent); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func transformEvent(ev *events.Event) *api.WebSocketEvent {
	return &api.WebSocketEvent{
		Type:      string(ev.Type),
		Wizard:    ev.Wizard,
		Session:   ev.Session,
		Step:      ev.Step,
		Timestamp: ev.Timestamp.UnixMilli(),
	}
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

// BuildFilter creates an event filter based on client subscription
// preferences for wizard names and event types
func BuildFilter(sub *api.ClientSubscription) events.Filter {
	var wizardFilter events.Filter
	if sub.Wizard != "" {
		wizardFilter = events.FilterWizard(sub.Wizard)
	}

	var eventTypeFilter events.Filter
	if len(sub.EventTypes) > 0 {
		types := make([]events.Type, len(sub.EventTypes))
		for i, et := range sub.EventTypes {
			types[i] = events.Type(et)
		}
		eventTypeFilter = events.FilterTypes(types...)
	}

	switch {
	case wizardFilter != nil && eventTypeFilter != nil:
		return events.AndFilters(wizardFilter, eventTypeFilter)
	case wizardFilter != nil:
		return wizardFilter
	case eventTypeFilter != nil:
		return eventTypeFilter
	default:
		return func(*events.Event) bool { return false }
	}
}
