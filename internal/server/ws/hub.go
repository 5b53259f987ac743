// Package ws bridges the in-process event bus to WebSocket clients: every
// bus event is rendered to a fresh JSON envelope and fanned out to clients
// subscribed to that topic. The hub only attaches to the bus once the first
// client connects, so background work gated on bus subscription (the price
// simulator) stays idle until someone is watching.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/drolelabs/drole/internal/bus"
	"github.com/drolelabs/drole/internal/metrics"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// defaultTopics are subscribed for every new client until it sends its own
// subscription message.
var defaultTopics = []bus.Topic{
	bus.TopicMarkets,
	bus.TopicUser,
	bus.TopicComments,
	bus.TopicWatchlist,
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS enforcement happens at the HTTP layer.
		return true
	},
}

// Payload renders the current state for a topic. The hub serializes the
// result into the broadcast envelope.
type Payload func(topic bus.Topic) any

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[bus.Topic]bool
	mu   sync.RWMutex
}

// subscribeMsg is the JSON message a client sends to manage topic
// subscriptions, e.g. {"subscribe":["markets"],"unsubscribe":["comments"]}.
type subscribeMsg struct {
	Subscribe   []string `json:"subscribe"`
	Unsubscribe []string `json:"unsubscribe"`
}

// envelope is the JSON frame broadcast to clients.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub manages connected WebSocket clients and fans bus events out to them.
type Hub struct {
	payload    Payload
	events     *bus.Bus
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	logger     *slog.Logger

	attachOnce sync.Once
	mu         sync.RWMutex
}

// broadcastMsg carries a rendered frame along with its topic so the hub can
// route it only to clients subscribed to that topic.
type broadcastMsg struct {
	topic bus.Topic
	data  []byte
}

// NewHub creates a hub over the given event bus. payload renders per-topic
// state for broadcast frames.
func NewHub(events *bus.Bus, payload Payload, logger *slog.Logger) *Hub {
	return &Hub{
		payload:    payload,
		events:     events,
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run starts the hub's main event loop. It should be called in a goroutine
// and exits when the provided context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(0)
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(h.clientCount()))
			h.logger.Info("client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(h.clientCount()))
			h.logger.Info("client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.isSubscribed(msg.topic) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// Client's send buffer is full; drop the frame.
					h.logger.Warn("dropping frame for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// attachBus subscribes the hub to the event bus. Runs once, on the first
// client connection, which is also what arms the lazy simulator start.
func (h *Hub) attachBus() {
	h.attachOnce.Do(func() {
		h.events.Subscribe(func(ev bus.Event) {
			data, err := json.Marshal(envelope{
				Type:    string(ev.Topic),
				Payload: h.payload(ev.Topic),
			})
			if err != nil {
				h.logger.Error("encode frame failed",
					slog.String("topic", string(ev.Topic)),
					slog.String("error", err.Error()),
				)
				return
			}
			select {
			case h.broadcast <- broadcastMsg{topic: ev.Topic, data: data}:
			default:
				h.logger.Warn("broadcast queue full, dropping event",
					slog.String("topic", string(ev.Topic)),
				)
			}
		})
	})
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[bus.Topic]bool, len(defaultTopics)),
	}
	for _, t := range defaultTopics {
		c.subs[t] = true
	}

	h.attachBus()
	h.register <- c
	c.sendSnapshot()

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendSnapshot pushes the current state of every default topic so a new
// client renders immediately instead of waiting for the next event.
func (c *client) sendSnapshot() {
	for _, t := range defaultTopics {
		data, err := json.Marshal(envelope{
			Type:    string(t),
			Payload: c.hub.payload(t),
		})
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// readPump reads subscription management frames from the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if jsonErr := json.Unmarshal(message, &sub); jsonErr == nil &&
			(len(sub.Subscribe) > 0 || len(sub.Unsubscribe) > 0) {
			c.handleSubscription(sub)
		}
	}
}

// handleSubscription processes subscribe/unsubscribe requests.
func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range msg.Subscribe {
		c.subs[bus.Topic(t)] = true
	}
	for _, t := range msg.Unsubscribe {
		delete(c.subs, bus.Topic(t))
	}
}

// isSubscribed reports whether the client wants frames for the topic.
func (c *client) isSubscribed(topic bus.Topic) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[topic]
}

// writePump pumps frames from the hub to the WebSocket connection and sends
// periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
