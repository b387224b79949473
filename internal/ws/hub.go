// Package ws implements the real-time broadcast layer, adapted from the
// teacher's internal/ws/hub.go. The teacher's hub polled an external
// exchange every few seconds and fanned out its market data; this hub has no
// external feed to poll — it broadcasts the engine's own price-tick and
// settlement events as they happen, pushed in by the API handlers after bet,
// market-submission and oracle-report calls rather than pulled from a poller.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is a JSON-serializable message broadcast to subscribed clients.
type Event struct {
	Type      string      `json:"type"`
	MarketID  string      `json:"market_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	EventPriceUpdate = "price_update"
	EventSettlement  = "settlement"
	EventNewMarket   = "new_market"
)

// Hub fans out Events to every connected client subscribed to a market, or
// to every client when subscribed to the wildcard "*".
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	broadcast  chan Event
	register   chan *client
	unregister chan *client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Publish enqueues an event for broadcast; it never blocks the caller for
// long since the channel is generously buffered and Run drains it promptly.
func (h *Hub) Publish(e Event) {
	e.Timestamp = time.Now().UTC()
	select {
	case h.broadcast <- e:
	default:
		log.Println("ws: broadcast buffer full, dropping event")
	}
}

// Run drives the hub's event loop; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case e := <-h.broadcast:
			data, err := json.Marshal(e)
			if err != nil {
				log.Printf("ws: marshal event: %v", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if !c.subscribed(e.MarketID) {
					continue
				}
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

type client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

func (c *client) subscribed(marketID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.subscriptions["*"]; ok {
		return true
	}
	_, ok := c.subscriptions[marketID]
	return ok
}

// ServeWS upgrades an HTTP connection to a websocket and registers the
// resulting client with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	c := &client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 64),
		subscriptions: map[string]struct{}{"*": {}},
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var sub struct {
			MarketID string `json:"market_id"`
		}
		if err := json.Unmarshal(msg, &sub); err != nil {
			continue
		}
		if sub.MarketID != "" {
			c.mu.Lock()
			c.subscriptions[sub.MarketID] = struct{}{}
			c.mu.Unlock()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
