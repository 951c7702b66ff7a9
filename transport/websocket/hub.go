package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Frames buffered per client before it is dropped as too slow.
	sendBufferSize = 256
)

// Handler receives the lifecycle and frames of every connection
type Handler interface {
	Connect(connID, token string)
	Receive(connID string, payload []byte)
	Disconnect(connID string)
}

// Client is one websocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

type outbound struct {
	connID string
	frame  []byte
}

// Hub tracks live clients and delivers frames to them in the order Send
// was called.
type Hub struct {
	handler Handler

	// Registered clients by connection id
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound
	done       chan struct{}

	upgrader websocket.Upgrader
	newID    func() string
}

// NewHub creates a hub feeding handler. checkOrigin may be nil to accept
// every origin.
func NewHub(handler Handler, checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		handler:    handler,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outbound, 4096),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		newID: uuid.NewString,
	}
}

// Run starts the hub's event loop and closes every client when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				h.unregisterClient(client)
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case out := <-h.outbound:
			h.deliver(out)
		}
	}
}

// Send queues frame for connID. Frames for unknown connections are dropped.
func (h *Hub) Send(connID string, frame []byte) {
	select {
	case h.outbound <- outbound{connID: connID, frame: frame}:
	case <-h.done:
	}
}

// ServeWS upgrades the request and attaches the connection. The optional
// token query parameter binds it to an identity right away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   h.newID(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	h.handler.Connect(client.id, r.URL.Query().Get("token"))

	go client.writePump()
	go client.readPump()
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	log.Printf("[WS] Client %s connected (total clients: %d)", client.id, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
		log.Printf("[WS] Client %s disconnected (remaining clients: %d)", client.id, len(h.clients))
	}
}

func (h *Hub) deliver(out outbound) {
	client, ok := h.clients[out.connID]
	if !ok {
		return
	}
	select {
	case client.send <- out.frame:
	default:
		// Client's send buffer is full, drop it
		log.Printf("[WS] Client %s is too slow, closing", client.id)
		h.unregisterClient(client)
	}
}

// readPump feeds frames from the connection to the handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.handler.Disconnect(c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Read error on %s: %v", c.id, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.handler.Receive(c.id, payload)
	}
}

// writePump writes queued frames to the connection, one message per frame
func (c *Client) writePump() {
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
				// The hub closed the channel
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
