package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yegors/flightdesk/pkg/logger"
)

// Message types pushed to dashboard clients
const (
	MessageTypeFlightAdded   = "flight_added"
	MessageTypeFlightUpdated = "flight_updated"
	MessageTypeFlightRemoved = "flight_removed"
	MessageTypeSnapshot      = "snapshot"  // Server sends every record of a namespace
	MessageTypeSubscribe     = "subscribe" // Client selects a namespace
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// MessageHandler defines the interface for handling incoming WebSocket messages
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// Client represents a WebSocket client
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	namespace string // namespace the client subscribed to, empty for all
}

// Server is the dashboard websocket hub
type Server struct {
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *Message
	done           chan struct{}
	upgrader       websocket.Upgrader
	logger         *logger.Logger
	mu             sync.RWMutex
	messageHandler MessageHandler
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, sendBuffer),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("web-socket"),
	}
}

// SetMessageHandler sets the message handler for incoming WebSocket messages
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// Run runs the hub until ctx is cancelled
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for client := range s.clients {
				s.removeLocked(client)
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			s.removeLocked(client)
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case message := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				if !client.wants(message) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow client, drop it rather than stall the hub
					s.logger.Warn("Dropping slow WebSocket client",
						logger.String("remote_addr", client.conn.RemoteAddr().String()))
					s.removeLocked(client)
				}
			}
			s.mu.Unlock()
		}
	}
}

// removeLocked unregisters a client. Caller holds s.mu.
func (s *Server) removeLocked(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	client.mu.Lock()
	if !client.closed {
		client.closed = true
		close(client.send)
	}
	client.mu.Unlock()
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleConnection upgrades an HTTP request and attaches the client to the hub
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan *Message, sendBuffer),
		server:    s,
		namespace: r.URL.Query().Get("namespace"),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	s.logger.Debug("WebSocket client connected",
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("namespace", client.namespace))

	go client.readPump()
	go client.writePump()
}

// Broadcast queues a message for every interested client. It never blocks on
// slow clients; if the hub is gone or its queue is full the message is dropped.
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
	case <-s.done:
	default:
		s.logger.Warn("Broadcast queue full, dropping message", logger.String("message_type", message.Type))
	}
}

// wants reports whether a message belongs to the client's namespace
func (c *Client) wants(message *Message) bool {
	c.mu.Lock()
	ns := c.namespace
	c.mu.Unlock()
	if ns == "" {
		return true
	}
	msgNS, ok := message.Data["namespace"]
	if !ok {
		return true
	}
	return msgNS == ns
}

// Namespace returns the namespace the client subscribed to
func (c *Client) Namespace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.namespace
}

// SetNamespace changes the client's namespace subscription
func (c *Client) SetNamespace(ns string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespace = ns
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 << 10)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Warn("Failed to parse WebSocket message", logger.Error(err))
			continue
		}

		if c.server.messageHandler != nil {
			if err := c.server.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.server.logger.Error("Failed to handle WebSocket message",
					logger.Error(err),
					logger.String("type", message.Type))
			}
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.logger.Debug("WebSocket write failed", logger.Error(err))
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
