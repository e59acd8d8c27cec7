package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/pkg/logger"
)

// Handler consumes raw frames read from the stream
type Handler interface {
	HandleMessage(ctx context.Context, raw []byte) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, raw []byte) error

// HandleMessage calls f
func (f HandlerFunc) HandleMessage(ctx context.Context, raw []byte) error {
	return f(ctx, raw)
}

// Status describes the upstream connection
type Status struct {
	Connected     bool      `json:"connected"`
	URL           string    `json:"url"`
	Connects      int       `json:"connects"`
	LastConnected time.Time `json:"last_connected,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Client keeps a websocket connection to the upstream data feed open and hands
// every frame to a Handler. Frames are handled one at a time in arrival order.
type Client struct {
	url            string
	dialer         *websocket.Dialer
	header         http.Header
	reconnectDelay time.Duration
	readTimeout    time.Duration
	maxMessageSize int64
	handler        Handler
	logger         *logger.Logger

	mu     sync.RWMutex
	status Status
}

// NewClient creates a stream client
func NewClient(cfg config.StreamConfig, handler Handler, log *logger.Logger) *Client {
	return &Client{
		url: cfg.URL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutSecs) * time.Second,
		},
		header:         http.Header{},
		reconnectDelay: time.Duration(cfg.ReconnectDelaySecs) * time.Second,
		readTimeout:    time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		maxMessageSize: int64(cfg.MaxMessageSizeBytes),
		handler:        handler,
		logger:         log.Named("stream"),
		status:         Status{URL: cfg.URL},
	}
}

// Run connects and reads until ctx is cancelled, reconnecting after a fixed
// delay whenever the connection fails or drops.
func (c *Client) Run(ctx context.Context) error {
	c.logger.Info("Starting stream client",
		logger.String("url", c.url),
		logger.Duration("reconnect_delay", c.reconnectDelay))

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.setDisconnected(nil)
			c.logger.Info("Stream client stopped")
			return nil
		}

		c.setDisconnected(err)
		c.logger.Warn("Stream connection lost, reconnecting",
			logger.Error(err),
			logger.Duration("delay", c.reconnectDelay))

		select {
		case <-ctx.Done():
			c.logger.Info("Stream client stopped")
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

// session runs one connection until it fails
func (c *Client) session(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to stream (status %s): %w", resp.Status, err)
		}
		return fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer conn.Close()

	c.setConnected()
	c.logger.Info("Connected to stream", logger.String("url", c.url))

	// Unblock ReadMessage on shutdown
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if c.maxMessageSize > 0 {
		conn.SetReadLimit(c.maxMessageSize)
	}

	for {
		if c.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				return err
			}
		}

		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("stream closed by server")
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		if err := c.handler.HandleMessage(ctx, raw); err != nil {
			c.logger.Debug("Stream frame rejected", logger.Error(err))
		}
	}
}

func (c *Client) setConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = true
	c.status.Connects++
	c.status.LastConnected = time.Now().UTC()
	c.status.LastError = ""
}

func (c *Client) setDisconnected(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = false
	if err != nil {
		c.status.LastError = err.Error()
	}
}

// GetStatus returns the connection status
func (c *Client) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
