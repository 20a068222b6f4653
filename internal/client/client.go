// Package client manages an agent's outbound WebSocket connection to the
// relay: authentication, room auto-join, and reconnection with backoff.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config describes how the client connects and identifies itself.
type Config struct {
	URL     string // ws:// or wss:// endpoint, e.g. ws://localhost:8080/ws
	AgentID string
	Name    string
	Token   string // shared secret or a minted agent token

	Rooms             []string // rooms to join automatically after auth
	ReconnectInterval time.Duration
	TLSSkipVerify     bool
}

// FrameHandler processes frames received from the relay.
type FrameHandler func(frame map[string]any)

// Client manages the WebSocket connection from agent to relay.
type Client struct {
	cfg     Config
	handler FrameHandler
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a relay client.
func NewClient(cfg Config, handler FrameHandler, logger *slog.Logger) *Client {
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "relay-client"),
	}
}

// Connect establishes the WebSocket connection to the relay and begins
// processing frames. It blocks until the context is canceled, reconnecting
// with backoff whenever the connection drops.
func (c *Client) Connect(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.connectOnce(ctx); err != nil {
			c.logger.Warn("connection failed", "error", err)
		}

		delay := c.cfg.ReconnectInterval
		c.logger.Info("reconnecting", "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if c.cfg.TLSSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	// Authenticate, then rejoin the configured rooms. On reconnect the
	// relay has forgotten us, so this brings the session back to parity.
	if err := c.send(authFrame{Type: "auth", AgentID: c.cfg.AgentID, Name: c.cfg.Name, Token: c.cfg.Token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	for _, room := range c.cfg.Rooms {
		if err := c.Join(room); err != nil {
			return fmt.Errorf("join %s: %w", room, err)
		}
	}

	c.logger.Info("connected to relay", "url", c.cfg.URL)

	// Read frames until disconnected.
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			return ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		var frame map[string]any
		if err := json.Unmarshal(msg, &frame); err != nil {
			c.logger.Warn("invalid frame from relay", "error", err)
			continue
		}
		if c.handler != nil {
			c.handler(frame)
		}
	}
}

// Outbound wire frames. The relay keys on "type"; fields it does not
// expect for that type are ignored.
type authFrame struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId"`
	Name    string `json:"name"`
	Token   string `json:"token"`
}

type chatFrame struct {
	Type string `json:"type"`
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
}

type roomFrame struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type listFrame struct {
	Type string `json:"type"`
}

// SendChat sends a chat frame. An empty to broadcasts; a "#room" target
// addresses a room; anything else is a direct message to that agent ID.
func (c *Client) SendChat(to, text string) error {
	return c.send(chatFrame{Type: "chat", To: to, Text: text})
}

// Join asks the relay to add this agent to a room.
func (c *Client) Join(room string) error {
	return c.send(roomFrame{Type: "join", Room: room})
}

// Leave asks the relay to remove this agent from a room.
func (c *Client) Leave(room string) error {
	return c.send(roomFrame{Type: "leave", Room: room})
}

// List requests the agent roster and room names.
func (c *Client) List() error {
	return c.send(listFrame{Type: "list"})
}

func (c *Client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
