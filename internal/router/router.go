// Package router manages agent WebSocket connections and routes chat
// messages between them: broadcast, room-scoped, and direct delivery.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/a2a-net/relay/internal/auth"
	"github.com/a2a-net/relay/internal/protocol"
	"github.com/a2a-net/relay/internal/ratelimit"
	"github.com/a2a-net/relay/internal/registry"
)

// makeUpgrader creates a WebSocket upgrader with origin checking.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// Router owns the frame dispatch state machine. Each connection moves
// from unauthenticated to authenticated on a valid auth frame; every
// other inbound type is gated behind that transition.
type Router struct {
	auth     *auth.Service
	registry *registry.Registry
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	upgrader websocket.Upgrader

	maxMessageSize int64
	now            func() time.Time
}

// Options configures the Router.
type Options struct {
	MaxPerWindow    int           // frames allowed per rate window (default 5)
	RateWindow      time.Duration // rate window length (default 1s)
	AllowedOrigins  []string      // for WebSocket origin check
	MaxMessageBytes int64         // max WebSocket frame size (default 64KB)
}

// New creates a new Router.
func New(a *auth.Service, reg *registry.Registry, logger *slog.Logger, opts Options) *Router {
	maxPerWindow := opts.MaxPerWindow
	if maxPerWindow == 0 {
		maxPerWindow = 5
	}
	window := opts.RateWindow
	if window == 0 {
		window = 1 * time.Second
	}
	maxMsg := opts.MaxMessageBytes
	if maxMsg == 0 {
		maxMsg = 64 * 1024 // 64KB default
	}

	return &Router{
		auth:           a,
		registry:       reg,
		limiter:        ratelimit.New(maxPerWindow, window),
		logger:         logger.With("component", "router"),
		upgrader:       makeUpgrader(opts.AllowedOrigins),
		maxMessageSize: maxMsg,
		now:            time.Now,
	}
}

// wsConn is the write side of a connection. *websocket.Conn satisfies it;
// tests substitute a recorder.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// agentConn is one agent connection's state.
type agentConn struct {
	id       string // connection handle, assigned at upgrade
	identity string // agent identity, assigned at auth
	name     string
	authed   bool
	rate     ratelimit.State
	joined   map[string]struct{}

	mu   sync.Mutex // guards writes; gorilla allows one concurrent writer
	conn wsConn
}

// Send marshals v and writes it as one text frame. Implements
// registry.Sender.
func (c *agentConn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection. Implements registry.Sender.
func (c *agentConn) Close() error {
	return c.conn.Close()
}

// HandleAgentWS handles WebSocket connections from agents.
func (r *Router) HandleAgentWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(r.maxMessageSize)

	c := &agentConn{
		id:     uuid.New().String(),
		joined: make(map[string]struct{}),
		conn:   conn,
	}

	r.logger.Info("agent connected", "conn_id", c.id)

	defer func() {
		r.handleDisconnect(c)
		_ = conn.Close()
		r.logger.Info("connection closed", "conn_id", c.id)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.logger.Debug("read error", "conn_id", c.id, "error", err)
			return
		}
		r.handleFrame(c, data)
	}
}

// handleFrame runs one inbound frame through the processing pipeline:
// parse, rate check, auth gate, dispatch.
func (r *Router) handleFrame(c *agentConn, data []byte) {
	msg, parseErr := protocol.ParseInbound(data)
	if parseErr != nil && !errors.Is(parseErr, protocol.ErrUnknownType) {
		r.send(c, protocol.NewError("Invalid JSON"))
		return
	}

	switch r.limiter.Check(&c.rate, r.now()) {
	case ratelimit.Warn:
		r.logger.Warn("rate limit exceeded", "conn_id", c.id, "agent", c.name)
		r.send(c, protocol.NewError("Rate limit exceeded."))
		return
	case ratelimit.Drop:
		return
	}

	// Unrecognized types are counted against the rate window and then
	// dropped without a reply; only unparseable frames get an error back.
	if parseErr != nil {
		r.logger.Debug("ignoring unknown message type", "conn_id", c.id, "error", parseErr)
		return
	}

	if a, ok := msg.(protocol.Auth); ok {
		r.handleAuth(c, a)
		return
	}

	if !c.authed {
		r.send(c, protocol.NewError("Auth required."))
		return
	}

	switch m := msg.(type) {
	case protocol.Chat:
		r.handleChat(c, m)
	case protocol.Join:
		r.handleJoin(c, m)
	case protocol.Leave:
		r.handleLeave(c, m)
	case protocol.List:
		r.handleList(c)
	}
}

func (r *Router) handleAuth(c *agentConn, a protocol.Auth) {
	if err := r.auth.VerifyCredential(a.Token, a.AgentID); err != nil {
		r.logger.Warn("auth failed: invalid token", "conn_id", c.id)
		r.send(c, protocol.NewError("Invalid Token"))
		_ = c.Close()
		return
	}

	if err := a.Validate(); err != nil {
		r.send(c, protocol.NewError("Missing agentId or name"))
		return
	}

	// A connection that re-authenticates under a new identity gives up
	// its old one first.
	if c.authed && c.identity != a.AgentID {
		r.registry.RemoveConn(c.identity, c)
	}

	c.identity = a.AgentID
	c.name = a.Name
	c.authed = true

	prior := r.registry.Authenticate(a.AgentID, a.Name, c)
	if prior != nil && prior.Conn != registry.Sender(c) {
		r.logger.Warn("duplicate identity: evicting previous session", "agent_id", a.AgentID)
		_ = prior.Conn.Close()
	}

	r.logger.Info("auth success", "agent_id", a.AgentID, "name", a.Name)

	r.send(c, protocol.NewWelcome(fmt.Sprintf("Welcome to A2A Relay, %s.", a.Name), r.registry.Count()))
	r.broadcast(c.identity, protocol.NewSystem(fmt.Sprintf("%s joined.", a.Name)))
}

func (r *Router) handleChat(c *agentConn, m protocol.Chat) {
	if m.Text == "" {
		return
	}

	switch {
	case m.IsBroadcast():
		r.logger.Info("broadcast", "from", c.name)
		r.broadcast(c.identity, protocol.ChatMessage{
			Type:     protocol.TypeChat,
			From:     c.identity,
			FromName: c.name,
			Text:     m.Text,
			Scope:    protocol.ScopePublic,
		})

	case m.IsRoom():
		room := m.To
		if !r.registry.InRoom(room, c.identity) {
			r.send(c, protocol.NewError(fmt.Sprintf("Not in room %s", room)))
			return
		}
		r.logger.Info("room message", "from", c.name, "room", room)
		r.deliver(r.registry.RoomMembersExcept(room, c.identity), protocol.ChatMessage{
			Type:     protocol.TypeChat,
			From:     c.identity,
			FromName: c.name,
			To:       room,
			Text:     m.Text,
			Scope:    protocol.ScopeRoom,
		})

	default:
		target := r.registry.Lookup(m.To)
		if target == nil {
			r.send(c, protocol.NewError("Agent not found"))
			return
		}
		r.logger.Info("direct message", "from", c.name, "to", target.Name)
		if err := target.Conn.Send(protocol.ChatMessage{
			Type:     protocol.TypeChat,
			From:     c.identity,
			FromName: c.name,
			Text:     m.Text,
			Scope:    protocol.ScopePrivate,
		}); err != nil {
			r.logger.Debug("direct delivery failed", "to", target.ID, "error", err)
		}
		r.send(c, protocol.NewAck(fmt.Sprintf("Sent to %s", target.Name)))
	}
}

func (r *Router) handleJoin(c *agentConn, m protocol.Join) {
	if m.Room == "" {
		return
	}
	r.registry.JoinRoom(m.Room, c.identity)
	c.joined[m.Room] = struct{}{}
	r.logger.Info("joined room", "agent", c.name, "room", m.Room)
	r.send(c, protocol.NewSystem(fmt.Sprintf("Joined %s", m.Room)))
}

func (r *Router) handleLeave(c *agentConn, m protocol.Leave) {
	if m.Room == "" {
		return
	}
	existed := r.registry.LeaveRoom(m.Room, c.identity)
	delete(c.joined, m.Room)
	if existed {
		r.send(c, protocol.NewSystem(fmt.Sprintf("Left %s", m.Room)))
	}
}

func (r *Router) handleList(c *agentConn) {
	roster := r.registry.Agents()
	agents := make([]protocol.AgentInfo, len(roster))
	for i, a := range roster {
		agents[i] = protocol.AgentInfo{ID: a.ID, Name: a.Name}
	}
	r.send(c, protocol.NewRoster(agents, r.registry.Rooms()))
}

// handleDisconnect tears down an authenticated session: the agent record
// and all room memberships go in one registry operation, then the
// departure is announced. Unauthenticated disconnects are silent.
func (r *Router) handleDisconnect(c *agentConn) {
	if !c.authed || c.identity == "" {
		return
	}

	// Remove only if the registry still maps the identity to this
	// connection; an evicted session must not tear down its successor.
	removed := r.registry.RemoveConn(c.identity, c)
	if removed == nil {
		return
	}

	r.logger.Info("agent disconnected", "agent_id", removed.ID, "name", removed.Name)
	r.broadcast("", protocol.NewSystem(fmt.Sprintf("%s left.", removed.Name)))
}

// broadcast sends v to every authenticated agent except excludeID.
func (r *Router) broadcast(excludeID string, v any) {
	r.deliver(r.registry.AgentsExcept(excludeID), v)
}

// deliver sends v to each target. Send failures affect only that one
// recipient: they are logged and skipped, never aborting the rest.
func (r *Router) deliver(targets []*registry.Agent, v any) {
	for _, a := range targets {
		if err := a.Conn.Send(v); err != nil {
			r.logger.Debug("delivery failed", "to", a.ID, "error", err)
		}
	}
}

// send replies to a single connection, swallowing transport errors.
func (r *Router) send(c *agentConn, v any) {
	if err := c.Send(v); err != nil {
		r.logger.Debug("send failed", "conn_id", c.id, "error", err)
	}
}
