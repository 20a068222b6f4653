// Package protocol defines the wire protocol spoken between agents and the
// relay over WebSocket.
//
// Frames are flat JSON objects with a "type" field that determines which
// other fields are meaningful. Inbound frames are decoded into one variant
// per type so handlers never poke at optional fields.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RoomSigil prefixes every room name on the wire.
const RoomSigil = "#"

// Delivery scopes carried on outbound chat frames.
const (
	ScopePublic  = "public"
	ScopeRoom    = "room"
	ScopePrivate = "private"
)

// Inbound frame types.
const (
	TypeAuth  = "auth"
	TypeChat  = "chat"
	TypeJoin  = "join"
	TypeLeave = "leave"
	TypeList  = "list"
)

// Outbound frame types.
const (
	TypeWelcome = "welcome"
	TypeSystem  = "system"
	TypeAck     = "ack"
	TypeError   = "error"
)

// ErrUnknownType marks a syntactically valid frame whose type the relay
// does not recognize. Unknown types are dropped without a reply; only
// frames that fail to parse at all get an error back.
var ErrUnknownType = errors.New("unknown message type")

// Inbound is implemented by every decoded inbound frame variant.
type Inbound interface {
	inbound()
}

// Auth is the first frame an agent must send.
type Auth struct {
	AgentID string `json:"agentId"`
	Name    string `json:"name"`
	Token   string `json:"token"`
}

// Chat carries a message to broadcast, a room, or a single agent.
// An empty To (or the literal "all") means broadcast; a To beginning
// with the room sigil targets a room; anything else is an agent identity.
type Chat struct {
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
}

// Join adds the sender to a room, creating it if needed.
type Join struct {
	Room string `json:"room"`
}

// Leave removes the sender from a room.
type Leave struct {
	Room string `json:"room"`
}

// List requests the current agent roster and room names.
type List struct{}

func (Auth) inbound()  {}
func (Chat) inbound()  {}
func (Join) inbound()  {}
func (Leave) inbound() {}
func (List) inbound()  {}

// Validate checks that the auth frame names an identity.
func (a Auth) Validate() error {
	if a.AgentID == "" || a.Name == "" {
		return errors.New("missing agentId or name")
	}
	return nil
}

// IsBroadcast reports whether the chat targets every connected agent.
func (c Chat) IsBroadcast() bool {
	return c.To == "" || c.To == "all"
}

// IsRoom reports whether the chat targets a room.
func (c Chat) IsRoom() bool {
	return strings.HasPrefix(c.To, RoomSigil)
}

// ParseInbound decodes a raw frame into its variant. A JSON syntax or
// structure error is returned as-is; a recognized envelope with an
// unrecognized type returns ErrUnknownType.
func ParseInbound(data []byte) (Inbound, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeAuth:
		var m Auth
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeChat:
		var m Chat
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeJoin:
		var m Join
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeLeave:
		var m Leave
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeList:
		return List{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// --- Outbound frames ---

// Welcome confirms a successful auth.
type Welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Online  int    `json:"online"`
}

// System carries relay-generated notices (joins, departures, room changes).
type System struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ChatMessage is a delivered chat frame.
type ChatMessage struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	FromName string `json:"fromName"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text"`
	Scope    string `json:"scope"`
}

// Ack confirms a direct message was handed to its recipient.
type Ack struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error reports a recoverable protocol or policy failure to the sender.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AgentInfo is one roster entry in a Roster frame.
type AgentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roster answers a list request.
type Roster struct {
	Type   string      `json:"type"`
	Agents []AgentInfo `json:"agents"`
	Rooms  []string    `json:"rooms"`
}

// NewWelcome builds a welcome frame.
func NewWelcome(message string, online int) Welcome {
	return Welcome{Type: TypeWelcome, Message: message, Online: online}
}

// NewSystem builds a system notice.
func NewSystem(message string) System {
	return System{Type: TypeSystem, Message: message}
}

// NewAck builds an ack frame.
func NewAck(message string) Ack {
	return Ack{Type: TypeAck, Message: message}
}

// NewError builds an error frame.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// NewRoster builds a list reply. Nil slices marshal as empty arrays so
// clients always see "agents" and "rooms" keys.
func NewRoster(agents []AgentInfo, rooms []string) Roster {
	if agents == nil {
		agents = []AgentInfo{}
	}
	if rooms == nil {
		rooms = []string{}
	}
	return Roster{Type: TypeList, Agents: agents, Rooms: rooms}
}
