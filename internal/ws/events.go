package ws

import "github.com/mzheng/parley/internal/models"

// EventType names a server-to-client event.
type EventType string

const (
	EventJoined      EventType = "joined"
	EventUserJoined  EventType = "user_joined"
	EventUserLeft    EventType = "user_left"
	EventMessage     EventType = "message"
	EventBanned      EventType = "banned"
	EventUserBanned  EventType = "user_banned"
	EventTyping      EventType = "typing"
	EventOnlineUsers EventType = "online_users"
	EventInvited     EventType = "invited"
	EventError       EventType = "error"
)

// Event is the JSON envelope pushed to clients. Fields are populated
// per event type; unset fields are omitted on the wire.
type Event struct {
	Type     EventType       `json:"type"`
	ChatID   int             `json:"chat_id,omitempty"`
	Username string          `json:"username,omitempty"`
	By       string          `json:"by,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	IsTyping bool            `json:"is_typing,omitempty"`
	Users    []string        `json:"users,omitempty"`
	Message  *models.Message `json:"message,omitempty"`
	Code     string          `json:"code,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Command is the JSON envelope read from clients.
type Command struct {
	Type     string `json:"type"` // "join", "leave", "send", "typing"
	ChatID   int    `json:"chat_id,omitempty"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}
