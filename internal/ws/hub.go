package ws

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mzheng/parley/internal/chat"
	"github.com/mzheng/parley/internal/metrics"
	"github.com/mzheng/parley/internal/presence"
	"github.com/mzheng/parley/internal/store"
)

// Hub owns every live session and the room -> subscriber mapping. All
// state is mutated by the single Run goroutine, so join/leave/evict are
// serialized by construction: a session can never end up in two rooms,
// and a join acknowledgment is always queued on the joiner's connection
// before any room broadcast issued by a later command.
//
// Scaling note: room membership lives in this one goroutine in this one
// process. A multi-process deployment must route every connection of a
// given room to the process that owns it; cross-process fan-out is not
// supported.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Room subscriptions, keyed by chat id.
	rooms map[int]map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Inbound commands from clients and from the moderation service.
	commands chan command

	store    store.Store
	presence presence.Tracker
	log      zerolog.Logger
}

type command interface{}

type joinCmd struct {
	client *Client
	chatID int
}

type leaveCmd struct {
	client *Client
}

type sendCmd struct {
	client  *Client
	content string
}

type typingCmd struct {
	client   *Client
	isTyping bool
}

type evictCmd struct {
	chatID   int
	userID   int
	username string
	by       string
	reason   string
	done     chan struct{}
}

type notifyCmd struct {
	userID int
	event  Event
}

func NewHub(store store.Store, tracker presence.Tracker, log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan command, 64),
		store:      store,
		presence:   tracker,
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cmd := <-h.commands:
			switch cmd := cmd.(type) {
			case joinCmd:
				h.handleJoin(cmd.client, cmd.chatID)
			case leaveCmd:
				h.handleLeave(cmd.client)
			case sendCmd:
				h.handleSend(cmd.client, cmd.content)
			case typingCmd:
				h.handleTyping(cmd.client, cmd.isTyping)
			case evictCmd:
				h.handleEvict(cmd)
			case notifyCmd:
				h.handleNotify(cmd)
			}
		}
	}
}

// EvictUser removes every live session of userID from chatID, notifies
// the victim, and announces the ban to the remaining members. It blocks
// until the hub has processed the eviction. Call from outside the hub
// goroutine only.
func (h *Hub) EvictUser(chatID, userID int, username, by, reason string) {
	done := make(chan struct{})
	h.commands <- evictCmd{chatID: chatID, userID: userID, username: username, by: by, reason: reason, done: done}
	<-done
}

// NotifyUser delivers an event to every live session of userID.
func (h *Hub) NotifyUser(userID int, event Event) {
	h.commands <- notifyCmd{userID: userID, event: event}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c] = true
	metrics.ConnectionsActive.Inc()

	if err := h.presence.Connect(context.Background(), c.session.Username); err != nil {
		h.log.Error().Err(err).Str("username", c.session.Username).Msg("presence connect failed")
	}
	h.log.Info().Str("session", c.session.ID).Str("username", c.session.Username).Msg("client connected")

	h.broadcastGlobal(Event{Type: EventUserJoined, Username: c.session.Username})
	h.broadcastOnlineUsers()
}

// handleUnregister runs the disconnect cleanup. The clients map guard
// makes it a no-op when the session was already forgotten, so cleanup
// happens exactly once even if a disconnect races an in-flight leave.
func (h *Hub) handleUnregister(c *Client) {
	if !h.clients[c] {
		return
	}

	h.removeFromRoom(c, true)
	delete(h.clients, c)
	close(c.send)
	metrics.ConnectionsActive.Dec()

	if err := h.presence.Disconnect(context.Background(), c.session.Username); err != nil {
		h.log.Error().Err(err).Str("username", c.session.Username).Msg("presence disconnect failed")
	}
	h.log.Info().Str("session", c.session.ID).Str("username", c.session.Username).Msg("client disconnected")

	h.broadcastGlobal(Event{Type: EventUserLeft, Username: c.session.Username})
	h.broadcastOnlineUsers()
}

func (h *Hub) handleJoin(c *Client, chatID int) {
	if c.session.UserID == 0 {
		h.sendError(c, chat.ErrUnauthenticated)
		return
	}

	// Implicit leave first: whatever the checks below decide, the old
	// subscription must not survive the join attempt.
	h.removeFromRoom(c, true)

	member, err := h.store.IsMember(chatID, c.session.UserID)
	if err != nil {
		h.internalError(c, err, "membership check failed")
		return
	}
	if !member {
		h.sendError(c, chat.ErrNotMember)
		return
	}

	ban, err := h.store.GetBan(chatID, c.session.UserID)
	if err != nil {
		h.internalError(c, err, "ban check failed")
		return
	}
	if ban != nil {
		// Not added to the room; only the joiner learns about the ban.
		c.session.Banned(chatID)
		h.deliver(c, Event{Type: EventBanned, ChatID: chatID, Reason: ban.Reason})
		h.log.Warn().Str("username", c.session.Username).Int("chat_id", chatID).Msg("banned user attempted to join")
		return
	}

	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*Client]bool)
	}
	h.rooms[chatID][c] = true
	c.session.Joined(chatID)
	metrics.RoomJoins.Inc()

	h.log.Info().Str("username", c.session.Username).Int("chat_id", chatID).Msg("joined chat")

	// Others first, then the private ack. The joiner fetches history
	// only after the ack, so no message sent after this point is lost.
	h.broadcast(chatID, Event{Type: EventUserJoined, ChatID: chatID, Username: c.session.Username}, c)
	h.deliver(c, Event{Type: EventJoined, ChatID: chatID})
}

func (h *Hub) handleLeave(c *Client) {
	// Idempotent: leaving while idle is not an error and emits nothing.
	h.removeFromRoom(c, true)
}

func (h *Hub) handleSend(c *Client, content string) {
	room, ok := c.session.Room()
	if !ok {
		// An evicted session is banned, not merely absent from a room.
		if c.session.State() == StateBanned {
			metrics.MessagesRejected.WithLabelValues("banned").Inc()
			h.sendError(c, chat.ErrBanned)
			return
		}
		metrics.MessagesRejected.WithLabelValues("not_in_room").Inc()
		h.sendError(c, chat.ErrNotInRoom)
		return
	}

	content = strings.TrimSpace(content)
	if content == "" {
		metrics.MessagesRejected.WithLabelValues("empty").Inc()
		h.sendError(c, chat.ErrEmptyMessage)
		return
	}

	// Re-checked here: a ban issued after the join must fail an
	// in-flight send even before the eviction command is processed.
	banned, err := h.store.IsBanned(room, c.session.UserID)
	if err != nil {
		h.internalError(c, err, "ban check failed")
		return
	}
	if banned {
		metrics.MessagesRejected.WithLabelValues("banned").Inc()
		h.sendError(c, chat.ErrBanned)
		return
	}

	msg, err := h.store.CreateMessage(room, c.session.UserID, content)
	if err != nil {
		// Not broadcast: an unpersisted message never reaches the room.
		metrics.MessagesRejected.WithLabelValues("persistence").Inc()
		h.log.Error().Err(err).Int("chat_id", room).Msg("message persist failed")
		h.deliver(c, Event{Type: EventError, Code: "transient", Error: "failed to send message"})
		return
	}

	metrics.MessagesSent.Inc()

	// Everyone in the room gets the canonical message, sender included:
	// the sender reconciles its optimistic copy against this echo.
	h.broadcast(room, Event{Type: EventMessage, ChatID: room, Message: msg}, nil)
}

func (h *Hub) handleTyping(c *Client, isTyping bool) {
	room, ok := c.session.Room()
	if !ok {
		return
	}
	h.broadcast(room, Event{Type: EventTyping, ChatID: room, Username: c.session.Username, IsTyping: isTyping}, c)
}

func (h *Hub) handleEvict(cmd evictCmd) {
	defer close(cmd.done)

	for c := range h.rooms[cmd.chatID] {
		if c.session.UserID != cmd.userID {
			continue
		}
		h.deliver(c, Event{Type: EventBanned, ChatID: cmd.chatID, Reason: cmd.reason})
		delete(h.rooms[cmd.chatID], c)
		c.session.Banned(cmd.chatID)
	}
	if len(h.rooms[cmd.chatID]) == 0 {
		delete(h.rooms, cmd.chatID)
	}

	h.log.Info().Str("username", cmd.username).Str("by", cmd.by).Int("chat_id", cmd.chatID).Msg("user evicted")

	// Exactly one notice to the remaining members, whether the target
	// had zero, one, or several live sessions.
	h.broadcast(cmd.chatID, Event{Type: EventUserBanned, ChatID: cmd.chatID, Username: cmd.username, By: cmd.by}, nil)
}

func (h *Hub) handleNotify(cmd notifyCmd) {
	for c := range h.clients {
		if c.session.UserID == cmd.userID {
			h.deliver(c, cmd.event)
		}
	}
}

// removeFromRoom drops the client from its current room, if any, and
// optionally tells the remaining subscribers. Idempotent.
func (h *Hub) removeFromRoom(c *Client, notify bool) {
	room, ok := c.session.Room()
	if !ok {
		return
	}

	subs := h.rooms[room]
	if subs == nil || !subs[c] {
		c.session.Left()
		return
	}

	delete(subs, c)
	if len(subs) == 0 {
		delete(h.rooms, room)
	}
	c.session.Left()

	if notify {
		h.broadcast(room, Event{Type: EventUserLeft, ChatID: room, Username: c.session.Username}, nil)
	}
}

// broadcast delivers an event to every subscriber of a room except the
// optional exclusion. A failure to reach one subscriber never blocks
// delivery to the rest.
func (h *Hub) broadcast(chatID int, event Event, exclude *Client) {
	subs := h.rooms[chatID]
	if len(subs) == 0 {
		return
	}

	n := 0
	for c := range subs {
		if c == exclude {
			continue
		}
		h.deliver(c, event)
		n++
	}
	metrics.BroadcastFanout.Observe(float64(n))
}

// broadcastGlobal delivers an event to every registered client,
// regardless of room.
func (h *Hub) broadcastGlobal(event Event) {
	for c := range h.clients {
		h.deliver(c, event)
	}
}

func (h *Hub) broadcastOnlineUsers() {
	users, err := h.presence.Online(context.Background())
	if err != nil {
		h.log.Error().Err(err).Msg("presence lookup failed")
		return
	}
	h.broadcastGlobal(Event{Type: EventOnlineUsers, Users: users})
}

// deliver queues an event on one connection. The buffered send channel
// preserves per-connection emission order; a client too slow to drain
// its buffer is dropped rather than allowed to stall the hub.
func (h *Hub) deliver(c *Client, event Event) {
	if !h.clients[c] {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("event marshal failed")
		return
	}

	select {
	case c.send <- data:
	default:
		h.forget(c)
	}
}

// forget drops a client that can no longer be written to. Closing the
// send channel stops the write pump, which closes the connection and in
// turn ends the read pump; the subsequent unregister is a no-op.
func (h *Hub) forget(c *Client) {
	if !h.clients[c] {
		return
	}

	delete(h.clients, c)
	if room, ok := c.session.Room(); ok {
		if subs := h.rooms[room]; subs != nil {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.session.Left()
	close(c.send)
	metrics.ConnectionsActive.Dec()

	if err := h.presence.Disconnect(context.Background(), c.session.Username); err != nil {
		h.log.Error().Err(err).Str("username", c.session.Username).Msg("presence disconnect failed")
	}
	h.log.Warn().Str("session", c.session.ID).Str("username", c.session.Username).Msg("slow client dropped")

	h.broadcastGlobal(Event{Type: EventUserLeft, Username: c.session.Username})
	h.broadcastOnlineUsers()
}

func (h *Hub) sendError(c *Client, err error) {
	h.deliver(c, Event{Type: EventError, Code: chat.ErrorCode(err), Error: err.Error()})
}

func (h *Hub) internalError(c *Client, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	h.deliver(c, Event{Type: EventError, Code: "internal", Error: msg})
}
