// Package client is a Go client for the parley chat server. It speaks
// the REST API for auth and history and the websocket protocol for live
// events, and keeps a reconciled per-room message view.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mzheng/parley/internal/chat"
	"github.com/mzheng/parley/internal/models"
	"github.com/mzheng/parley/internal/ws"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	conn   *websocket.Conn
	events chan ws.Event

	mu         sync.Mutex
	username   string
	pending    int // join awaiting its ack
	selected   int // room whose messages are displayed
	bannedFrom int // last room a ban event arrived for
	history    []models.Message
	live       []models.Message
	optimistic []models.Message
	writeMu    sync.Mutex
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar},
		events:     make(chan ws.Event, 64),
	}, nil
}

// Events exposes the raw server event stream. Slow consumers miss
// events rather than stall the read loop.
func (c *Client) Events() <-chan ws.Event {
	return c.events
}

func (c *Client) Signup(username, password string) error {
	return c.postJSON("/signup", map[string]string{"username": username, "password": password}, nil)
}

func (c *Client) Login(username, password string) error {
	var user models.User
	if err := c.postJSON("/login", map[string]string{"username": username, "password": password}, &user); err != nil {
		return err
	}
	c.mu.Lock()
	c.username = user.Username
	c.mu.Unlock()
	return nil
}

func (c *Client) CreateChat(name string, isGroup bool) (int, error) {
	var resp map[string]int
	if err := c.postJSON("/chats", map[string]interface{}{"name": name, "is_group": isGroup}, &resp); err != nil {
		return 0, err
	}
	return resp["id"], nil
}

// Connect dials the websocket endpoint using the login session cookie
// and starts consuming events.
func (c *Client) Connect() error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"
	dialer := websocket.Dialer{Jar: c.httpClient.Jar}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	go c.readLoop()
	return nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Join selects a room. The local view resets only when the server acks
// the join, so the previous room's backlog is never shown against the
// new room.
func (c *Client) Join(chatID int) error {
	c.mu.Lock()
	c.pending = chatID
	c.mu.Unlock()
	return c.writeCommand(ws.Command{Type: "join", ChatID: chatID})
}

func (c *Client) Leave() error {
	c.mu.Lock()
	c.selected = 0
	c.pending = 0
	c.history = nil
	c.live = nil
	c.optimistic = nil
	c.mu.Unlock()
	return c.writeCommand(ws.Command{Type: "leave"})
}

// Send submits a message and records an optimistic local echo. Blank
// content is rejected locally without a round trip; the server
// validates again regardless.
func (c *Client) Send(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return chat.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.selected == 0 {
		c.mu.Unlock()
		return chat.ErrNotInRoom
	}
	c.optimistic = append(c.optimistic, models.Message{
		ChatID:   c.selected,
		Username: c.username,
		Content:  content,
	})
	c.mu.Unlock()

	return c.writeCommand(ws.Command{Type: "send", Content: content})
}

func (c *Client) Typing(isTyping bool) error {
	return c.writeCommand(ws.Command{Type: "typing", IsTyping: isTyping})
}

// Messages returns the reconciled view for the selected room.
func (c *Client) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := make([]models.Message, 0, len(c.live)+len(c.optimistic))
	live = append(live, c.live...)
	live = append(live, c.optimistic...)
	return Reconcile(c.history, live)
}

// Banned reports whether the last ban notice targeted chatID.
func (c *Client) Banned(chatID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bannedFrom == chatID
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var event ws.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			return
		}
		c.handle(event)
		select {
		case c.events <- event:
		default:
		}
	}
}

func (c *Client) handle(event ws.Event) {
	switch event.Type {
	case ws.EventJoined:
		c.mu.Lock()
		if event.ChatID != c.pending {
			c.mu.Unlock()
			return
		}
		c.selected = event.ChatID
		c.pending = 0
		c.bannedFrom = 0
		c.history = nil
		c.live = nil
		c.optimistic = nil
		c.mu.Unlock()

		// History seeds the view once, after confirmed membership; the
		// live stream is authoritative from here on.
		history, err := c.History(event.ChatID)
		if err != nil {
			return
		}
		c.mu.Lock()
		if c.selected == event.ChatID {
			c.history = history
		}
		c.mu.Unlock()

	case ws.EventMessage:
		if event.Message == nil {
			return
		}
		c.mu.Lock()
		// Events for rooms other than the selected one are discarded.
		if event.Message.ChatID == c.selected {
			c.live = append(c.live, *event.Message)
		}
		c.mu.Unlock()

	case ws.EventBanned:
		c.mu.Lock()
		c.bannedFrom = event.ChatID
		if c.selected == event.ChatID {
			c.selected = 0
		}
		if c.pending == event.ChatID {
			c.pending = 0
		}
		c.mu.Unlock()
	}
}

// History fetches the full message backlog of a chat.
func (c *Client) History(chatID int) ([]models.Message, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/chats/%d/messages", c.baseURL, chatID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history fetch: status %d", resp.StatusCode)
	}

	var messages []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) writeCommand(cmd ws.Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(cmd)
}

func (c *Client) postJSON(path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
