package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mzheng/parley/internal/models"
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
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one websocket connection and its session.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *Session

	// Buffered channel of outbound messages.
	send chan []byte
}

// readPump pumps commands from the websocket connection to the hub.
// The deferred unregister is the single disconnect cleanup path.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.log.Warn().Err(err).Str("session", c.session.ID).Msg("malformed command")
			continue
		}

		switch cmd.Type {
		case "join":
			c.hub.commands <- joinCmd{client: c, chatID: cmd.ChatID}
		case "leave":
			c.hub.commands <- leaveCmd{client: c}
		case "send":
			c.hub.commands <- sendCmd{client: c, content: cmd.Content}
		case "typing":
			c.hub.commands <- typingCmd{client: c, isTyping: cmd.IsTyping}
		default:
			c.hub.log.Warn().Str("type", cmd.Type).Msg("unknown command")
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
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
				// The hub closed the channel.
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

// ServeWs upgrades the request and registers the authenticated user's
// connection with the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, user *models.User) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:     hub,
		conn:    conn,
		session: NewSession(uuid.NewString(), user.ID, user.Username),
		send:    make(chan []byte, 256),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
