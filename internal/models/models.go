package models

import "time"

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type Chat struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"is_group"`
}

// Member is the (chat, user) association row. Every chat keeps at least
// one moderator: the creator.
type Member struct {
	ChatID      int       `json:"chat_id"`
	UserID      int       `json:"user_id"`
	Username    string    `json:"username"`
	IsModerator bool      `json:"is_moderator"`
	JoinedAt    time.Time `json:"joined_at"`
}

type Message struct {
	ID        int       `json:"id"`
	ChatID    int       `json:"chat_id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Ban exists only while the ban is in force; unban deletes the row.
type Ban struct {
	ChatID   int       `json:"chat_id"`
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Reason   string    `json:"reason,omitempty"`
	BannedAt time.Time `json:"banned_at"`
}
