package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/mzheng/parley/internal/models"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		is_group BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS members (
		chat_id INTEGER,
		user_id INTEGER,
		is_moderator BOOLEAN NOT NULL DEFAULT FALSE,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, user_id),
		FOREIGN KEY (chat_id) REFERENCES chats(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER,
		user_id INTEGER,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (chat_id) REFERENCES chats(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS bans (
		chat_id INTEGER,
		user_id INTEGER,
		reason TEXT,
		banned_at DATETIME NOT NULL,
		PRIMARY KEY (chat_id, user_id),
		FOREIGN KEY (chat_id) REFERENCES chats(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (username, password) VALUES (?, ?) RETURNING id")
	return s.db.QueryRow(query, user.Username, user.Password).Scan(&user.ID)
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, password FROM users WHERE username = ?")
	err := s.db.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, password FROM users WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateChat inserts the chat and enrolls the creator as its first
// moderator. Every chat has at least one moderator from birth.
func (s *SQLStore) CreateChat(name string, isGroup bool, creatorID int) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	query := s.rebind("INSERT INTO chats (name, is_group) VALUES (?, ?) RETURNING id")
	if err := tx.QueryRow(query, name, isGroup).Scan(&id); err != nil {
		return 0, err
	}

	query = s.rebind("INSERT INTO members (chat_id, user_id, is_moderator) VALUES (?, ?, TRUE)")
	if _, err := tx.Exec(query, id, creatorID); err != nil {
		return 0, err
	}

	return id, tx.Commit()
}

func (s *SQLStore) GetChat(chatID int) (*models.Chat, error) {
	var chat models.Chat
	query := s.rebind("SELECT id, name, is_group FROM chats WHERE id = ?")
	err := s.db.QueryRow(query, chatID).Scan(&chat.ID, &chat.Name, &chat.IsGroup)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLStore) GetUserChats(userID int) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT c.id, c.name, c.is_group
		FROM chats c
		JOIN members m ON c.id = m.chat_id
		WHERE m.user_id = ?
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.IsGroup); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// AddMember enrolls a user in a chat. A private (non-group) chat holds
// exactly two members; a third insert is rejected here rather than left
// to the UI.
func (s *SQLStore) AddMember(chatID, userID int) error {
	chat, err := s.GetChat(chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup {
		var count int
		query := s.rebind("SELECT COUNT(*) FROM members WHERE chat_id = ?")
		if err := s.db.QueryRow(query, chatID).Scan(&count); err != nil {
			return err
		}
		if count >= 2 {
			return fmt.Errorf("private chat %d is full", chatID)
		}
	}

	query := s.rebind("INSERT INTO members (chat_id, user_id) VALUES (?, ?)")
	_, err = s.db.Exec(query, chatID, userID)
	return err
}

func (s *SQLStore) RemoveMember(chatID, userID int) error {
	query := s.rebind("DELETE FROM members WHERE chat_id = ? AND user_id = ?")
	_, err := s.db.Exec(query, chatID, userID)
	return err
}

func (s *SQLStore) IsMember(chatID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM members WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, chatID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) IsModerator(chatID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM members WHERE chat_id = ? AND user_id = ? AND is_moderator)")
	err := s.db.QueryRow(query, chatID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) GetChatMembers(chatID int) ([]models.Member, error) {
	query := s.rebind(`
		SELECT m.chat_id, m.user_id, u.username, m.is_moderator, m.joined_at
		FROM members m
		JOIN users u ON m.user_id = u.id
		WHERE m.chat_id = ?
	`)
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.Username, &m.IsModerator, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLStore) DeleteChat(chatID int) error {
	// Delete dependents first (foreign key constraints)
	for _, q := range []string{
		"DELETE FROM messages WHERE chat_id = ?",
		"DELETE FROM members WHERE chat_id = ?",
		"DELETE FROM bans WHERE chat_id = ?",
		"DELETE FROM chats WHERE id = ?",
	} {
		if _, err := s.db.Exec(s.rebind(q), chatID); err != nil {
			return err
		}
	}
	return nil
}

// CreateMessage persists the message and returns it with the assigned id
// and server-side timestamp.
func (s *SQLStore) CreateMessage(chatID, userID int, content string) (*models.Message, error) {
	createdAt := time.Now().UTC()

	var id int
	query := s.rebind("INSERT INTO messages (chat_id, user_id, content, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRow(query, chatID, userID, content, createdAt).Scan(&id); err != nil {
		return nil, err
	}

	var username string
	query = s.rebind("SELECT username FROM users WHERE id = ?")
	if err := s.db.QueryRow(query, userID).Scan(&username); err != nil {
		return nil, err
	}

	return &models.Message{
		ID:        id,
		ChatID:    chatID,
		UserID:    userID,
		Username:  username,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

func (s *SQLStore) GetChatMessages(chatID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.chat_id, m.user_id, u.username, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) CreateBan(chatID, userID int, reason string) error {
	query := s.rebind("INSERT INTO bans (chat_id, user_id, reason, banned_at) VALUES (?, ?, ?, ?)")
	_, err := s.db.Exec(query, chatID, userID, reason, time.Now().UTC())
	return err
}

func (s *SQLStore) DeleteBan(chatID, userID int) error {
	query := s.rebind("DELETE FROM bans WHERE chat_id = ? AND user_id = ?")
	_, err := s.db.Exec(query, chatID, userID)
	return err
}

func (s *SQLStore) IsBanned(chatID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM bans WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, chatID, userID).Scan(&exists)
	return exists, err
}

// GetBan returns the active ban row, or nil when the user is not banned.
func (s *SQLStore) GetBan(chatID, userID int) (*models.Ban, error) {
	var b models.Ban
	query := s.rebind("SELECT chat_id, user_id, COALESCE(reason, ''), banned_at FROM bans WHERE chat_id = ? AND user_id = ?")
	err := s.db.QueryRow(query, chatID, userID).Scan(&b.ChatID, &b.UserID, &b.Reason, &b.BannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLStore) ListBans(chatID int) ([]models.Ban, error) {
	query := s.rebind(`
		SELECT b.chat_id, b.user_id, u.username, COALESCE(b.reason, ''), b.banned_at
		FROM bans b
		JOIN users u ON b.user_id = u.id
		WHERE b.chat_id = ?
		ORDER BY b.banned_at ASC
	`)
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bans []models.Ban
	for rows.Next() {
		var b models.Ban
		if err := rows.Scan(&b.ChatID, &b.UserID, &b.Username, &b.Reason, &b.BannedAt); err != nil {
			return nil, err
		}
		bans = append(bans, b)
	}
	return bans, rows.Err()
}
