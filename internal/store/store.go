package store

import "github.com/mzheng/parley/internal/models"

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)

	// Chat operations
	CreateChat(name string, isGroup bool, creatorID int) (int64, error)
	GetChat(chatID int) (*models.Chat, error)
	GetUserChats(userID int) ([]models.Chat, error)
	AddMember(chatID, userID int) error
	RemoveMember(chatID, userID int) error
	IsMember(chatID, userID int) (bool, error)
	IsModerator(chatID, userID int) (bool, error)
	GetChatMembers(chatID int) ([]models.Member, error)
	DeleteChat(chatID int) error

	// Message operations
	CreateMessage(chatID, userID int, content string) (*models.Message, error)
	GetChatMessages(chatID int) ([]models.Message, error)

	// Ban operations
	CreateBan(chatID, userID int, reason string) error
	DeleteBan(chatID, userID int) error
	IsBanned(chatID, userID int) (bool, error)
	GetBan(chatID, userID int) (*models.Ban, error)
	ListBans(chatID int) ([]models.Ban, error)
}
