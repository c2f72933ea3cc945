package sqlstore

import (
	"testing"

	"github.com/mzheng/parley/internal/models"
)

func TestCreateChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	creator := &models.User{Username: "creator", Password: "pass"}
	testStore.CreateUser(creator)

	id, err := testStore.CreateChat("General", true, creator.ID)
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero chat ID")
	}

	// The creator is enrolled as the chat's first moderator
	isMod, err := testStore.IsModerator(int(id), creator.ID)
	if err != nil {
		t.Fatalf("IsModerator failed: %v", err)
	}
	if !isMod {
		t.Error("Expected creator to be a moderator")
	}
}

func TestAddMember(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	creator := &models.User{Username: "creator", Password: "pass"}
	member := &models.User{Username: "member", Password: "pass"}
	testStore.CreateUser(creator)
	testStore.CreateUser(member)

	chatID, _ := testStore.CreateChat("Chat 1", true, creator.ID)

	if err := testStore.AddMember(int(chatID), member.ID); err != nil {
		t.Errorf("Failed to add member: %v", err)
	}

	isMember, err := testStore.IsMember(int(chatID), member.ID)
	if err != nil {
		t.Errorf("IsMember failed: %v", err)
	}
	if !isMember {
		t.Error("Expected user to be a member")
	}

	// A plain member is not a moderator
	isMod, _ := testStore.IsModerator(int(chatID), member.ID)
	if isMod {
		t.Error("Expected member to not be a moderator")
	}
}

func TestPrivateChatMemberCap(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	alice := &models.User{Username: "alice", Password: "pass"}
	bob := &models.User{Username: "bob", Password: "pass"}
	carol := &models.User{Username: "carol", Password: "pass"}
	testStore.CreateUser(alice)
	testStore.CreateUser(bob)
	testStore.CreateUser(carol)

	chatID, _ := testStore.CreateChat("alice-bob", false, alice.ID)

	if err := testStore.AddMember(int(chatID), bob.ID); err != nil {
		t.Fatalf("Failed to add second member: %v", err)
	}
	if err := testStore.AddMember(int(chatID), carol.ID); err == nil {
		t.Error("Expected error adding a third member to a private chat")
	}
}

func TestCreateMessage(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := &models.User{Username: "user1", Password: "pass"}
	testStore.CreateUser(user)
	chatID, _ := testStore.CreateChat("Chat 1", true, user.ID)

	msg, err := testStore.CreateMessage(int(chatID), user.ID, "Hello")
	if err != nil {
		t.Fatalf("Failed to create message: %v", err)
	}
	if msg.ID == 0 {
		t.Error("Expected server-assigned message ID")
	}
	if msg.Username != "user1" {
		t.Errorf("Expected username 'user1', got '%s'", msg.Username)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("Expected server-assigned timestamp")
	}

	messages, err := testStore.GetChatMessages(int(chatID))
	if err != nil {
		t.Fatalf("Failed to get messages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if messages[0].Content != "Hello" {
		t.Errorf("Expected message content 'Hello', got '%s'", messages[0].Content)
	}
}

func TestGetChatMembers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	creator := &models.User{Username: "creator", Password: "pass"}
	member := &models.User{Username: "member", Password: "pass"}
	testStore.CreateUser(creator)
	testStore.CreateUser(member)

	chatID, _ := testStore.CreateChat("Chat 1", true, creator.ID)
	testStore.AddMember(int(chatID), member.ID)

	members, err := testStore.GetChatMembers(int(chatID))
	if err != nil {
		t.Fatalf("GetChatMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}
}

func TestDeleteChat(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	owner := &models.User{Username: "owner", Password: "pass"}
	testStore.CreateUser(owner)
	chatID, _ := testStore.CreateChat("Chat to Delete", true, owner.ID)

	testStore.CreateMessage(int(chatID), owner.ID, "Message")

	if err := testStore.DeleteChat(int(chatID)); err != nil {
		t.Errorf("Failed to delete chat: %v", err)
	}

	isMember, _ := testStore.IsMember(int(chatID), owner.ID)
	if isMember {
		t.Error("Expected user to not be a member after deletion")
	}

	messages, _ := testStore.GetChatMessages(int(chatID))
	if len(messages) != 0 {
		t.Error("Expected messages to be deleted")
	}
}
