package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mzheng/parley/internal/chat"
	"github.com/mzheng/parley/internal/middleware"
	"github.com/mzheng/parley/internal/moderation"
	"github.com/mzheng/parley/internal/store"
	"github.com/mzheng/parley/internal/ws"
)

type ChatHandler struct {
	Store      store.Store
	Hub        *ws.Hub
	Moderation *moderation.Service
}

type CreateChatRequest struct {
	Name    string `json:"name"`
	IsGroup bool   `json:"is_group"`
}

type InviteUserRequest struct {
	Username string `json:"username"`
}

type BanRequest struct {
	UserID int    `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	chatID, err := h.Store.CreateChat(req.Name, req.IsGroup, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int64{"id": chatID})
}

func (h *ChatHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.chatAndUser(w, r)
	if !ok {
		return
	}

	var req InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByUsername(req.Username)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if isMember, err := h.Store.IsMember(chatID, userID); err != nil || !isMember {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.Store.AddMember(chatID, user.ID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// Notify the invited user's live sessions
	h.Hub.NotifyUser(user.ID, ws.Event{Type: ws.EventInvited, ChatID: chatID})

	w.WriteHeader(http.StatusOK)
}

func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	chats, err := h.Store.GetUserChats(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(chats)
}

func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.chatAndUser(w, r)
	if !ok {
		return
	}

	if isMember, err := h.Store.IsMember(chatID, userID); err != nil || !isMember {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if banned, err := h.Store.IsBanned(chatID, userID); err != nil || banned {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	messages, err := h.Store.GetChatMessages(chatID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(messages)
}

func (h *ChatHandler) GetChatMembers(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.chatAndUser(w, r)
	if !ok {
		return
	}

	if isMember, err := h.Store.IsMember(chatID, userID); err != nil || !isMember {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	members, err := h.Store.GetChatMembers(chatID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(members)
}

func (h *ChatHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.chatAndUser(w, r)
	if !ok {
		return
	}

	var req BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Moderation.Ban(chatID, userID, req.UserID, req.Reason); err != nil {
		writeModerationError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *ChatHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.chatAndUser(w, r)
	if !ok {
		return
	}

	var req BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Moderation.Unban(chatID, userID, req.UserID); err != nil {
		writeModerationError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *ChatHandler) ListBans(w http.ResponseWriter, r *http.Request) {
	chatID, userID, ok := h.chatAndUser(w, r)
	if !ok {
		return
	}

	bans, err := h.Moderation.Bans(chatID, userID)
	if err != nil {
		writeModerationError(w, err)
		return
	}

	json.NewEncoder(w).Encode(bans)
}

func (h *ChatHandler) chatAndUser(w http.ResponseWriter, r *http.Request) (chatID, userID int, ok bool) {
	vars := mux.Vars(r)
	chatID, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid chat id", http.StatusBadRequest)
		return 0, 0, false
	}
	return chatID, middleware.UserIDFromContext(r.Context()), true
}

func writeModerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrNotModerator), errors.Is(err, chat.ErrCannotBanModerator):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
