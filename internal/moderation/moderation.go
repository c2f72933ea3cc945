// Package moderation enforces the ban rules: only moderators ban and
// unban, moderators cannot be banned, and an issued ban evicts the
// target's live sessions immediately.
package moderation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mzheng/parley/internal/chat"
	"github.com/mzheng/parley/internal/metrics"
	"github.com/mzheng/parley/internal/models"
	"github.com/mzheng/parley/internal/store"
)

// Evictor is the hub surface the moderation service needs: kicking a
// banned user's live sessions out of a room.
type Evictor interface {
	EvictUser(chatID, userID int, username, by, reason string)
}

type Service struct {
	store   store.Store
	evictor Evictor
	log     zerolog.Logger
}

func NewService(store store.Store, evictor Evictor, log zerolog.Logger) *Service {
	return &Service{store: store, evictor: evictor, log: log}
}

// Ban records a ban and forces the target out of the room. The ban row
// is written before the eviction so that any in-flight send from the
// target fails its ban check even if it beats the eviction.
func (s *Service) Ban(chatID, moderatorID, targetID int, reason string) error {
	mod, err := s.store.IsModerator(chatID, moderatorID)
	if err != nil {
		return fmt.Errorf("moderator check: %w", err)
	}
	if !mod {
		return chat.ErrNotModerator
	}

	targetMod, err := s.store.IsModerator(chatID, targetID)
	if err != nil {
		return fmt.Errorf("moderator check: %w", err)
	}
	if targetMod {
		return chat.ErrCannotBanModerator
	}

	if err := s.store.CreateBan(chatID, targetID, reason); err != nil {
		return fmt.Errorf("create ban: %w", err)
	}
	metrics.BansIssued.Inc()

	target, err := s.store.GetUserByID(targetID)
	if err != nil {
		return fmt.Errorf("target lookup: %w", err)
	}
	moderator, err := s.store.GetUserByID(moderatorID)
	if err != nil {
		return fmt.Errorf("moderator lookup: %w", err)
	}

	s.log.Info().
		Int("chat_id", chatID).
		Str("target", target.Username).
		Str("by", moderator.Username).
		Msg("user banned")

	s.evictor.EvictUser(chatID, targetID, target.Username, moderator.Username, reason)
	return nil
}

// Unban removes the ban row. The user is not re-joined; a future join
// simply stops being rejected.
func (s *Service) Unban(chatID, moderatorID, targetID int) error {
	mod, err := s.store.IsModerator(chatID, moderatorID)
	if err != nil {
		return fmt.Errorf("moderator check: %w", err)
	}
	if !mod {
		return chat.ErrNotModerator
	}

	if err := s.store.DeleteBan(chatID, targetID); err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}

	s.log.Info().Int("chat_id", chatID).Int("target_id", targetID).Msg("user unbanned")
	return nil
}

// IsBanned is the read-only predicate consulted on join and send.
func (s *Service) IsBanned(chatID, userID int) (bool, error) {
	return s.store.IsBanned(chatID, userID)
}

// Bans lists the active bans of a chat, moderators only.
func (s *Service) Bans(chatID, moderatorID int) ([]models.Ban, error) {
	mod, err := s.store.IsModerator(chatID, moderatorID)
	if err != nil {
		return nil, fmt.Errorf("moderator check: %w", err)
	}
	if !mod {
		return nil, chat.ErrNotModerator
	}
	return s.store.ListBans(chatID)
}
