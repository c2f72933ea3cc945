package moderation

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mzheng/parley/internal/chat"
	"github.com/mzheng/parley/internal/models"
	"github.com/mzheng/parley/internal/store/sqlstore"
)

type eviction struct {
	chatID, userID       int
	username, by, reason string
}

type fakeEvictor struct {
	evictions []eviction
}

func (f *fakeEvictor) EvictUser(chatID, userID int, username, by, reason string) {
	f.evictions = append(f.evictions, eviction{chatID, userID, username, by, reason})
}

func setup(t *testing.T) (*Service, *sqlstore.SQLStore, *fakeEvictor, *models.User, *models.User, int) {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}

	mod := &models.User{Username: "mod", Password: "pass"}
	target := &models.User{Username: "target", Password: "pass"}
	s.CreateUser(mod)
	s.CreateUser(target)

	chatID, err := s.CreateChat("general", true, mod.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(int(chatID), target.ID); err != nil {
		t.Fatal(err)
	}

	evictor := &fakeEvictor{}
	svc := NewService(s, evictor, zerolog.Nop())
	return svc, s, evictor, mod, target, int(chatID)
}

func TestBan(t *testing.T) {
	svc, s, evictor, mod, target, chatID := setup(t)

	if err := svc.Ban(chatID, mod.ID, target.ID, "spam"); err != nil {
		t.Fatalf("Ban failed: %v", err)
	}

	banned, _ := s.IsBanned(chatID, target.ID)
	if !banned {
		t.Error("expected ban row")
	}

	if len(evictor.evictions) != 1 {
		t.Fatalf("expected 1 eviction, got %d", len(evictor.evictions))
	}
	ev := evictor.evictions[0]
	if ev.username != "target" || ev.by != "mod" || ev.reason != "spam" {
		t.Errorf("unexpected eviction %+v", ev)
	}
}

func TestBanRequiresModerator(t *testing.T) {
	svc, s, evictor, _, target, chatID := setup(t)

	other := &models.User{Username: "other", Password: "pass"}
	s.CreateUser(other)
	s.AddMember(chatID, other.ID)

	err := svc.Ban(chatID, other.ID, target.ID, "")
	if !errors.Is(err, chat.ErrNotModerator) {
		t.Fatalf("expected ErrNotModerator, got %v", err)
	}

	banned, _ := s.IsBanned(chatID, target.ID)
	if banned {
		t.Error("no ban row should exist")
	}
	if len(evictor.evictions) != 0 {
		t.Error("no eviction should happen")
	}
}

func TestCannotBanModerator(t *testing.T) {
	svc, _, evictor, mod, _, chatID := setup(t)

	err := svc.Ban(chatID, mod.ID, mod.ID, "self")
	if !errors.Is(err, chat.ErrCannotBanModerator) {
		t.Fatalf("expected ErrCannotBanModerator, got %v", err)
	}
	if len(evictor.evictions) != 0 {
		t.Error("no eviction should happen")
	}
}

func TestUnban(t *testing.T) {
	svc, s, _, mod, target, chatID := setup(t)

	if err := svc.Ban(chatID, mod.ID, target.ID, "spam"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Unban(chatID, mod.ID, target.ID); err != nil {
		t.Fatalf("Unban failed: %v", err)
	}

	banned, _ := s.IsBanned(chatID, target.ID)
	if banned {
		t.Error("expected ban row removed")
	}
}

func TestUnbanRequiresModerator(t *testing.T) {
	svc, _, _, mod, target, chatID := setup(t)

	svc.Ban(chatID, mod.ID, target.ID, "")

	err := svc.Unban(chatID, target.ID, target.ID)
	if !errors.Is(err, chat.ErrNotModerator) {
		t.Fatalf("expected ErrNotModerator, got %v", err)
	}
}

func TestBansRequiresModerator(t *testing.T) {
	svc, _, _, mod, target, chatID := setup(t)

	svc.Ban(chatID, mod.ID, target.ID, "spam")

	if _, err := svc.Bans(chatID, target.ID); !errors.Is(err, chat.ErrNotModerator) {
		t.Fatalf("expected ErrNotModerator, got %v", err)
	}

	bans, err := svc.Bans(chatID, mod.ID)
	if err != nil {
		t.Fatalf("Bans failed: %v", err)
	}
	if len(bans) != 1 {
		t.Errorf("expected 1 ban, got %d", len(bans))
	}
}
