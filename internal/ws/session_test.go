package ws

import "testing"

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("sid", 1, "alice")

	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %v", s.State())
	}
	if _, ok := s.Room(); ok {
		t.Fatal("idle session must not report a room")
	}

	s.Joined(7)
	if room, ok := s.Room(); !ok || room != 7 {
		t.Fatalf("expected room 7, got %v %v", room, ok)
	}

	s.Left()
	if s.State() != StateIdle {
		t.Fatalf("expected idle after leave, got %v", s.State())
	}
	// Leaving twice is harmless.
	s.Left()
	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %v", s.State())
	}
}

func TestSessionBanned(t *testing.T) {
	s := NewSession("sid", 1, "alice")
	s.Joined(7)
	s.Banned(7)

	if s.State() != StateBanned {
		t.Fatalf("expected banned, got %v", s.State())
	}
	if _, ok := s.Room(); ok {
		t.Fatal("banned session must not report room membership")
	}
	if !s.BannedFrom(7) {
		t.Fatal("expected BannedFrom(7)")
	}
	if s.BannedFrom(8) {
		t.Fatal("ban is scoped to one room")
	}

	// A join elsewhere is still possible.
	s.Joined(8)
	if room, ok := s.Room(); !ok || room != 8 {
		t.Fatalf("expected room 8, got %v %v", room, ok)
	}
}

func TestSessionStateString(t *testing.T) {
	for state, want := range map[SessionState]string{
		StateIdle:   "idle",
		StateJoined: "joined",
		StateBanned: "banned",
	} {
		if got := state.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}
