package ws

// SessionState is the lifecycle of a session with respect to its
// current room.
type SessionState int

const (
	// StateIdle: authenticated, not in any room.
	StateIdle SessionState = iota
	// StateJoined: subscribed to exactly one room.
	StateJoined
	// StateBanned: the last join or send hit a ban. Terminal for that
	// room until the ban row is removed; joining a different room is
	// still allowed.
	StateBanned
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJoined:
		return "joined"
	case StateBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// Session binds a connection to an authenticated identity and tracks
// its room membership. A session is in at most one room at any instant.
// All mutations happen on the hub goroutine.
type Session struct {
	ID       string
	UserID   int
	Username string

	state SessionState
	room  int // chat id; 0 unless state is StateJoined or StateBanned
}

func NewSession(id string, userID int, username string) *Session {
	return &Session{ID: id, UserID: userID, Username: username, state: StateIdle}
}

func (s *Session) State() SessionState { return s.state }

// Room returns the chat the session is subscribed to, if any.
func (s *Session) Room() (int, bool) {
	if s.state != StateJoined {
		return 0, false
	}
	return s.room, true
}

// Joined records a successful room subscription.
func (s *Session) Joined(chatID int) {
	s.state = StateJoined
	s.room = chatID
}

// Left returns the session to idle. Idempotent.
func (s *Session) Left() {
	s.state = StateIdle
	s.room = 0
}

// Banned records a rejected join or a forced eviction from chatID.
func (s *Session) Banned(chatID int) {
	s.state = StateBanned
	s.room = chatID
}

// BannedFrom reports whether the session's last ban was for chatID.
func (s *Session) BannedFrom(chatID int) bool {
	return s.state == StateBanned && s.room == chatID
}
