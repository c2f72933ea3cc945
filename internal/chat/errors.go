// Package chat holds the domain error taxonomy shared by the websocket
// hub, the moderation service, and the HTTP handlers. All of these are
// recoverable: they are reported to the originating connection and never
// take down the hub or affect other sessions.
package chat

import "errors"

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrBanned             = errors.New("banned from this chat")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrNotModerator       = errors.New("not a moderator of this chat")
	ErrCannotBanModerator = errors.New("cannot ban a moderator")
	ErrNotInRoom          = errors.New("not in a chat room")
	ErrNotMember          = errors.New("not a member of this chat")
)

// ErrorCode returns the wire code for a domain error, or "internal" for
// anything outside the taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrBanned):
		return "banned"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrNotModerator):
		return "not_moderator"
	case errors.Is(err, ErrCannotBanModerator):
		return "cannot_ban_moderator"
	case errors.Is(err, ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, ErrNotMember):
		return "not_member"
	default:
		return "internal"
	}
}
