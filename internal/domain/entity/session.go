package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a live authorization grant created on every successful full
// login. The bearer token stored here is the exact token handed to the
// client; a session is valid only while the current time is before ExpiresAt.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID // Links this session to the User it belongs to.
	Token     string    // The opaque bearer token. Unique across all sessions.
	Client    ClientInfo
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientInfo captures request metadata attached to sessions and to the
// login notification email. All fields are best-effort.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	Location  string
	Timezone  string
}
