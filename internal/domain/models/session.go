package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a stored session row. Only the SHA-256 of the bearer token is
// kept; the plaintext token exists once, in the IssuedSession handed to the
// client at login.
type Session struct {
	TokenHash string
	AdminID   uuid.UUID
	IPAddress string
	UserAgent string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its fixed expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IssuedSession carries the plaintext token back to the caller after a
// successful login. It is never persisted.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	Admin     PublicAdmin
}
