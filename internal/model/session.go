package model

import "time"

// Session is the server-side record behind a login cookie. Logging out sets
// RevokedAt; a revoked or expired session no longer authenticates anyone.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Valid reports whether the session can still authenticate requests at now.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
