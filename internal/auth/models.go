// Package auth issues and validates editor sessions. Identity is a single
// configured editor credential; sessions are server-side so logout revokes
// immediately.
package auth

import "time"

// Session is the server-side record behind a signed session token.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
