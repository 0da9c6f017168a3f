package model

import "time"

// SessionTTL is how long a persisted session may be restored after issuance.
const SessionTTL = 24 * time.Hour

// Session is an authenticated identity, its bearer token and issuance time.
type Session struct {
	Username string
	Token    string
	IssuedAt time.Time
}

// IsZero reports whether the session holds no token.
func (s Session) IsZero() bool {
	return s.Token == ""
}

// IsExpired returns true if more than ttl has passed since issuance at now.
func (s Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.IssuedAt) >= ttl
}
