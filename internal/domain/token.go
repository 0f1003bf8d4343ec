package domain

import "time"

// UnlockToken is a single-use, time-boxed credential bound to one user.
// Redeeming it extends that user's access window. Tokens flip used=false to
// used=true at most once and are never physically deleted.
type UnlockToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	Used      bool
	UsedAt    time.Time
	CreatedAt time.Time
}

// Expired reports whether the token's own validity window has passed.
func (t UnlockToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
