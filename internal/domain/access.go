package domain

import "time"

// AccessRecord is the per-user ledger entry that decides whether the user is
// currently entitled to the relays. Counters only ever increase; the expiry
// only moves forward, and only through GrantWindow.
type AccessRecord struct {
	UserID           string
	AccessExpiry     time.Time
	AccessCount      int64
	ToolsUsed        int64
	LastUsed         time.Time
	LastAccessUnlock time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Entitled reports whether the record grants access at the given instant.
// There is no grace period: the instant now reaches AccessExpiry the record
// no longer entitles.
func (r AccessRecord) Entitled(now time.Time) bool {
	return now.Before(r.AccessExpiry)
}
