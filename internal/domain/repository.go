package domain

import (
	"context"
	"time"
)

// AccessLedger defines persistence for per-user access records. All expiry
// and counter mutations go through GrantWindow and RecordUsage so the
// monotonicity invariants hold at the storage boundary.
type AccessLedger interface {
	Get(ctx context.Context, userID string) (*AccessRecord, error)
	// Ensure creates an empty (already expired) record when none exists and
	// returns the current record either way.
	Ensure(ctx context.Context, userID string) (*AccessRecord, error)
	// GrantWindow resets the access window to now+duration, increments the
	// redemption counter and stamps last_access_unlock. The window is not
	// additive: unused remaining time is discarded. Returns the new expiry.
	GrantWindow(ctx context.Context, userID string, now time.Time, duration time.Duration) (time.Time, error)
	// RecordUsage increments tools_used and stamps last_used.
	RecordUsage(ctx context.Context, userID string, now time.Time) error
}

// TokenStore defines persistence for single-use unlock tokens.
type TokenStore interface {
	Create(ctx context.Context, token *UnlockToken) error
	Lookup(ctx context.Context, token string) (*UnlockToken, error)
	// MarkUsed flips used from false to true with a conditional update.
	// When the token is already used (a concurrent redeemer won the race)
	// it returns ErrTokenUsed without touching the row.
	MarkUsed(ctx context.Context, token string, now time.Time) error
}

// Store groups the ledger and the token store behind one handle and runs the
// redemption path transactionally: marking a token used and granting the
// window must land together or not at all.
type Store interface {
	Ledger() AccessLedger
	Tokens() TokenStore
	WithinTx(ctx context.Context, fn func(ledger AccessLedger, tokens TokenStore) error) error
}
