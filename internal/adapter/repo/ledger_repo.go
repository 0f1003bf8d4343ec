package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"toolgate/internal/domain"
)

// LedgerRepositoryPG implements domain.AccessLedger backed by PostgreSQL.
type LedgerRepositoryPG struct {
	db querier
}

// NewLedgerRepository creates a new LedgerRepositoryPG.
func NewLedgerRepository(db querier) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{db: db}
}

const accessRecordColumns = `user_id, access_expiry, access_count, tools_used, last_used, last_access_unlock, created_at, updated_at`

// Get fetches the access record for a user.
func (r *LedgerRepositoryPG) Get(ctx context.Context, userID string) (*domain.AccessRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accessRecordColumns+` FROM access_records WHERE user_id = $1`, userID)
	return scanAccessRecord(row)
}

// Ensure inserts an empty, already expired record when the user has none.
func (r *LedgerRepositoryPG) Ensure(ctx context.Context, userID string) (*domain.AccessRecord, error) {
	query := `
INSERT INTO access_records (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING ` + accessRecordColumns + `;
`
	row := r.db.QueryRow(ctx, query, userID)
	return scanAccessRecord(row)
}

// GrantWindow resets the access window to now+duration and bumps the
// redemption counter. The update never widens an existing window by the
// remaining time: a fresh window always starts at the moment of redemption.
func (r *LedgerRepositoryPG) GrantWindow(ctx context.Context, userID string, now time.Time, duration time.Duration) (time.Time, error) {
	query := `
UPDATE access_records
SET access_expiry = $2,
    access_count = access_count + 1,
    last_access_unlock = $3,
    updated_at = NOW()
WHERE user_id = $1
RETURNING access_expiry;
`
	var expiry time.Time
	if err := r.db.QueryRow(ctx, query, userID, now.Add(duration), now).Scan(&expiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, err
	}
	return expiry, nil
}

// RecordUsage bumps tools_used and stamps last_used.
func (r *LedgerRepositoryPG) RecordUsage(ctx context.Context, userID string, now time.Time) error {
	query := `
UPDATE access_records
SET tools_used = tools_used + 1,
    last_used = $2,
    updated_at = NOW()
WHERE user_id = $1;
`
	tag, err := r.db.Exec(ctx, query, userID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAccessRecord(row pgx.Row) (*domain.AccessRecord, error) {
	var rec domain.AccessRecord
	err := row.Scan(
		&rec.UserID,
		&rec.AccessExpiry,
		&rec.AccessCount,
		&rec.ToolsUsed,
		&rec.LastUsed,
		&rec.LastAccessUnlock,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
