package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"toolgate/internal/domain"
)

// TokenRepositoryPG implements domain.TokenStore backed by PostgreSQL.
type TokenRepositoryPG struct {
	db querier
}

// NewTokenRepository creates a new TokenRepositoryPG.
func NewTokenRepository(db querier) *TokenRepositoryPG {
	return &TokenRepositoryPG{db: db}
}

// Create stores a freshly minted unlock token.
func (r *TokenRepositoryPG) Create(ctx context.Context, token *domain.UnlockToken) error {
	query := `
INSERT INTO unlock_tokens (token, user_id, expires_at)
VALUES ($1, $2, $3);
`
	_, err := r.db.Exec(ctx, query, token.Token, token.UserID, token.ExpiresAt)
	return err
}

// Lookup fetches a token record by its opaque value.
func (r *TokenRepositoryPG) Lookup(ctx context.Context, token string) (*domain.UnlockToken, error) {
	row := r.db.QueryRow(ctx, `
SELECT token, user_id, expires_at, used, used_at, created_at
FROM unlock_tokens
WHERE token = $1`, token)

	var t domain.UnlockToken
	if err := row.Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Used, &t.UsedAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkUsed consumes the token with a compare-and-set on the used flag.
// A plain read-then-write here would let two concurrent redeemers both
// spend the token; the conditional update guarantees a single winner.
func (r *TokenRepositoryPG) MarkUsed(ctx context.Context, token string, now time.Time) error {
	query := `
UPDATE unlock_tokens
SET used = TRUE,
    used_at = $2
WHERE token = $1
  AND used = FALSE;
`
	tag, err := r.db.Exec(ctx, query, token, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenUsed
	}
	return nil
}
