package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"toolgate/internal/domain"
)

// querier is the subset of pgx executed against both a pool and a
// transaction, so the same repositories serve plain and transactional calls.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StorePG implements domain.Store over a pgx connection pool.
type StorePG struct {
	pool   *pgxpool.Pool
	ledger *LedgerRepositoryPG
	tokens *TokenRepositoryPG
}

// NewStore creates a StorePG with repositories bound to the pool.
func NewStore(pool *pgxpool.Pool) *StorePG {
	return &StorePG{
		pool:   pool,
		ledger: NewLedgerRepository(pool),
		tokens: NewTokenRepository(pool),
	}
}

// Ledger returns the pool-backed access ledger.
func (s *StorePG) Ledger() domain.AccessLedger { return s.ledger }

// Tokens returns the pool-backed token store.
func (s *StorePG) Tokens() domain.TokenStore { return s.tokens }

// WithinTx runs fn with ledger and token repositories bound to a single
// database transaction. fn returning an error rolls everything back, so a
// token is never left consumed without its matching grant.
func (s *StorePG) WithinTx(ctx context.Context, fn func(ledger domain.AccessLedger, tokens domain.TokenStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewLedgerRepository(tx), NewTokenRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ domain.Store = (*StorePG)(nil)
