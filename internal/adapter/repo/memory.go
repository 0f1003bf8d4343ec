package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"toolgate/internal/domain"
)

// StoreMem is an in-memory domain.Store for tests and for running the
// service locally without Postgres. WithinTx serializes callers on one
// mutex and restores a snapshot when fn fails, so it gives the same
// all-or-nothing redemption guarantees as StorePG.
type StoreMem struct {
	mu      sync.Mutex
	records map[string]domain.AccessRecord
	tokens  map[string]domain.UnlockToken
}

// NewStoreMem creates an empty in-memory store.
func NewStoreMem() *StoreMem {
	return &StoreMem{
		records: make(map[string]domain.AccessRecord),
		tokens:  make(map[string]domain.UnlockToken),
	}
}

// Ledger returns a locking view of the access records.
func (s *StoreMem) Ledger() domain.AccessLedger { return memLedger{store: s} }

// Tokens returns a locking view of the unlock tokens.
func (s *StoreMem) Tokens() domain.TokenStore { return memTokens{store: s} }

// WithinTx runs fn under the store lock and rolls the maps back to their
// pre-transaction state when fn fails.
func (s *StoreMem) WithinTx(_ context.Context, fn func(ledger domain.AccessLedger, tokens domain.TokenStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordsBackup := cloneMap(s.records)
	tokensBackup := cloneMap(s.tokens)

	if err := fn(memLedger{store: s, inTx: true}, memTokens{store: s, inTx: true}); err != nil {
		s.records = recordsBackup
		s.tokens = tokensBackup
		return err
	}
	return nil
}

// SeedRecord installs an access record directly, bypassing the contracts.
// Test setup only.
func (s *StoreMem) SeedRecord(rec domain.AccessRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UserID] = rec
}

// SeedToken installs an unlock token directly. Test setup only.
func (s *StoreMem) SeedToken(tok domain.UnlockToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Token] = tok
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memLedger struct {
	store *StoreMem
	inTx  bool
}

func (l memLedger) lock() func() {
	if l.inTx {
		return func() {}
	}
	l.store.mu.Lock()
	return l.store.mu.Unlock
}

func (l memLedger) Get(_ context.Context, userID string) (*domain.AccessRecord, error) {
	defer l.lock()()
	rec, ok := l.store.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (l memLedger) Ensure(_ context.Context, userID string) (*domain.AccessRecord, error) {
	defer l.lock()()
	rec, ok := l.store.records[userID]
	if !ok {
		now := time.Now()
		rec = domain.AccessRecord{UserID: userID, CreatedAt: now, UpdatedAt: now}
		l.store.records[userID] = rec
	}
	return &rec, nil
}

func (l memLedger) GrantWindow(_ context.Context, userID string, now time.Time, duration time.Duration) (time.Time, error) {
	defer l.lock()()
	rec, ok := l.store.records[userID]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	rec.AccessExpiry = now.Add(duration)
	rec.AccessCount++
	rec.LastAccessUnlock = now
	rec.UpdatedAt = now
	l.store.records[userID] = rec
	return rec.AccessExpiry, nil
}

func (l memLedger) RecordUsage(_ context.Context, userID string, now time.Time) error {
	defer l.lock()()
	rec, ok := l.store.records[userID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ToolsUsed++
	rec.LastUsed = now
	rec.UpdatedAt = now
	l.store.records[userID] = rec
	return nil
}

type memTokens struct {
	store *StoreMem
	inTx  bool
}

func (t memTokens) lock() func() {
	if t.inTx {
		return func() {}
	}
	t.store.mu.Lock()
	return t.store.mu.Unlock
}

func (t memTokens) Create(_ context.Context, token *domain.UnlockToken) error {
	defer t.lock()()
	if _, exists := t.store.tokens[token.Token]; exists {
		return fmt.Errorf("token %q already exists", token.Token)
	}
	stored := *token
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	t.store.tokens[token.Token] = stored
	return nil
}

func (t memTokens) Lookup(_ context.Context, token string) (*domain.UnlockToken, error) {
	defer t.lock()()
	tok, ok := t.store.tokens[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return &tok, nil
}

func (t memTokens) MarkUsed(_ context.Context, token string, now time.Time) error {
	defer t.lock()()
	tok, ok := t.store.tokens[token]
	if !ok {
		return domain.ErrTokenNotFound
	}
	if tok.Used {
		return domain.ErrTokenUsed
	}
	tok.Used = true
	tok.UsedAt = now
	t.store.tokens[token] = tok
	return nil
}

var _ domain.Store = (*StoreMem)(nil)
