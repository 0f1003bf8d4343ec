package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"toolgate/internal/domain"
)

// Service is the access-control core: it redeems unlock tokens against the
// ledger, answers entitlement checks before privileged calls and meters
// usage after them.
type Service struct {
	store       domain.Store
	logger      zerolog.Logger
	grantWindow time.Duration
	tokenTTL    time.Duration
	now         func() time.Time
}

// Options tunes the policy constants of the service. Zero values fall back
// to the defaults observed in production: a 24 hour access window and a
// 5 minute token validity.
type Options struct {
	GrantWindow time.Duration
	TokenTTL    time.Duration
	Now         func() time.Time
}

const (
	defaultGrantWindow = 24 * time.Hour
	defaultTokenTTL    = 5 * time.Minute
)

// NewService creates a Service bound to the given store.
func NewService(store domain.Store, logger zerolog.Logger, opts Options) *Service {
	if opts.GrantWindow <= 0 {
		opts.GrantWindow = defaultGrantWindow
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:       store,
		logger:      logger,
		grantWindow: opts.GrantWindow,
		tokenTTL:    opts.TokenTTL,
		now:         opts.Now,
	}
}

// GrantWindow returns the configured access window length.
func (s *Service) GrantWindow() time.Duration { return s.grantWindow }

// Receipt is the outcome of a successful redemption.
type Receipt struct {
	UserID    string
	NewExpiry time.Time
}

// Redeem validates and consumes an unlock token for userID, extending the
// user's access window. The checks run in a fixed order so the caller can
// surface the first failing one: token exists, not yet used, bound to the
// presented user, not expired, and the user has a ledger entry to extend.
//
// Consuming the token and granting the window happen in one transaction.
// The mark-used step is a compare-and-set, so of N concurrent redemptions
// of the same token exactly one commits and the rest see ErrTokenUsed.
func (s *Service) Redeem(ctx context.Context, userID, token string) (*Receipt, error) {
	now := s.now()
	var receipt *Receipt

	err := s.store.WithinTx(ctx, func(ledger domain.AccessLedger, tokens domain.TokenStore) error {
		tok, err := tokens.Lookup(ctx, token)
		if err != nil {
			return err
		}
		if tok.Used {
			return domain.ErrTokenUsed
		}
		if tok.UserID != userID {
			return domain.ErrTokenUserMismatch
		}
		if tok.Expired(now) {
			return domain.ErrTokenExpired
		}
		if _, err := ledger.Get(ctx, userID); err != nil {
			return err
		}
		if err := tokens.MarkUsed(ctx, token, now); err != nil {
			return err
		}
		expiry, err := ledger.GrantWindow(ctx, userID, now, s.grantWindow)
		if err != nil {
			return fmt.Errorf("grant window: %w", err)
		}
		receipt = &Receipt{UserID: userID, NewExpiry: expiry}
		return nil
	})
	if err != nil {
		if IsDeny(err) {
			s.logger.Debug().Str("user_id", userID).Str("reason", err.Error()).Msg("redemption denied")
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("redemption failed")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Time("new_expiry", receipt.NewExpiry).
		Msg("access window granted")
	return receipt, nil
}

// Authorize is the entitlement gate consulted before every privileged call.
// It never mutates state: usage is recorded separately, and only after the
// downstream operation succeeded.
func (s *Service) Authorize(ctx context.Context, userID string) (*domain.AccessRecord, error) {
	rec, err := s.store.Ledger().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rec.Entitled(s.now()) {
		return nil, domain.ErrAccessExpired
	}
	return rec, nil
}

// RecordUsage meters one privileged operation for the user.
func (s *Service) RecordUsage(ctx context.Context, userID string) error {
	return s.store.Ledger().RecordUsage(ctx, userID, s.now())
}

// Status returns the user's current access record without gating.
func (s *Service) Status(ctx context.Context, userID string) (*domain.AccessRecord, error) {
	return s.store.Ledger().Get(ctx, userID)
}

// IssueToken mints a single-use unlock token bound to userID, creating the
// user's access record when this is the first contact with the ledger.
// Issuance itself grants nothing: the token has to be redeemed.
func (s *Service) IssueToken(ctx context.Context, userID string) (*domain.UnlockToken, error) {
	if _, err := s.store.Ledger().Ensure(ctx, userID); err != nil {
		return nil, fmt.Errorf("ensure access record: %w", err)
	}
	tok := &domain.UnlockToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.store.Tokens().Create(ctx, tok); err != nil {
		return nil, fmt.Errorf("create unlock token: %w", err)
	}
	return tok, nil
}

// IsDeny reports whether err is an expected business rejection rather than
// an infrastructure fault. Rejections are surfaced to the caller as-is and
// never retried; anything else is logged and mapped to a generic failure.
func IsDeny(err error) bool {
	return errors.Is(err, domain.ErrTokenNotFound) ||
		errors.Is(err, domain.ErrTokenUsed) ||
		errors.Is(err, domain.ErrTokenUserMismatch) ||
		errors.Is(err, domain.ErrTokenExpired) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAccessExpired)
}
