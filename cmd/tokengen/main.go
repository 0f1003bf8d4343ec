package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"toolgate/internal/access"
	"toolgate/internal/adapter/repo"
	"toolgate/internal/infra"
)

// tokengen mints an unlock token for a user straight against the database,
// bypassing the HTTP issuance endpoint. Useful for support cases and for
// seeding a local environment.
func main() {
	var (
		userFlag string
		ttlFlag  time.Duration
	)
	flag.StringVar(&userFlag, "user", "", "user ID to bind the token to")
	flag.DurationVar(&ttlFlag, "ttl", 5*time.Minute, "token validity window")
	flag.Parse()

	userID := strings.TrimSpace(userFlag)
	if userID == "" {
		exitWithError(errors.New("-user is required"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tokengen").Logger()
	svc := access.NewService(repo.NewStore(pool), logger, access.Options{TokenTTL: ttlFlag})

	tok, err := svc.IssueToken(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to issue token: %w", err))
	}

	fmt.Printf("token: %s\nuser: %s\nexpires: %s\n", tok.Token, tok.UserID, tok.ExpiresAt.Format(time.RFC3339))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
