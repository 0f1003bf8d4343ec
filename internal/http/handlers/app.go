package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"toolgate/internal/access"
	"toolgate/internal/infra"
	"toolgate/internal/middleware"
	"toolgate/internal/providers/chat"
)

// ChatProvider relays a conversation to the upstream AI service.
type ChatProvider interface {
	Complete(ctx context.Context, messages []chat.Message, maxTokens int) (string, error)
}

// ShortenProvider relays a URL to the upstream shortener.
type ShortenProvider interface {
	Shorten(ctx context.Context, rawURL string) (string, error)
}

// App bundles the dependencies shared by all HTTP handlers. Providers may be
// nil when their upstream credentials are not configured; the corresponding
// endpoints then fail with a configuration error instead of panicking.
type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Access    *access.Service
	Chat      ChatProvider
	Shortener ShortenProvider
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorResponse{Error: code, Message: msg})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
