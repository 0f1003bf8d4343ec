package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"toolgate/internal/http/handlers"
	"toolgate/internal/middleware"
)

// NewRouter wires the middleware chain and routes. The public routes
// (health, verify, token issuance) run without bearer auth; the relays and
// the status endpoint require a valid credential.
func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.I18N(app.Config.DefaultLocale, countryLookup))
	r.Use(middleware.CORS(app.Config.CORSAllowedOrigins))
	r.Use(middleware.Logger(app.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/verify", app.Verify)
	r.Post("/v1/tokens", app.IssueToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		r.Post("/v1/ai/chat", app.ChatComplete)
		r.Post("/v1/shortlink", app.ShortenLink)
		r.Get("/v1/access/status", app.AccessStatus)
	})

	return r
}
