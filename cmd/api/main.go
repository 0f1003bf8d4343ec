package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"toolgate/internal/access"
	"toolgate/internal/adapter/repo"
	"toolgate/internal/http/handlers"
	"toolgate/internal/http/httpapi"
	"toolgate/internal/infra"
	"toolgate/internal/infra/geoip"
	"toolgate/internal/middleware"
	"toolgate/internal/providers/chat"
	"toolgate/internal/providers/shortlink"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if err := infra.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store := repo.NewStore(dbpool)
	svc := access.NewService(store, logger, access.Options{
		GrantWindow: cfg.AccessWindow,
		TokenTTL:    cfg.UnlockTokenTTL,
	})

	app := &handlers.App{
		Config: cfg,
		Logger: logger,
		Access: svc,
	}

	if cfg.PerplexityAPIKey != "" {
		chatClient, err := chat.NewClient(chat.Options{
			APIKey:    cfg.PerplexityAPIKey,
			Model:     cfg.PerplexityModel,
			BaseURL:   cfg.PerplexityBaseURL,
			MaxTokens: cfg.ChatMaxTokens,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure chat provider")
		}
		app.Chat = chatClient
	} else {
		logger.Warn().Msg("PERPLEXITY_API_KEY not set, chat relay disabled")
	}

	if cfg.VPLinkAPIKey != "" {
		shortener, err := shortlink.NewClient(shortlink.Options{
			APIKey:  cfg.VPLinkAPIKey,
			BaseURL: cfg.VPLinkBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure shortlink provider")
		}
		app.Shortener = shortener
	} else {
		logger.Warn().Msg("VPLINK_API_KEY not set, shortlink relay disabled")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
