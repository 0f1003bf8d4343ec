package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	JWTSecret          string
	IssuerKey          string
	CORSAllowedOrigins []string
	DefaultLocale      string
	GeoIPDBPath        string

	// Access policy. The defaults mirror the production constants: a
	// redeemed token buys 24 hours, an issued token is valid for 5 minutes.
	AccessWindow   time.Duration
	UnlockTokenTTL time.Duration

	PerplexityAPIKey  string
	PerplexityModel   string
	PerplexityBaseURL string
	ChatMaxTokens     int

	VPLinkAPIKey  string
	VPLinkBaseURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		IssuerKey:          os.Getenv("ISSUER_KEY"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		AccessWindow:       time.Hour * time.Duration(getEnvInt("ACCESS_WINDOW_HOURS", 24)),
		UnlockTokenTTL:     time.Minute * time.Duration(getEnvInt("UNLOCK_TOKEN_TTL_MINUTES", 5)),
		PerplexityAPIKey:   os.Getenv("PERPLEXITY_API_KEY"),
		PerplexityModel:    getEnv("PERPLEXITY_MODEL", "sonar"),
		PerplexityBaseURL:  getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		ChatMaxTokens:      getEnvInt("CHAT_MAX_TOKENS", 500),
		VPLinkAPIKey:       os.Getenv("VPLINK_API_KEY"),
		VPLinkBaseURL:      getEnv("VPLINK_BASE_URL", "https://vplink.in/api"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.IssuerKey == "" {
		return nil, fmt.Errorf("ISSUER_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
