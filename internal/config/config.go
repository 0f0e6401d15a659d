package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/JustinTDCT/Marquee/internal/logging"
)

const (
	DefaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	DefaultKitsuBaseURL = "https://kitsu.io/api/edge"
)

type Config struct {
	Port         int
	DatabaseURL  string
	RedisAddr    string
	AutoMigrate  bool
	WebDir       string
	TMDBToken    string
	TMDBBaseURL  string
	KitsuBaseURL string

	// AuthURL points at a GoTrue compatible auth service. Empty means the
	// built-in standalone provider is used.
	AuthURL    string
	AuthAPIKey string
	JWTSecret  string

	CacheTTL       time.Duration
	WarmSchedule   string
	FeaturedSource string

	LogLevel   string
	LogFormat  string
	SentryDSN  string
	OTLPTarget string
}

func Load() *Config {
	// Real environment variables take precedence over .env entries.
	_ = godotenv.Load()

	return &Config{
		Port:           envInt("PORT", 8080),
		DatabaseURL:    env("DATABASE_URL", "postgres://marquee:marquee@db:5432/marquee?sslmode=disable"),
		RedisAddr:      env("REDIS_ADDR", ""),
		AutoMigrate:    envBool("AUTO_MIGRATE", false),
		WebDir:         env("WEB_DIR", "web"),
		TMDBToken:      env("TMDB_ACCESS_TOKEN", ""),
		TMDBBaseURL:    env("TMDB_BASE_URL", DefaultTMDBBaseURL),
		KitsuBaseURL:   env("KITSU_BASE_URL", DefaultKitsuBaseURL),
		AuthURL:        env("AUTH_URL", ""),
		AuthAPIKey:     env("AUTH_API_KEY", ""),
		JWTSecret:      env("JWT_SECRET", "change-me-in-production"),
		CacheTTL:       envTTL("CACHE_TTL", 0),
		WarmSchedule:   env("CACHE_WARM_SCHEDULE", "@every 30m"),
		FeaturedSource: env("FEATURED_SOURCE", "week"),
		LogLevel:       env("LOG_LEVEL", "info"),
		LogFormat:      env("LOG_FORMAT", "text"),
		SentryDSN:      env("SENTRY_DSN", ""),
		OTLPTarget:     env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// SettingsSource lists runtime settings stored alongside the data.
type SettingsSource interface {
	All(ctx context.Context) (map[string]string, error)
}

// MergeFromDB overlays values stored in the app_settings table.
func (c *Config) MergeFromDB(ctx context.Context, src SettingsSource) {
	values, err := src.All(ctx)
	if err != nil {
		logging.For("config").WithError(err).Warn("skipping DB merge")
		return
	}
	c.apply(values)
}

func (c *Config) apply(values map[string]string) {
	for key, value := range values {
		switch key {
		case "featured_source":
			if value == "day" || value == "week" {
				c.FeaturedSource = value
			}
		case "cache_ttl":
			if d, err := ParseTTL(value); err == nil {
				c.CacheTTL = d
			}
		case "warm_schedule":
			if value != "" {
				c.WarmSchedule = value
			}
		case "auto_migrate":
			if b, err := cast.ToBoolE(value); err == nil {
				c.AutoMigrate = b
			}
		}
	}
}

func (c *Config) StandaloneAuth() bool {
	return c.AuthURL == ""
}

func (c *Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return fallback
}

// ParseTTL reads a cache TTL. A bare integer is seconds ("300"); anything
// else must carry a unit ("15m", "1h"). Negative values are rejected.
func ParseTTL(value string) (time.Duration, error) {
	var d time.Duration
	if n, err := strconv.Atoi(value); err == nil {
		d = time.Duration(n) * time.Second
	} else if d, err = time.ParseDuration(value); err != nil {
		return 0, fmt.Errorf("invalid ttl %q: use seconds or a duration like 15m", value)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid ttl %q: must not be negative", value)
	}
	return d, nil
}

func envTTL(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseTTL(v); err == nil {
			return d
		}
	}
	return fallback
}
