package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type staticSettings struct {
	values map[string]string
	err    error
}

func (s staticSettings) All(context.Context) (map[string]string, error) {
	return s.values, s.err
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("AUTH_URL", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultTMDBBaseURL, cfg.TMDBBaseURL)
	assert.Zero(t, cfg.CacheTTL)
	assert.Equal(t, "@every 30m", cfg.WarmSchedule)
	assert.True(t, cfg.StandaloneAuth())
	assert.False(t, cfg.QueueEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("AUTH_URL", "https://auth.example.com/auth/v1")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.StandaloneAuth())
	assert.True(t, cfg.QueueEnabled())
}

func TestLoadBareTTLIsSeconds(t *testing.T) {
	t.Setenv("CACHE_TTL", "300")
	assert.Equal(t, 300*time.Second, Load().CacheTTL)

	t.Setenv("CACHE_TTL", "-5")
	assert.Zero(t, Load().CacheTTL)
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"0", 0, false},
		{"300", 5 * time.Minute, false},
		{"15m", 15 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"-1", 0, true},
		{"-2m", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeFromDB(t *testing.T) {
	cfg := &Config{FeaturedSource: "week", WarmSchedule: "@every 30m"}
	cfg.MergeFromDB(context.Background(), staticSettings{values: map[string]string{
		"featured_source": "day",
		"cache_ttl":       "1h",
		"warm_schedule":   "0 */2 * * *",
		"unknown":         "ignored",
	}})
	assert.Equal(t, "day", cfg.FeaturedSource)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "0 */2 * * *", cfg.WarmSchedule)
}

func TestMergeFromDBRejectsBadValues(t *testing.T) {
	cfg := &Config{FeaturedSource: "week", CacheTTL: time.Minute}
	cfg.MergeFromDB(context.Background(), staticSettings{values: map[string]string{
		"featured_source": "month",
		"cache_ttl":       "soon",
	}})
	assert.Equal(t, "week", cfg.FeaturedSource)
	assert.Equal(t, time.Minute, cfg.CacheTTL)

	cfg.MergeFromDB(context.Background(), staticSettings{values: map[string]string{"cache_ttl": "120"}})
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)

	cfg.MergeFromDB(context.Background(), staticSettings{err: errors.New("no table")})
	assert.Equal(t, "week", cfg.FeaturedSource)
}
