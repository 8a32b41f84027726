package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable FromEnv reads so the host environment
// can't leak into a test. t.Setenv restores the old values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DB_DRIVER", "DB_PATH", "DB_HOST", "DB_PORT", "DB_USER",
		"DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "JWT_SECRET", "SESSION_TTL",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL", "COOKIE_SECURE",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/miniblog.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
	assert.False(t, cfg.GitHubEnabled())
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.GitHubEnabled())
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "http://localhost:9090/auth/github/callback", cfg.GitHubCallbackURL)
	assert.Equal(t,
		"host=db.internal port=5432 user=postgres password=s3cret dbname=miniblog sslmode=disable",
		cfg.DatabaseURL())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric port", key: "PORT", value: "eighty"},
		{name: "port out of range", key: "PORT", value: "70000"},
		{name: "bad log level", key: "LOG_LEVEL", value: "loud"},
		{name: "bad session ttl", key: "SESSION_TTL", value: "forever"},
		{name: "negative session ttl", key: "SESSION_TTL", value: "-1h"},
		{name: "unknown driver", key: "DB_DRIVER", value: "mysql"},
		{name: "bad cookie flag", key: "COOKIE_SECURE", value: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
