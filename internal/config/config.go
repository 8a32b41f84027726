// Package config loads the server configuration from the environment.
//
// Values come from process environment variables. An optional .env file in
// the working directory is loaded first (variables already set in the
// environment win over the file). Every setting has a default so that a bare
// `go run ./cmd/server` starts a working SQLite-backed blog.
//
// VARIABLES:
//
//	PORT                 8080
//	LOG_LEVEL            info (debug, info, warn, error)
//	DB_DRIVER            sqlite (or postgres)
//	DB_PATH              data/miniblog.db (sqlite only; ":memory:" for tests)
//	DB_HOST .. DB_SSLMODE  postgres connection settings
//	JWT_SECRET           random per process when unset
//	SESSION_TTL          24h
//	COOKIE_SECURE        false
//	GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET  both set to enable GitHub login
//	GITHUB_CALLBACK_URL  http://localhost:<PORT>/auth/github/callback
//
// WHY ENVIRONMENT VARIABLES?
// The same binary runs on a laptop, in a container and in CI; only the
// environment differs. Secrets stay out of the repository, and .env gives
// local development the same mechanism without exporting anything.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every setting the server needs.
//
// It is a plain value struct: Load builds it once in main and it is passed
// down by value, so nothing reads os.Getenv after startup.
type Config struct {
	Port     int
	LogLevel slog.Level

	DBDriver   string
	DBPath     string // sqlite file, or ":memory:"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool // mark session cookies Secure (HTTPS deployments)

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Load reads .env (if present) and then the environment.
//
// godotenv.Load never overrides a variable that is already set, so a value
// exported in the shell or by the container runtime beats the file. A
// missing .env is normal and ignored; a malformed one is an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
//
// Tests call it directly with t.Setenv, skipping any .env on disk. Every
// parse failure is returned rather than defaulted, so a typo such as
// SESSION_TTL=1d stops the server at startup instead of being ignored.
func FromEnv() (Config, error) {
	cfg := Config{
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:             getEnv("DB_PATH", "data/miniblog.db"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_NAME", "miniblog"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("config: invalid PORT %q", os.Getenv("PORT"))
	}
	cfg.Port = port

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("config: invalid SESSION_TTL %q", os.Getenv("SESSION_TTL"))
	}
	cfg.SessionTTL = ttl

	secure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid COOKIE_SECURE %q", os.Getenv("COOKIE_SECURE"))
	}
	cfg.CookieSecure = secure

	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("config: unknown DB_DRIVER %q", cfg.DBDriver)
	}

	cfg.GitHubCallbackURL = getEnv("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	return cfg, nil
}

// DatabaseURL is the postgres DSN built from the DB_* settings, in the
// key=value form both pgx and gorm's postgres driver accept.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// GitHubEnabled reports whether both GitHub OAuth credentials are configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// getEnv returns the variable's value, or defaultVal when it is unset OR
// empty.
func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
