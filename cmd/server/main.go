// Command server runs the miniblog HTTP server.
//
// Configuration comes from the environment (and an optional .env file); see
// internal/config for the variables and their defaults.
//
// STARTUP SEQUENCE:
//  1. Load configuration (.env, then the environment)
//  2. Build the structured logger at the configured level
//  3. Fill in a random JWT secret if none is configured
//  4. Make sure the SQLite file's directory exists
//  5. server.New opens the store, migrates, seeds and wires everything
//  6. Start serves until SIGINT/SIGTERM, then shuts down gracefully
//
// Any failure before step 6 logs one line and exits with status 1.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/miniblog/internal/config"
	"github.com/sakif/miniblog/internal/server"
)

func main() {
	// --- Step 1: configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Step 2: logger ---
	// TextHandler writes key=value lines; slog.SetDefault makes the plain
	// slog.Info calls in other packages use the same handler.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// --- Step 3: token secret ---
	if cfg.JWTSecret == "" {
		// Sessions signed with a per-process secret die with the process.
		cfg.JWTSecret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		logger.Warn("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	// --- Step 4: database directory ---
	// SQLite creates the file but not missing parent directories.
	if cfg.DBDriver == config.DriverSQLite && !strings.HasPrefix(cfg.DBPath, ":memory:") {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// --- Step 5: wire the server ---
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Step 6: serve (blocks until shutdown) ---
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
