// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, services,
// handlers, middleware and routes, and decides:
//   - Which URL patterns map to which handler functions
//   - Which routes need a logged-in user
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go:      config.Load() → server.New(cfg, logger)
//	server.New:   store (sqlite or postgres)
//	              → AuthService, PostService, CommentService, CategoryService
//	              → Renderer → AuthHandler, PostHandler, CommentHandler, UserHandler
//	              → chi router
//
// This is the "composition root" pattern: every dependency is built in one
// place (New/setupRoutes) and handed down, rather than created wherever it
// happens to be needed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/config"
	"github.com/sakif/miniblog/internal/handler"
	"github.com/sakif/miniblog/internal/middleware"
	"github.com/sakif/miniblog/internal/repository"
	pgRepo "github.com/sakif/miniblog/internal/repository/postgres"
	sqliteRepo "github.com/sakif/miniblog/internal/repository/sqlite"
	"github.com/sakif/miniblog/internal/service"
)

// newPasswordService is swapped by tests for a low bcrypt cost. A package
// variable holding a function is the lightest seam Go offers: production
// never touches it.
var newPasswordService = auth.NewPasswordService

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store (a database connection pool). When the server
// shuts down the store must be closed, which flushes SQLite's WAL or
// returns the postgres connections. Start does this on the way out.
//
// store is the repository.Store INTERFACE: Server does not know or care
// which database is behind it.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the store selected by cfg.DBDriver and wires the application.
//
// If wiring fails after the store is open, the store is closed again so a
// failed start leaks no file handle or connection.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// openStore picks the storage backend:
//
//	DB_DRIVER=sqlite   (default) → a file at DB_PATH, or ":memory:"
//	DB_DRIVER=postgres           → gorm on the DSN built from DB_HOST etc.
//
// Both return a repository.Store, so nothing past this function changes.
func openStore(cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := pgRepo.New(cfg.DatabaseURL(), logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, nil
	default:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, nil
	}
}

// NewWithStore wires the application on an already open store and seeds the
// categories.
//
// Tests use it with an in-memory SQLite store so they exercise the real
// router, middleware, services and SQL without touching the filesystem.
func NewWithStore(cfg config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
// *chi.Mux implements http.Handler, so it can be passed anywhere one is
// expected.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the dependency graph and mounts it.
//
// ROUTE STRUCTURE:
//
//	GET       /                     front page
//	GET       /healthz              store ping
//	GET/POST  /register, /login     account forms
//	GET       /logout
//	GET       /post/{id}            post with comments
//	GET       /user/{id}, /user/{id}/posts
//	GET/POST  /post/new                         (auth)
//	POST      /post/{id}/delete                 (auth, author only)
//	GET/POST  /post/{id}/comment                (auth)
//	POST      /comment/{id}                     (auth, author only: delete)
//	GET/POST  /comment/{id}/edit                (auth, author only)
//	GET       /auth/github/login, /auth/github/callback  (when configured)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID   assigns an ID to each request (for tracing in the logs)
//  2. RealIP      takes the client IP from proxy headers
//  3. Logger      logs each request with status and timing
//  4. Recoverer   turns a panic into a 500; inside Logger, so the 500 is
//     logged too
//  5. OptionalAuth  puts the user ID in the context when the cookie is
//     valid, for every page (the navigation needs it)
//
// The protected group adds RequireAuth, which redirects anonymous visitors
// to /login. It reuses the user ID OptionalAuth already found, so the
// session is checked once per request.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := newPasswordService()

	// === SERVICES ===
	// s.store implements every repository interface, so it is passed once
	// per interface the service asks for.
	authService := service.NewAuthService(s.store, s.store, tokens, passwords, s.config.SessionTTL, s.logger)
	postService := service.NewPostService(s.store, s.store, s.store, s.logger)
	commentService := service.NewCommentService(s.store, s.store, s.logger)
	categoryService := service.NewCategoryService(s.store, s.logger)

	// === SEED ===
	// A no-op on every start after the first.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := categoryService.Seed(ctx); err != nil {
		return err
	}

	// === HANDLERS ===
	renderer, err := handler.NewRenderer(categoryService, authService, s.config.GitHubEnabled(), s.logger)
	if err != nil {
		return err
	}

	// Left as a nil interface when GitHub login is off; the handler 404s.
	// Assigning a nil *auth.GitHubProvider instead would make the interface
	// non-nil and the handler would call methods on a nil pointer.
	var github handler.GitHubOAuth
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, github, renderer, s.config.CookieSecure, s.logger)
	postHandler := handler.NewPostHandler(postService, commentService, renderer, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, postService, renderer, s.logger)
	userHandler := handler.NewUserHandler(authService, postService, renderer, s.logger)

	// === GLOBAL MIDDLEWARE ===
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.OptionalAuth(authService))

	// === PUBLIC ROUTES ===
	r.Get("/", postHandler.HandleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Get("/register", authHandler.HandleRegisterForm)
	r.Post("/register", authHandler.HandleRegister)
	r.Get("/login", authHandler.HandleLoginForm)
	r.Post("/login", authHandler.HandleLogin)
	r.Get("/logout", authHandler.HandleLogout)

	r.Get("/post/{id}", postHandler.HandleView)
	r.Get("/user/{id}", userHandler.HandleProfile)
	r.Get("/user/{id}/posts", userHandler.HandlePosts)

	// === PROTECTED ROUTES ===
	// r.Group creates a sub-router that shares the parent's URL space but
	// has its own middleware stack. RequireAuth only applies in here.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService, "/login"))

		r.Get("/post/new", postHandler.HandleNewForm)
		r.Post("/post/new", postHandler.HandleCreate)
		r.Post("/post/{id}/delete", postHandler.HandleDelete)

		r.Get("/post/{id}/comment", commentHandler.HandleNewForm)
		r.Post("/post/{id}/comment", commentHandler.HandleCreate)
		r.Post("/comment/{id}", commentHandler.HandleDelete)
		r.Get("/comment/{id}/edit", commentHandler.HandleEditForm)
		r.Post("/comment/{id}/edit", commentHandler.HandleEdit)
	})

	// === GITHUB LOGIN ===
	// Not mounted at all when unconfigured, so the paths are a plain 404.
	if github != nil {
		r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	return nil
}

// handleHealth reports whether the store answers.
//
// HTTP: GET /healthz
//
// RESPONSES: 200 {"status":"ok"}, or 503 {"status":"unavailable"} when the
// ping fails or takes longer than two seconds. Meant for load balancers
// and container health checks, so it is JSON rather than a page.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Serve until SIGINT (Ctrl+C) or SIGTERM (docker stop, systemd)
//  2. Stop accepting new connections
//  3. Wait up to 30s for in-flight requests to finish
//  4. Close the store (deferred, so it runs on every return path)
//
// The timeouts on http.Server guard against slow clients holding a
// connection open forever.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals. Buffered: signal.Notify does not block,
	// so an unbuffered channel could miss the signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// ListenAndServe blocks, so it runs in a goroutine and reports its
	// result on this channel.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or the server fails.
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
