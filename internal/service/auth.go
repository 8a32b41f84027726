// Package service holds the blog's business rules.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms, picks the page or redirect
//	Service (business layer) → validates, checks ownership, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// WHY A SEPARATE SERVICE LAYER?
// The rules of this blog are small but strict: only the author may delete a
// post, only the author may edit or delete a comment, a logged-out visitor
// may read but not write. If those checks lived in handlers, every new
// entry point (a second route, a CLI, a test) would have to repeat them.
// Here they are written once and tested with plain function calls.
//
// THE REQUESTER IS AN ARGUMENT:
// Services never read cookies or contexts to find out who is asking. The
// handler passes the logged-in user's ID explicitly (requesterID,
// authorID). That makes "user 2 tries to delete user 1's post" a one-line
// test.
//
// DOMAIN ERRORS, NOT STATUS CODES:
// Services return apperror values (ErrNotFound, ErrForbidden, ErrConflict,
// ErrValidation, ErrUnauthorized). The handler layer decides what each
// looks like in the browser.
//
// DEPENDENCY INJECTION:
// Every service takes repository INTERFACES. Production passes the sqlite
// or postgres store; the tests in this package pass an in-memory fake
// (fake_test.go).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// errBadCredentials is shared by every login failure so the form never
// reveals whether the username exists.
var errBadCredentials = apperror.Unauthorized("invalid username or password")

// AuthService owns registration, login, logout and session checks.
//
//	AuthHandler (HTTP) → AuthService → UserRepository, SessionRepository (DB)
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
//
// DEPENDENCIES (injected via NewAuthService):
//   - users       repository.UserRepository    → user records
//   - sessions    repository.SessionRepository → one row per login
//   - tokens      *auth.TokenService           → sign/verify the cookie JWT
//   - passwords   *auth.PasswordService        → bcrypt hashing
//   - sessionTTL  time.Duration                → how long a login lasts
//   - logger      *slog.Logger                 → structured logging
//
// The now field is time.Now in production. Tests replace it to move the
// clock past a session's expiry without sleeping.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		passwords:  passwords,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// AuthService is what the auth middleware calls on every request.
var _ auth.Authenticator = (*AuthService)(nil)

// AuthResult is returned by the login operations.
// It bundles the user, the signed cookie value and its expiry so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an active account with a bcrypt password hash.
//
// FLOW:
//  1. Trim username and email; all three fields are required
//  2. Hash the password (bcrypt; over 72 bytes is a validation error)
//  3. Insert. A taken username or email comes back from the store as
//     apperror.ErrConflict with Field set, so the form can mark the input
//
// Register does NOT log the user in. The handler sends them to /login.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return nil, apperror.ValidationFailed("username", "username is required")
	case email == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case password == "":
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the password and opens a new session.
//
// ONE ERROR FOR EVERY FAILURE:
// Unknown username, wrong password and inactive account all return the
// same errBadCredentials. A caller probing the form learns nothing about
// which accounts exist. No session row is written on any failure.
//
// A hash that bcrypt cannot even parse is also a failed login, but it is
// logged: it means the users table holds something that is not a bcrypt
// string.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("unusable password hash",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, errBadCredentials
	}
	if !user.Active {
		return nil, errBadCredentials
	}

	return s.openSession(ctx, user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the OAuth code for a GitHubUser profile, this:
//
//  1. Looks the user up by github_id, creating the account on first login
//  2. Opens a session exactly as a password login would
//
// ACCOUNTS WITHOUT A PASSWORD:
// password_hash is NOT NULL UNIQUE, so a GitHub account still needs one.
// It gets the bcrypt hash of a random UUID: unique, and impossible to type
// into /login.
//
// NAME COLLISIONS:
// A GitHub login or email may already belong to a password account. The
// store answers with ErrConflict and we retry once with "<login>-gh<id>"
// and GitHub's noreply address, both of which embed the unique GitHub ID.
// An existing password account is never taken over.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	hash, err := s.passwords.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	// Users who hide their email on GitHub still need a unique one here.
	ghID := ghUser.ID
	email := ghUser.Email
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}
	user := &model.User{
		Username:     ghUser.Login,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		GitHubID:     &ghID,
	}

	// Upsert: an existing row for this github_id is returned as-is (the
	// fresh hash above is then simply discarded); otherwise it is inserted.
	err = s.users.UpsertGitHubUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user.Username = fmt.Sprintf("%s-gh%d", ghUser.Login, ghUser.ID)
		user.Email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
		err = s.users.UpsertGitHubUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}
	if !user.Active {
		return nil, errBadCredentials
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return s.openSession(ctx, user)
}

// openSession writes a session row and signs a token that points at it.
//
// TWO HALVES OF ONE LOGIN:
//   - The session row (id, user, expiry, revoked_at) is the server's record.
//   - The JWT carries the user ID (sub) and the session ID (jti), signed so
//     the browser cannot alter either.
//
// Both expire at the same instant. Logout only has to touch the row.
func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	now := s.now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: creating session for user %d: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, session.ID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("session opened", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout revokes the session behind token.
//
// A token that is empty, invalid, or points at a session that no longer
// exists has nothing to revoke, so those cases return nil. Logout only
// fails when the store itself fails.
//
// After revocation the same cookie value, replayed, is rejected by
// Authenticate even though its signature and expiry are still fine.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}

	if err := s.sessions.RevokeSession(ctx, claims.SessionID, s.now().UTC()); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: revoking session: %w", err)
	}

	s.logger.Info("session revoked", slog.Int64("userID", claims.UserID))
	return nil
}

// Authenticate resolves a cookie token to a user ID.
//
// CHECKS, IN ORDER (any failure → apperror.Unauthorized):
//  1. The JWT signature, issuer and expiry verify
//  2. Its session row exists
//  3. The row belongs to the user the token names, is not revoked and is
//     not expired
//  4. That user still exists and is active
//
// Only a store failure returns something other than Unauthorized; the
// middleware treats that as "not logged in" too, but it is worth a log line.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return 0, apperror.Unauthorized("invalid session token")
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, apperror.Unauthorized("unknown session")
		}
		return 0, fmt.Errorf("service/auth: loading session: %w", err)
	}
	if session.UserID != claims.UserID || !session.Valid(s.now()) {
		return 0, apperror.Unauthorized("session is no longer valid")
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, apperror.Unauthorized("session user no longer exists")
		}
		return 0, fmt.Errorf("service/auth: loading session user: %w", err)
	}
	if !user.Active {
		return 0, apperror.Unauthorized("account is inactive")
	}

	return user.ID, nil
}

// GetUserByID returns the user for the given ID.
//
// Used by the renderer to show who is logged in, and by the profile page.
// Returns apperror.ErrNotFound for unknown IDs.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}
