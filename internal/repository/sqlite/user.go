package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

// userColumns is shared by every SELECT so scanUser always sees the same
// column order.
const userColumns = `id, username, email, password_hash, is_active, github_id, created_at`

// CreateUser inserts a new user and fills in ID and CreatedAt.
// A taken username, email or password hash yields apperror.ErrConflict.
//
// GitHubID is a *int64 in the model (nil for password accounts). The driver
// needs an explicit NULL, so it is converted to sql.NullInt64 first.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	var githubID sql.NullInt64
	if user.GitHubID != nil {
		githubID = sql.NullInt64{Int64: *user.GitHubID, Valid: true}
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_active, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Active,
		githubID,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, translateError(err, "user"))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername is the login lookup. Username comparison is exact
// (SQLite's default BINARY collation), matching the UNIQUE constraint.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

// UpsertGitHubUser keeps the existing account for a GitHub ID, or creates
// one. The existing row is not modified: username and email belong to the
// blog account once it exists, even if they change on GitHub.
//
// FLOW:
//  1. Look the GitHub ID up.
//  2. Found: copy the stored row into *user and return.
//  3. Any error other than "no rows": fail.
//  4. Not found: CreateUser. A username clash with a password account is
//     the usual apperror.ErrConflict, which AuthService retries with a
//     suffixed name.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting GitHub user: github id is required")
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID)

	existing, err := scanUser(row)
	switch {
	case err == nil:
		*user = *existing
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	return db.CreateUser(ctx, user)
}

// scanUser reads one userColumns row. github_id is nullable, so it goes
// through sql.NullInt64 and becomes a fresh *int64 only when present.
func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Active,
		&githubID,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}
