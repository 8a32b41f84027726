// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, a pure Go port, so no cgo toolchain is
// needed to build the server).
//
// The usual database/sql pattern applies throughout:
//  1. sql.Open("sqlite", dsn) creates a pool
//  2. ExecContext / QueryContext / QueryRowContext run statements
//  3. Scan copies columns into model fields
//
// Driver errors never leave this package raw: sql.ErrNoRows becomes
// apperror.NotFound, UNIQUE failures become apperror.Duplicate and
// length CHECK failures become apperror.ValidationFailed.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/repository"
)

// One check for the whole Store; each entity file repeats it for its own
// interface so a missing method is reported next to its siblings.
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
//
// WHY sql.DB IS A POOL, NOT A CONNECTION:
// sql.Open does not connect; it returns a handle that opens connections on
// demand and reuses them across goroutines. One *DB is shared by every
// request for the life of the process, and Close is called once at
// shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath and runs
// migrations.
//
// dbPath examples:
//   - "data/miniblog.db" → file-based database
//   - ":memory:"         → in-memory database, gone on Close
//
// Pragmas that SQLite scopes to a single connection (foreign_keys,
// busy_timeout) go in the DSN so the driver applies them to every pooled
// connection, not just the first one.
//
// STEPS:
//  1. Build the DSN with per-connection pragmas
//  2. sql.Open (lazy) and Ping (forces a real connection, surfacing a bad
//     path or permissions immediately)
//  3. Switch the file to WAL
//  4. Create any missing tables
//
// On any failure after Open, the pool is closed before returning.
func New(dbPath string) (*DB, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new, empty database.
	// Pin the pool to one connection so the schema is visible everywhere.
	if strings.HasPrefix(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. It is a
	// property of the database file, so setting it once is enough.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is IF NOT EXISTS, so running
// it against an existing database is a no-op.
//
// COLUMN SIZES:
// SQLite accepts any length in a VARCHAR(n) column; the n is only a hint.
// The limits of the data model are therefore spelled out as named CHECK
// constraints, "chk_<table>_<column>", the same names the postgres store
// gives them. A too-long value fails the same way on both backends and
// translateError can report which column it was.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				username      VARCHAR(100) NOT NULL UNIQUE,
				email         VARCHAR(100) NOT NULL UNIQUE,
				password_hash VARCHAR(256) NOT NULL UNIQUE,
				is_active     BOOLEAN NOT NULL DEFAULT 1,
				github_id     INTEGER UNIQUE,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				CONSTRAINT chk_users_username CHECK (length(username) <= 100),
				CONSTRAINT chk_users_email CHECK (length(email) <= 100)
			);`},
		{"categories", `
			CREATE TABLE IF NOT EXISTS categories (
				id   INTEGER PRIMARY KEY AUTOINCREMENT,
				name VARCHAR(100) NOT NULL
			);`},
		{"posts", `
			CREATE TABLE IF NOT EXISTS posts (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				title       VARCHAR(100) NOT NULL UNIQUE,
				content     VARCHAR(300) NOT NULL UNIQUE,
				created_at  DATETIME NOT NULL,
				user_id     INTEGER NOT NULL REFERENCES users(id),
				category_id INTEGER NOT NULL REFERENCES categories(id),
				CONSTRAINT chk_posts_title CHECK (length(title) <= 100),
				CONSTRAINT chk_posts_content CHECK (length(content) <= 300)
			);
			CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
			CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				text       VARCHAR(200) NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				user_id    INTEGER NOT NULL REFERENCES users(id),
				post_id    INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				CONSTRAINT chk_comments_text CHECK (length(text) <= 200)
			);
			CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id         TEXT PRIMARY KEY,
				user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				revoked_at DATETIME
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
//
// It lets one scanX function serve the single-row getters and the rows
// loops alike: Go interfaces are satisfied implicitly, so neither type has
// to declare that it implements this.
type rowScanner interface {
	Scan(dest ...any) error
}

// translateError maps SQLite constraint failures to domain errors. Anything
// it doesn't recognise is returned unchanged.
//
// EXTENDED RESULT CODES:
// modernc's *sqlite.Error carries SQLite's extended code, which names the
// kind of constraint, not just "constraint failed":
//
//	SQLITE_CONSTRAINT_UNIQUE      2067  -> apperror.Duplicate(resource, column)
//	SQLITE_CONSTRAINT_FOREIGNKEY   787  -> apperror.ValidationFailed("")
//	SQLITE_CONSTRAINT_CHECK        275  -> apperror.ValidationFailed(column)
//
// errors.As walks the wrap chain, so it works whether or not database/sql
// wrapped the driver error.
func translateError(err error, resource string) error {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return apperror.Duplicate(resource, uniqueColumn(se.Error()))
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return apperror.ValidationFailed("", fmt.Sprintf("%s references a record that does not exist", resource))
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		col := checkColumn(se.Error())
		return apperror.ValidationFailed(col, fmt.Sprintf("%s is too long", col))
	}
	return err
}

// checkColumn extracts the column from a length check failure such as
// "CHECK constraint failed: chk_posts_title (275)". Table names hold no
// underscore, so the column is whatever follows "chk_<table>_".
func checkColumn(msg string) string {
	const marker = "CHECK constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "value"
	}
	name := msg[i+len(marker):]
	if end := strings.IndexAny(name, " ,("); end >= 0 {
		name = name[:end]
	}
	name = strings.TrimPrefix(name, "chk_")
	if _, col, ok := strings.Cut(name, "_"); ok && col != "" {
		return col
	}
	return "value"
}

// uniqueColumn extracts the column from a message such as
// "UNIQUE constraint failed: users.username (2067)".
func uniqueColumn(msg string) string {
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "value"
	}
	rest := msg[i+len(marker):]
	if end := strings.IndexAny(rest, " ,("); end >= 0 {
		rest = rest[:end]
	}
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		rest = rest[dot+1:]
	}
	if rest == "" {
		return "value"
	}
	return strings.ReplaceAll(rest, "_", " ")
}
