// Package postgres implements the repository interfaces on PostgreSQL
// through gorm.
//
// WHY AN ORM HERE AND RAW SQL IN SQLITE?
// The sqlite store is the default and stays close to database/sql. This
// store is the alternative for deployments that already run postgres; gorm
// gives it a schema (AutoMigrate), association loading (Preload) and
// connection handling without a second set of hand-written SQL.
//
// RECORDS VS MODELS:
// Rows are mapped with package-private record types (userRecord,
// postRecord, ...) carrying the gorm tags, so the shared model package
// stays free of ORM concerns. Each record has a toModel method.
//
// SCHEMA:
//   - users, categories, posts, comments, sessions (see records.go)
//   - UNIQUE: users.username, users.email, users.password_hash,
//     users.github_id, posts.title, posts.content
//   - length CHECKs named chk_<table>_<column>, the same names the sqlite
//     store uses, so both report an over-long field identically
//   - comments.post_id → posts.id ON DELETE CASCADE: deleting a post
//     deletes its comments
//   - sessions.user_id → users.id ON DELETE CASCADE
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.Store, this line fails to compile.
var _ repository.Store = (*DB)(nil)

// postgres SQLSTATE codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeStringTooLong       = "22001"
)

// DB wraps a gorm handle and implements repository.Store.
type DB struct {
	gorm *gorm.DB
}

// New connects with the given DSN and migrates the schema.
//
// DSN example (built by config.DatabaseURL):
//
//	host=localhost user=blog password=secret dbname=miniblog port=5432 sslmode=disable
//
// LOGGING:
// gorm has its own logger interface. slogWriter adapts it so gorm's
// messages (slow queries, errors) land in the application's slog output
// at debug level, tagged component=gorm. "record not found" is ignored:
// it is a normal answer here, not a problem.
func New(dsn string, log *slog.Logger) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(slogWriter{log}, logger.Config{
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	db := &DB{gorm: gdb}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// migrate creates or updates the tables.
//
// ORDER MATTERS: a table must exist before another table's foreign key can
// reference it, so referenced tables come first.
func (db *DB) migrate() error {
	return db.gorm.AutoMigrate(
		&userRecord{},
		&categoryRecord{},
		&postRecord{},
		&commentRecord{},
		&sessionRecord{},
	)
}

// Ping checks that the database is reachable. gorm.DB() returns the
// underlying *sql.DB pool.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateError maps postgres constraint violations to domain errors.
//
// errors.As finds the *pgconn.PgError that the pgx driver puts at the
// bottom of gorm's error chain. Its Code is the five-character SQLSTATE:
//
//	23505 unique_violation      → apperror.Duplicate(resource, column)
//	23503 foreign_key_violation → apperror.ValidationFailed
//	23514 check_violation       → apperror.ValidationFailed(column)
//	22001 string too long       → apperror.ValidationFailed
//
// Anything else is returned unchanged and ends up as a 500.
func translateError(err error, resource string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return apperror.Duplicate(resource, constraintColumn(pgErr.ConstraintName, pgErr.TableName))
	case codeForeignKeyViolation:
		return apperror.ValidationFailed("", fmt.Sprintf("%s references a record that does not exist", resource))
	case codeCheckViolation:
		col := constraintColumn(pgErr.ConstraintName, pgErr.TableName)
		return apperror.ValidationFailed(col, fmt.Sprintf("%s is too long", col))
	case codeStringTooLong:
		// A VARCHAR(n) column left over from an older schema. Postgres
		// does not say which column overflowed.
		return apperror.ValidationFailed("", fmt.Sprintf("%s has a value that is too long", resource))
	}
	return err
}

// constraintColumn recovers the column from gorm's constraint naming:
// "idx_<table>_<column>" (uniqueIndex), "<table>_<column>_key" (unique) or
// "chk_<table>_<column>" (the length checks in records.go).
func constraintColumn(constraint, table string) string {
	col := constraint
	col = strings.TrimPrefix(col, "idx_")
	col = strings.TrimPrefix(col, "uni_")
	col = strings.TrimPrefix(col, "chk_")
	col = strings.TrimSuffix(col, "_key")
	if table != "" {
		col = strings.TrimPrefix(col, table+"_")
	}
	if col == "" || col == constraint {
		return "value"
	}
	return strings.ReplaceAll(col, "_", " ")
}

// notFound reports gorm's missing-row error as a domain NotFound.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// slogWriter adapts gorm's printf-style logger to slog.
type slogWriter struct {
	log *slog.Logger
}

// Printf is the one method gorm's logger.Writer interface requires.
func (w slogWriter) Printf(format string, args ...any) {
	w.log.Debug(fmt.Sprintf(format, args...), slog.String("component", "gorm"))
}
