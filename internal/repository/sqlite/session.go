package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// Compile-time check that *DB implements repository.SessionRepository.
var _ repository.SessionRepository = (*DB)(nil)

// SESSIONS TABLE:
// One row per login. The id is the random UUID carried in the token's jti
// claim. Rows are never deleted: logout sets revoked_at, and
// AuthService.Authenticate rejects a token whose row is revoked or expired.

// CreateSession stores a new session row. The id comes from the caller
// (uuid.NewString in AuthService), so nothing is read back.
func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session for user %d: %w", session.UserID, translateError(err, "session"))
	}
	return nil
}

// GetSession returns the session row, or apperror.ErrNotFound.
//
// NULLABLE COLUMNS:
// revoked_at is NULL for a live session. Scanning NULL into a time.Time
// fails, so it is scanned into sql.NullTime and converted to the model's
// *time.Time (nil means "not revoked").
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		s       model.Session
		revoked sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}
	if revoked.Valid {
		s.RevokedAt = &revoked.Time
	}
	return &s, nil
}

// RevokeSession marks the session revoked. Revoking an already revoked
// session keeps the original timestamp.
func (db *DB) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: revoking session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("session", id)
	}
	return nil
}
