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

// COMPILE-TIME INTERFACE CHECK:
// Assigning a nil *DB to a PostRepository variable makes the compiler verify
// that every method below exists with the right signature. A missing or
// mistyped method fails the build here, not at the call site in server.go.
var _ repository.PostRepository = (*DB)(nil)

// postSelect joins the author and category so every read returns display
// names along with the row.
//
// WHY A JOIN INSTEAD OF SEPARATE LOOKUPS?
// The index page lists every post with its author and category. Looking
// those up per post would be 1 + 2N queries (the "N+1 problem"); the join
// does it in one. Both joins are INNER: user_id and category_id are NOT
// NULL foreign keys, so every post has exactly one match on each side.
const postSelect = `
	SELECT p.id, p.title, p.content, p.user_id, p.category_id, p.created_at, u.username, c.name
	FROM posts p
	JOIN users u ON u.id = p.user_id
	JOIN categories c ON c.id = p.category_id`

// CreatePost inserts a post and fills in ID and CreatedAt.
//
// ERRORS (via translateError):
//   - duplicate title or content: apperror.ErrConflict on that field
//   - unknown category_id or user_id: apperror.ErrValidation
//   - title over 100 or content over 300 characters: apperror.ErrValidation
//
// The caller's struct is modified in place (pointer argument), so after a
// nil return post.ID is the new row's id.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	// UTC so ordering never depends on the server's time zone.
	post.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (title, content, created_at, user_id, category_id)
		 VALUES (?, ?, ?, ?, ?)`,
		post.Title,
		post.Content,
		post.CreatedAt,
		post.UserID,
		post.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", translateError(err, "post"))
	}

	// LastInsertId is the INTEGER PRIMARY KEY SQLite just assigned.
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPostByID returns one post with author and category names.
//
// QueryRowContext never returns an error itself; a missing row surfaces as
// sql.ErrNoRows from Scan, which becomes apperror.ErrNotFound here.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)

	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}
	return p, nil
}

// ListPosts returns every post, newest first. Rows created within the same
// timestamp fall back to id order so the listing is stable.
func (db *DB) ListPosts(ctx context.Context) ([]model.Post, error) {
	return db.queryPosts(ctx, postSelect+` ORDER BY p.created_at DESC, p.id DESC`)
}

// ListPostsByUser returns one user's posts, newest first. An unknown user
// simply has no posts; the service checks existence separately.
func (db *DB) ListPostsByUser(ctx context.Context, userID int64) ([]model.Post, error) {
	return db.queryPosts(ctx,
		postSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC`, userID)
}

// DeletePost removes the post. Its comments go with it through
// ON DELETE CASCADE.
//
// The cascade only fires because Open turns on PRAGMA foreign_keys; SQLite
// ignores foreign keys on connections where it is off. Zero rows affected
// means the post did not exist.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	return nil
}

// queryPosts runs a postSelect query and scans every row.
//
// THE ROWS LOOP:
//  1. QueryContext returns *sql.Rows holding a connection from the pool
//  2. defer rows.Close() gives the connection back on every return path
//  3. rows.Next() advances; rows.Scan copies columns into Go values
//  4. rows.Err() reports an error that ended the loop early
//
// The result is never nil, so templates can range over it directly.
func (db *DB) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// scanPost reads one postSelect row. The Scan targets must be in the same
// order as the SELECT columns.
func scanPost(row rowScanner) (*model.Post, error) {
	var p model.Post
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Content,
		&p.UserID,
		&p.CategoryID,
		&p.CreatedAt,
		&p.AuthorName,
		&p.CategoryName,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
