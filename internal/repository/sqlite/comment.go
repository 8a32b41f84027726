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

// Compile-time check that *DB implements repository.CommentRepository.
var _ repository.CommentRepository = (*DB)(nil)

// commentSelect joins the author so each comment carries its display name.
// Comments have no category; the post is already known from the page.
const commentSelect = `
	SELECT cm.id, cm.text, cm.user_id, cm.post_id, cm.created_at, u.username
	FROM comments cm
	JOIN users u ON u.id = cm.user_id`

// CreateComment inserts a comment and fills in ID and CreatedAt.
//
// A post_id that no longer exists fails the foreign key and comes back as
// apperror.ErrValidation; text over 200 characters fails the length CHECK
// the same way.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.CreatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (text, created_at, user_id, post_id) VALUES (?, ?, ?, ?)`,
		comment.Text,
		comment.CreatedAt,
		comment.UserID,
		comment.PostID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on post %d: %w", comment.PostID, translateError(err, "comment"))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new comment id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetCommentByID returns one comment with its author's name, or
// apperror.ErrNotFound. The service reads it to compare UserID with the
// requester before editing or deleting.
func (db *DB) GetCommentByID(ctx context.Context, id int64) (*model.Comment, error) {
	row := db.conn.QueryRowContext(ctx, commentSelect+` WHERE cm.id = ?`, id)

	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", id, err)
	}
	return c, nil
}

// ListCommentsByPost returns comments oldest first, the order a thread reads in.
func (db *DB) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE cm.post_id = ? ORDER BY cm.created_at, cm.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %d: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

// UpdateCommentText changes only the text column. Author, post and
// created_at are never touched after insert.
//
// The error goes through translateError like an INSERT would, so text
// over the column limit is a validation error here too, not a 500.
func (db *DB) UpdateCommentText(ctx context.Context, id int64, text string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %d: %w", id, translateError(err, "comment"))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteComment removes one comment. Zero rows affected means it was
// already gone, reported as apperror.ErrNotFound.
func (db *DB) DeleteComment(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	return nil
}

// scanComment reads one commentSelect row, in SELECT column order.
func scanComment(row rowScanner) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(
		&c.ID,
		&c.Text,
		&c.UserID,
		&c.PostID,
		&c.CreatedAt,
		&c.AuthorName,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
