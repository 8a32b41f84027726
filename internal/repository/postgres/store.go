package postgres

// This file holds the repository methods, grouped by table. Each method
// follows the same shape:
//  1. Build a record (or an empty one to scan into)
//  2. Run the gorm query with ctx attached (WithContext), so a cancelled
//     request cancels its query
//  3. Translate gorm/postgres errors into apperror values
//  4. Convert records back to model types with toModel

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
)

// ---- users ----

// CreateUser inserts a user and fills in its ID and CreatedAt.
//
// GORM CREATE:
// Create(&r) runs INSERT ... RETURNING id, and gorm writes the returned id
// back into r.ID. We then copy it onto the caller's model, the same
// "pointer in, fields filled" contract as the sqlite store.
//
// A taken username, email or password hash is apperror.ErrConflict with
// Field naming the column; an over-long username or email is
// apperror.ErrValidation (chk_users_*).
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	r := userRecord{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsActive:     user.Active,
		GitHubID:     user.GitHubID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.gorm.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, translateError(err, "user"))
	}
	user.ID = r.ID
	user.CreatedAt = r.CreatedAt
	return nil
}

// GetUserByID returns apperror.ErrNotFound when no row has this id.
//
// First(&r, id) adds "WHERE id = ? ORDER BY id LIMIT 1" and returns
// gorm.ErrRecordNotFound on an empty result, which notFound() detects.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var r userRecord
	if err := db.gorm.WithContext(ctx).First(&r, id).Error; err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}
	return r.toModel(), nil
}

// GetUserByUsername looks a user up for password login.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var r userRecord
	if err := db.gorm.WithContext(ctx).Where("username = ?", username).First(&r).Error; err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("postgres: getting user %q: %w", username, err)
	}
	return r.toModel(), nil
}

// UpsertGitHubUser returns the existing account for user.GitHubID, or
// creates it.
//
// An existing row is returned unchanged: the username and email of a blog
// account are not overwritten by later GitHub profile changes.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("postgres: upserting GitHub user: github id is required")
	}

	var r userRecord
	err := db.gorm.WithContext(ctx).Where("github_id = ?", *user.GitHubID).First(&r).Error
	switch {
	case err == nil:
		*user = *r.toModel()
		return nil
	case !notFound(err):
		return fmt.Errorf("postgres: looking up user by github_id %d: %w", *user.GitHubID, err)
	}
	return db.CreateUser(ctx, user)
}

// ---- categories ----

// ListCategories returns every category in id order, so the seed order is
// the display order.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	var rs []categoryRecord
	if err := db.gorm.WithContext(ctx).Order("id").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing categories: %w", err)
	}
	categories := make([]model.Category, 0, len(rs))
	for i := range rs {
		categories = append(categories, rs[i].toModel())
	}
	return categories, nil
}

// GetCategoryByID lets PostService reject an unknown category before the
// foreign key would.
func (db *DB) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	var r categoryRecord
	if err := db.gorm.WithContext(ctx).First(&r, id).Error; err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("category", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting category %d: %w", id, err)
	}
	c := r.toModel()
	return &c, nil
}

// SeedCategories inserts names when the table is empty and reports whether
// it did.
//
// TRANSACTION:
// The count and the insert run in one transaction, so a failed insert
// leaves no half-seeded table behind. gorm's Transaction commits when the
// callback returns nil and rolls back when it returns an error. Startup is
// the only caller; concurrent seeding is not guarded against.
func (db *DB) SeedCategories(ctx context.Context, names []string) (bool, error) {
	seeded := false
	err := db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&categoryRecord{}).Count(&count).Error; err != nil {
			return fmt.Errorf("counting categories: %w", err)
		}
		if count > 0 || len(names) == 0 {
			return nil
		}
		rs := make([]categoryRecord, 0, len(names))
		for _, name := range names {
			rs = append(rs, categoryRecord{Name: name})
		}
		if err := tx.Create(&rs).Error; err != nil {
			return fmt.Errorf("inserting categories: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("postgres: seeding categories: %w", err)
	}
	return seeded, nil
}

// ---- posts ----

// CreatePost inserts a post and fills in its ID and CreatedAt.
//
// Omit(clause.Associations) stops gorm from trying to upsert the Author
// and Category records hanging off postRecord; only the posts row is
// written. CreatedAt is set here in UTC so the two stores order posts the
// same way.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	r := postRecord{
		Title:      post.Title,
		Content:    post.Content,
		UserID:     post.UserID,
		CategoryID: post.CategoryID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.gorm.WithContext(ctx).Omit(clause.Associations).Create(&r).Error; err != nil {
		return fmt.Errorf("postgres: creating post: %w", translateError(err, "post"))
	}
	post.ID = r.ID
	post.CreatedAt = r.CreatedAt
	return nil
}

// GetPostByID loads a post with its author and category names.
//
// Preload runs one extra SELECT per association and fills Author and
// Category, which toModel flattens into AuthorName and CategoryName.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	var r postRecord
	err := db.gorm.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		First(&r, id).Error
	if err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting post %d: %w", id, err)
	}
	p := r.toModel()
	return &p, nil
}

// ListPosts returns every post, newest first.
func (db *DB) ListPosts(ctx context.Context) ([]model.Post, error) {
	return db.findPosts(db.gorm.WithContext(ctx))
}

// ListPostsByUser returns one author's posts, newest first.
func (db *DB) ListPostsByUser(ctx context.Context, userID int64) ([]model.Post, error) {
	return db.findPosts(db.gorm.WithContext(ctx).Where("user_id = ?", userID))
}

// findPosts runs a post query with the shared preloads and ordering.
//
// ORDERING:
// created_at DESC, then id DESC. Two posts created in the same instant
// still come out in a fixed order, newest insert first.
func (db *DB) findPosts(q *gorm.DB) ([]model.Post, error) {
	var rs []postRecord
	err := q.Preload("Author").
		Preload("Category").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rs).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}
	posts := make([]model.Post, 0, len(rs))
	for i := range rs {
		posts = append(posts, rs[i].toModel())
	}
	return posts, nil
}

// DeletePost removes a post. Its comments go with it: commentRecord
// declares constraint:OnDelete:CASCADE, so the foreign key that
// AutoMigrate creates is "ON DELETE CASCADE" and postgres deletes them in
// the same statement.
//
// Zero rows affected means the post did not exist: apperror.ErrNotFound.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	res := db.gorm.WithContext(ctx).Delete(&postRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting post %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	return nil
}

// ---- comments ----

// CreateComment inserts a comment and fills in its ID and CreatedAt.
//
// A post_id with no post violates the foreign key (23503), which
// translateError reports as apperror.ErrValidation.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	r := commentRecord{
		Text:      comment.Text,
		UserID:    comment.UserID,
		PostID:    comment.PostID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.gorm.WithContext(ctx).Omit(clause.Associations).Create(&r).Error; err != nil {
		return fmt.Errorf("postgres: creating comment on post %d: %w", comment.PostID, translateError(err, "comment"))
	}
	comment.ID = r.ID
	comment.CreatedAt = r.CreatedAt
	return nil
}

// GetCommentByID loads a comment with its author's name.
func (db *DB) GetCommentByID(ctx context.Context, id int64) (*model.Comment, error) {
	var r commentRecord
	if err := db.gorm.WithContext(ctx).Preload("Author").First(&r, id).Error; err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("comment", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("postgres: getting comment %d: %w", id, err)
	}
	c := r.toModel()
	return &c, nil
}

// ListCommentsByPost returns a post's comments, oldest first.
func (db *DB) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	var rs []commentRecord
	err := db.gorm.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at").
		Order("id").
		Find(&rs).Error
	if err != nil {
		return nil, fmt.Errorf("postgres: listing comments for post %d: %w", postID, err)
	}
	comments := make([]model.Comment, 0, len(rs))
	for i := range rs {
		comments = append(comments, rs[i].toModel())
	}
	return comments, nil
}

// UpdateCommentText changes the text column and nothing else.
//
// Update("text", ...) on Model(&commentRecord{}) issues
// "UPDATE comments SET text = ? WHERE id = ?". Text over 200 characters
// fails chk_comments_text and comes back as apperror.ErrValidation.
func (db *DB) UpdateCommentText(ctx context.Context, id int64, text string) error {
	res := db.gorm.WithContext(ctx).
		Model(&commentRecord{}).
		Where("id = ?", id).
		Update("text", text)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating comment %d: %w", id, translateError(res.Error, "comment"))
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteComment removes one comment. apperror.ErrNotFound if it was
// already gone.
func (db *DB) DeleteComment(ctx context.Context, id int64) error {
	res := db.gorm.WithContext(ctx).Delete(&commentRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting comment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	return nil
}

// ---- sessions ----

// CreateSession stores a new login. The caller chooses the ID (a UUID) and
// the expiry.
func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	r := sessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := db.gorm.WithContext(ctx).Omit(clause.Associations).Create(&r).Error; err != nil {
		return fmt.Errorf("postgres: creating session for user %d: %w", session.UserID, translateError(err, "session"))
	}
	return nil
}

// GetSession returns the session row, revoked or not. Deciding whether it
// is still usable is model.Session.Valid's job.
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var r sessionRecord
	if err := db.gorm.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if notFound(err) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("postgres: getting session: %w", err)
	}
	return r.toModel(), nil
}

// RevokeSession marks a session revoked at the given time.
//
// COALESCE keeps the FIRST revocation time: logging out twice does not
// move revoked_at forward.
func (db *DB) RevokeSession(ctx context.Context, id string, at time.Time) error {
	res := db.gorm.WithContext(ctx).
		Model(&sessionRecord{}).
		Where("id = ?", id).
		Update("revoked_at", gorm.Expr("COALESCE(revoked_at, ?)", at))
	if res.Error != nil {
		return fmt.Errorf("postgres: revoking session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("session", id)
	}
	return nil
}
