// Package repository declares the storage interfaces the services depend on.
//
// Two implementations live in sub-packages: sqlite (modernc.org/sqlite, the
// default) and postgres (gorm). Both translate missing rows into
// apperror.NotFound, unique-constraint failures into apperror.Duplicate and
// foreign-key or length violations into apperror.ValidationFailed, so
// services never see driver errors they need to interpret.
package repository

import (
	"context"
	"time"

	"github.com/sakif/miniblog/internal/model"
)

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHubUser finds the user linked to user.GitHubID, or inserts
	// user as a new account. Either way user is filled with the stored row.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
}

// PostRepository stores posts. Reads include the author and category names.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id int64) (*model.Post, error)
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]model.Post, error)
	// ListPostsByUser returns one author's posts, newest first.
	ListPostsByUser(ctx context.Context, userID int64) ([]model.Post, error)
	// DeletePost removes the post and, through the foreign key, its comments.
	DeletePost(ctx context.Context, id int64) error
}

// CommentRepository stores comments. Reads include the author name.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id int64) (*model.Comment, error)
	// ListCommentsByPost returns a post's comments, oldest first.
	ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error)
	UpdateCommentText(ctx context.Context, id int64, text string) error
	DeleteComment(ctx context.Context, id int64) error
}

// CategoryRepository reads the fixed category list.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	// SeedCategories inserts names only when the table is empty and reports
	// whether it did.
	SeedCategories(ctx context.Context, names []string) (bool, error)
}

// SessionRepository stores login sessions so logout can revoke them.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
}

// Store is everything a backend provides. The server owns one and closes it
// on shutdown.
type Store interface {
	UserRepository
	PostRepository
	CommentRepository
	CategoryRepository
	SessionRepository

	Ping(ctx context.Context) error
	Close() error
}
