package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// PostService enforces who may create and delete posts.
//
// THE OWNERSHIP RULE:
// Any logged-in user can write a post. Only the user who wrote a post can
// delete it. Posts are never edited after they are created.
//
// WHY CHECK OWNERSHIP HERE AND NOT IN THE HANDLER?
// The handler only knows "user 7 sent POST /post/3/delete". Whether user 7
// may do that is a business rule, and business rules live in the service.
// The handler then decides how a refusal LOOKS (a silent redirect back to
// the post); the service only decides THAT it is refused.
//
// STRUCT FIELDS:
//   - posts:      reads/writes the posts table
//   - categories: confirms a chosen category exists before inserting
//   - users:      resolves the owner of a "posts by user" listing
//   - logger:     structured logging of business events
type PostService struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	logger     *slog.Logger
}

// NewPostService creates a new PostService.
//
// Three repository interfaces are passed separately even though one store
// implements all of them. The service states exactly which tables it
// touches, and a test can hand it three different fakes if it wants to.
func NewPostService(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:      posts,
		categories: categories,
		users:      users,
		logger:     logger,
	}
}

// Create stores a post written by authorID.
//
// FLOW:
//  1. Refuse anonymous callers (authorID 0) with apperror.Unauthorized
//  2. Require a title and some content
//  3. Confirm the category exists (an unknown one is a validation error,
//     not a 404: the user picked it from a form)
//  4. Insert. The store reports a reused title or content as
//     apperror.ErrConflict and an over-long field as apperror.ErrValidation
//
// There are no other checks: uniqueness and column sizes are the only
// constraints a post has.
func (s *PostService) Create(ctx context.Context, authorID int64, title, content string, categoryID int64) (*model.Post, error) {
	if authorID <= 0 {
		return nil, apperror.Unauthorized("login required to post")
	}

	// === VALIDATION ===
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return nil, apperror.ValidationFailed("title", "title is required")
	case strings.TrimSpace(content) == "":
		return nil, apperror.ValidationFailed("content", "content is required")
	}

	// === CATEGORY LOOKUP ===
	// errors.Is walks the wrap chain, so a NotFound from any store matches.
	if _, err := s.categories.GetCategoryByID(ctx, categoryID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("category", "unknown category")
		}
		return nil, fmt.Errorf("service/post: checking category %d: %w", categoryID, err)
	}

	// === INSERT ===
	// The store fills in ID and CreatedAt on the struct we pass by pointer.
	post := &model.Post{
		Title:      title,
		Content:    content,
		UserID:     authorID,
		CategoryID: categoryID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("postID", post.ID),
		slog.Int64("userID", authorID),
	)
	return post, nil
}

// Delete removes the post when requesterID wrote it.
//
// STRATEGY: "fetch, check, delete"
//  1. Load the post (NotFound if it is already gone)
//  2. Compare its author with the requester
//  3. Delete; the schema's ON DELETE CASCADE removes its comments too
//
// SILENT DENIAL:
// A non-author gets apperror.ErrForbidden and NOTHING changes. The refusal
// is logged at Warn so it is visible to operators, but the HTTP layer shows
// the user no message at all.
func (s *PostService) Delete(ctx context.Context, requesterID, postID int64) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("service/post: loading post %d: %w", postID, err)
	}
	if !post.OwnedBy(requesterID) {
		s.logger.Warn("post delete refused",
			slog.Int64("postID", postID),
			slog.Int64("requesterID", requesterID),
		)
		return apperror.Forbidden("only the author can delete this post")
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("service/post: deleting post %d: %w", postID, err)
	}

	s.logger.Info("post deleted",
		slog.Int64("postID", postID),
		slog.Int64("userID", requesterID),
	)
	return nil
}

// List returns every post, newest first.
//
// No pagination: the index page shows them all.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return posts, nil
}

// ListByUser returns the user and their posts, newest first.
//
// The user is looked up FIRST so that "no such user" (apperror.ErrNotFound,
// a 404 page) is distinguishable from "a user with no posts yet" (an empty
// list on a normal page).
func (s *PostService) ListByUser(ctx context.Context, userID int64) (*model.User, []model.Post, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.NotFound("user", strconv.FormatInt(userID, 10))
		}
		return nil, nil, fmt.Errorf("service/post: loading user %d: %w", userID, err)
	}

	posts, err := s.posts.ListPostsByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/post: listing posts of user %d: %w", userID, err)
	}
	return user, posts, nil
}

// Get returns one post. Returns apperror.ErrNotFound if it doesn't exist.
func (s *PostService) Get(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/post: loading post %d: %w", id, err)
	}
	return post, nil
}
