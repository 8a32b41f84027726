package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// CommentService enforces comment ownership.
//
// THE OWNERSHIP RULE:
// Any logged-in user may comment on any post. Only the author of a comment
// may edit or delete it. Editing changes the text and nothing else: author,
// post and timestamp are fixed when the comment is created.
//
// WHERE THE RULE IS ENFORCED:
// Every mutating method goes through owned(), which loads the comment and
// compares its author with the requester. Keeping that check in one helper
// means Edit and Delete cannot drift apart.
//
// SILENT DENIAL:
// A refused edit or delete returns apperror.ErrForbidden, is logged at Warn,
// and changes nothing. The HTTP layer turns it into a plain redirect back to
// the post, with no message shown to the user.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	logger   *slog.Logger
}

// NewCommentService creates a new CommentService.
// posts is only read, to confirm a comment's post exists.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		logger:   logger,
	}
}

// Create attaches a comment by authorID to postID.
//
// ORDER OF CHECKS:
//  1. Anonymous caller → apperror.Unauthorized
//  2. Missing post     → apperror.ErrNotFound (a 404, not a form error)
//  3. Blank text       → apperror.ValidationFailed("text")
//
// The post check comes before the text check on purpose: a comment on a
// post that does not exist is a 404 whatever its text says.
func (s *CommentService) Create(ctx context.Context, authorID, postID int64, text string) (*model.Comment, error) {
	if authorID <= 0 {
		return nil, apperror.Unauthorized("login required to comment")
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("service/comment: loading post %d: %w", postID, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}

	comment := &model.Comment{
		Text:   text,
		UserID: authorID,
		PostID: postID,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: creating comment on post %d: %w", postID, err)
	}

	s.logger.Info("comment created",
		slog.Int64("commentID", comment.ID),
		slog.Int64("postID", postID),
		slog.Int64("userID", authorID),
	)
	return comment, nil
}

// Get returns one comment. Returns apperror.ErrNotFound if it doesn't exist.
func (s *CommentService) Get(ctx context.Context, id int64) (*model.Comment, error) {
	comment, err := s.comments.GetCommentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/comment: loading comment %d: %w", id, err)
	}
	return comment, nil
}

// ListForPost returns the post's comments, oldest first, so a thread reads
// top to bottom.
func (s *CommentService) ListForPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	comments, err := s.comments.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments of post %d: %w", postID, err)
	}
	return comments, nil
}

// Edit replaces the text of a comment requesterID wrote and returns the
// updated comment.
//
// FLOW:
//  1. owned() loads the comment and refuses non-authors (ErrForbidden)
//  2. Blank text is a validation error; the old text stays
//  3. UpdateCommentText touches only the text column
//
// The returned comment is the one loaded in step 1 with its Text replaced,
// which saves a second read.
func (s *CommentService) Edit(ctx context.Context, requesterID, commentID int64, text string) (*model.Comment, error) {
	comment, err := s.owned(ctx, requesterID, commentID, "edit")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}

	if err := s.comments.UpdateCommentText(ctx, commentID, text); err != nil {
		return nil, fmt.Errorf("service/comment: updating comment %d: %w", commentID, err)
	}
	comment.Text = text

	s.logger.Info("comment edited",
		slog.Int64("commentID", commentID),
		slog.Int64("userID", requesterID),
	)
	return comment, nil
}

// Delete removes a comment requesterID wrote. Anyone else gets
// apperror.ErrForbidden and the comment stays.
func (s *CommentService) Delete(ctx context.Context, requesterID, commentID int64) error {
	if _, err := s.owned(ctx, requesterID, commentID, "delete"); err != nil {
		return err
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("service/comment: deleting comment %d: %w", commentID, err)
	}

	s.logger.Info("comment deleted",
		slog.Int64("commentID", commentID),
		slog.Int64("userID", requesterID),
	)
	return nil
}

// owned loads a comment and returns it only if requesterID wrote it.
// action ("edit" or "delete") goes into the log line and error message.
func (s *CommentService) owned(ctx context.Context, requesterID, commentID int64, action string) (*model.Comment, error) {
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: loading comment %d: %w", commentID, err)
	}
	if !comment.OwnedBy(requesterID) {
		s.logger.Warn("comment "+action+" refused",
			slog.Int64("commentID", commentID),
			slog.Int64("requesterID", requesterID),
		)
		return nil, apperror.Forbidden("only the author can " + action + " this comment")
	}
	return comment, nil
}
