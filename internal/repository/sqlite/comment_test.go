package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
)

func createTestComment(t *testing.T, db *DB, author *model.User, post *model.Post, text string) *model.Comment {
	t.Helper()
	c := &model.Comment{Text: text, UserID: author.ID, PostID: post.ID}
	if err := db.CreateComment(context.Background(), c); err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return c
}

func TestCreateComment(t *testing.T) {
	db := newTestDB(t)
	categories := seedTestCategories(t, db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice, categories[0].ID, "thread")

	c := createTestComment(t, db, bob, post, "nice post")
	if c.ID == 0 {
		t.Fatal("CreateComment() did not set ID")
	}

	found, err := db.GetCommentByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCommentByID() error = %v", err)
	}
	if found.Text != "nice post" || found.UserID != bob.ID || found.PostID != post.ID {
		t.Errorf("GetCommentByID() = %+v", found)
	}
	if found.AuthorName != "bob" {
		t.Errorf("AuthorName = %q, want bob", found.AuthorName)
	}
}

func TestCreateComment_MissingPost(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	c := &model.Comment{Text: "into the void", UserID: alice.ID, PostID: 999}
	err := db.CreateComment(context.Background(), c)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("CreateComment() error = %v, want ErrValidation from foreign key", err)
	}
}

func TestListCommentsByPost_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	categories := seedTestCategories(t, db)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, categories[0].ID, "thread")
	other := createTestPost(t, db, alice, categories[0].ID, "other")

	c1 := createTestComment(t, db, alice, post, "first")
	createTestComment(t, db, alice, other, "elsewhere")
	c2 := createTestComment(t, db, alice, post, "second")

	comments, err := db.ListCommentsByPost(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("ListCommentsByPost() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("ListCommentsByPost() returned %d comments, want 2", len(comments))
	}
	if comments[0].ID != c1.ID || comments[1].ID != c2.ID {
		t.Errorf("order = [%d %d], want [%d %d]", comments[0].ID, comments[1].ID, c1.ID, c2.ID)
	}
}

func TestUpdateCommentText_OnlyTextChanges(t *testing.T) {
	db := newTestDB(t)
	categories := seedTestCategories(t, db)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, categories[0].ID, "thread")
	c := createTestComment(t, db, alice, post, "typo")

	before, err := db.GetCommentByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCommentByID() error = %v", err)
	}

	if err := db.UpdateCommentText(context.Background(), c.ID, "fixed"); err != nil {
		t.Fatalf("UpdateCommentText() error = %v", err)
	}

	after, err := db.GetCommentByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCommentByID() error = %v", err)
	}
	if after.Text != "fixed" {
		t.Errorf("Text = %q, want fixed", after.Text)
	}
	if after.UserID != before.UserID || after.PostID != before.PostID || !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("non-text fields changed: before %+v, after %+v", before, after)
	}
}

func TestUpdateCommentText_TooLong(t *testing.T) {
	db := newTestDB(t)
	categories := seedTestCategories(t, db)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, categories[0].ID, "thread")
	c := createTestComment(t, db, alice, post, "short")

	err := db.UpdateCommentText(context.Background(), c.ID, strings.Repeat("x", 201))
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("UpdateCommentText() error = %v, want ErrValidation", err)
	}
	if appErr.Field != "text" {
		t.Errorf("Field = %q, want text", appErr.Field)
	}

	got, err := db.GetCommentByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCommentByID() error = %v", err)
	}
	if got.Text != "short" {
		t.Errorf("Text = %q, want short", got.Text)
	}
}

func TestUpdateCommentText_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateCommentText(context.Background(), 5, "x")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateCommentText() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteComment(t *testing.T) {
	db := newTestDB(t)
	categories := seedTestCategories(t, db)
	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice, categories[0].ID, "thread")
	c := createTestComment(t, db, alice, post, "gone soon")

	if err := db.DeleteComment(context.Background(), c.ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if err := db.DeleteComment(context.Background(), c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteComment() error = %v, want ErrNotFound", err)
	}

	// The post itself is untouched.
	if _, err := db.GetPostByID(context.Background(), post.ID); err != nil {
		t.Errorf("GetPostByID() after comment delete error = %v", err)
	}
}
