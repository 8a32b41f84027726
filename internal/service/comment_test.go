package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/miniblog/internal/apperror"
)

func TestCreateComment_Success(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	post := s.post(t, alice, "p")

	c, err := s.comments.Create(context.Background(), bob.ID, post.ID, "hello")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ID == 0 || c.UserID != bob.ID || c.PostID != post.ID {
		t.Errorf("comment = %+v", c)
	}
}

func TestCreateComment_MissingPost(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")

	_, err := s.comments.Create(context.Background(), alice.ID, 999, "into the void")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if len(s.store.comments) != 0 {
		t.Errorf("comments = %d, want 0", len(s.store.comments))
	}
}

func TestCreateComment_Invalid(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	post := s.post(t, alice, "p")

	if _, err := s.comments.Create(context.Background(), 0, post.ID, "x"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("anonymous error = %v, want ErrUnauthorized", err)
	}
	if _, err := s.comments.Create(context.Background(), alice.ID, post.ID, "   "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank text error = %v, want ErrValidation", err)
	}
}

func TestListForPost_OldestFirst(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	post := s.post(t, alice, "p")
	c1 := s.comment(t, alice, post, "one")
	c2 := s.comment(t, alice, post, "two")

	comments, err := s.comments.ListForPost(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("ListForPost() error = %v", err)
	}
	if len(comments) != 2 || comments[0].ID != c1.ID || comments[1].ID != c2.ID {
		t.Errorf("comments = %+v, want [%d %d]", comments, c1.ID, c2.ID)
	}
}

func TestEditComment_ChangesOnlyText(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	post := s.post(t, alice, "p")
	original := s.comment(t, alice, post, "before")

	edited, err := s.comments.Edit(context.Background(), alice.ID, original.ID, "after")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Text != "after" {
		t.Errorf("Text = %q, want %q", edited.Text, "after")
	}

	stored, _ := s.comments.Get(context.Background(), original.ID)
	if stored.Text != "after" {
		t.Errorf("stored Text = %q, want %q", stored.Text, "after")
	}
	if stored.UserID != original.UserID || stored.PostID != original.PostID || !stored.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("edit changed more than text: before %+v, after %+v", original, stored)
	}
}

func TestEditComment_NonAuthorForbidden(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	post := s.post(t, alice, "p")
	c := s.comment(t, alice, post, "mine")

	_, err := s.comments.Edit(context.Background(), bob.ID, c.ID, "hijacked")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}

	stored, _ := s.comments.Get(context.Background(), c.ID)
	if stored.Text != "mine" {
		t.Errorf("Text = %q, want unchanged %q", stored.Text, "mine")
	}
}

func TestEditComment_Missing(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")

	if _, err := s.comments.Edit(context.Background(), alice.ID, 77, "x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteComment(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	post := s.post(t, alice, "p")
	c := s.comment(t, alice, post, "mine")

	if err := s.comments.Delete(context.Background(), bob.ID, c.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("non-author delete error = %v, want ErrForbidden", err)
	}
	if _, err := s.comments.Get(context.Background(), c.ID); err != nil {
		t.Fatalf("comment should survive a refused delete: %v", err)
	}

	if err := s.comments.Delete(context.Background(), alice.ID, c.ID); err != nil {
		t.Fatalf("author delete error = %v", err)
	}
	if _, err := s.comments.Get(context.Background(), c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
