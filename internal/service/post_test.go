package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/miniblog/internal/apperror"
)

func TestCreatePost_Success(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	cat := s.store.categories[1]

	post, err := s.posts.Create(context.Background(), alice.ID, " Hello ", "first post", cat.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.ID == 0 {
		t.Error("expected post to have an ID")
	}
	if post.Title != "Hello" {
		t.Errorf("Title = %q, want trimmed %q", post.Title, "Hello")
	}
	if post.UserID != alice.ID || post.CategoryID != cat.ID {
		t.Errorf("post = %+v, want author %d and category %d", post, alice.ID, cat.ID)
	}
}

func TestCreatePost_Errors(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	s.post(t, alice, "Taken")
	general := s.store.categories[0].ID

	tests := []struct {
		name       string
		authorID   int64
		title      string
		content    string
		categoryID int64
		want       error
	}{
		{"anonymous", 0, "t", "c", general, apperror.ErrUnauthorized},
		{"unknown category", alice.ID, "t", "c", 9999, apperror.ErrValidation},
		{"empty title", alice.ID, "  ", "c", general, apperror.ErrValidation},
		{"empty content", alice.ID, "t", "", general, apperror.ErrValidation},
		{"duplicate title", alice.ID, "Taken", "fresh content", general, apperror.ErrConflict},
		{"duplicate content", alice.ID, "Fresh", "content of Taken", general, apperror.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.posts.Create(context.Background(), tt.authorID, tt.title, tt.content, tt.categoryID)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreatePost_StoreFailure(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	s.store.failWith = errDBDown

	_, err := s.posts.Create(context.Background(), alice.ID, "t", "c", 1)
	if !errors.Is(err, errDBDown) {
		t.Fatalf("error = %v, want the store error", err)
	}
}

func TestListPosts_NewestFirst(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")

	first := s.post(t, alice, "first")
	second := s.post(t, alice, "second")
	third := s.post(t, alice, "third")

	posts, err := s.posts.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []int64{third.ID, second.ID, first.ID}
	if len(posts) != len(want) {
		t.Fatalf("List() returned %d posts, want %d", len(posts), len(want))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Errorf("posts[%d].ID = %d, want %d", i, posts[i].ID, id)
		}
	}
}

func TestListByUser(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	s.post(t, alice, "a1")
	s.post(t, bob, "b1")
	a2 := s.post(t, alice, "a2")

	user, posts, err := s.posts.ListByUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("user = %q, want alice", user.Username)
	}
	if len(posts) != 2 || posts[0].ID != a2.ID {
		t.Errorf("posts = %+v, want alice's two posts newest first", posts)
	}

	if _, _, err := s.posts.ListByUser(context.Background(), 4242); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	s := newTestServices(t)

	if _, err := s.posts.Get(context.Background(), 1234); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeletePost_ByAuthorCascadesComments(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	post := s.post(t, alice, "doomed")
	s.comment(t, bob, post, "nice")

	if err := s.posts.Delete(context.Background(), alice.ID, post.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := s.posts.Get(context.Background(), post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("post still present after delete: %v", err)
	}
	if len(s.store.comments) != 0 {
		t.Errorf("comments = %d, want 0 after cascading delete", len(s.store.comments))
	}
}

func TestDeletePost_NonAuthorForbidden(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	post := s.post(t, alice, "mine")

	err := s.posts.Delete(context.Background(), bob.ID, post.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}

	got, err := s.posts.Get(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("post should survive a refused delete: %v", err)
	}
	if got.Title != "mine" {
		t.Errorf("post changed: %+v", got)
	}
}

func TestDeletePost_Missing(t *testing.T) {
	s := newTestServices(t)
	alice := s.register(t, "alice")

	if err := s.posts.Delete(context.Background(), alice.ID, 31337); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
