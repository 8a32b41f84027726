package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "$2a$04$abc",
		Active:       true,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_Duplicates(t *testing.T) {
	tests := []struct {
		name      string
		user      model.User
		wantField string
	}{
		{
			name:      "same username",
			user:      model.User{Username: "alice", Email: "b@x.com", PasswordHash: "h2"},
			wantField: "username",
		},
		{
			name:      "same email",
			user:      model.User{Username: "bob", Email: "alice@example.com", PasswordHash: "h2"},
			wantField: "email",
		},
		{
			name:      "same password hash",
			user:      model.User{Username: "bob", Email: "b@x.com", PasswordHash: "hash-of-alice"},
			wantField: "password hash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			createTestUser(t, db, "alice")

			dup := tt.user
			err := db.CreateUser(context.Background(), &dup)
			if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
			}

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("CreateUser() error %v is not an *AppError", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "getbyid")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}

	if found.Username != "getbyid" {
		t.Errorf("Username = %q, want %q", found.Username, "getbyid")
	}
	if !found.Active {
		t.Error("Active = false, want true")
	}
	if found.GitHubID != nil {
		t.Errorf("GitHubID = %v, want nil", *found.GitHubID)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 404)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "carol")

	found, err := db.GetUserByUsername(context.Background(), "carol")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
	if found.PasswordHash != "hash-of-carol" {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, "hash-of-carol")
	}

	_, err = db.GetUserByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername(nobody) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// GITHUB UPSERT TESTS
// =========================================================================

func TestUpsertGitHubUser_NewThenExisting(t *testing.T) {
	db := newTestDB(t)
	ghID := int64(5150)

	first := &model.User{
		Username:     "octocat",
		Email:        "octocat@github.com",
		PasswordHash: "random-1",
		Active:       true,
		GitHubID:     &ghID,
	}
	if err := db.UpsertGitHubUser(context.Background(), first); err != nil {
		t.Fatalf("UpsertGitHubUser() first error = %v", err)
	}
	if first.ID == 0 {
		t.Fatal("UpsertGitHubUser() did not set ID for new user")
	}

	second := &model.User{
		Username:     "renamed",
		Email:        "other@github.com",
		PasswordHash: "random-2",
		Active:       true,
		GitHubID:     &ghID,
	}
	if err := db.UpsertGitHubUser(context.Background(), second); err != nil {
		t.Fatalf("UpsertGitHubUser() second error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second login ID = %d, want %d", second.ID, first.ID)
	}
	if second.Username != "octocat" {
		t.Errorf("Username = %q, want existing %q", second.Username, "octocat")
	}
}

func TestUpsertGitHubUser_RequiresGitHubID(t *testing.T) {
	db := newTestDB(t)

	err := db.UpsertGitHubUser(context.Background(), &model.User{Username: "x"})
	if err == nil {
		t.Fatal("UpsertGitHubUser() without GitHubID should fail")
	}
}
