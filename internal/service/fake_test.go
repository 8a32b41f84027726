package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/model"
	"github.com/sakif/miniblog/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. It enforces the same unique
// columns and the post→comments cascade as the real schema, and hands out a
// strictly increasing clock so ordering tests are deterministic.
type fakeStore struct {
	users      map[int64]*model.User
	posts      map[int64]*model.Post
	comments   map[int64]*model.Comment
	categories []model.Category
	sessions   map[string]*model.Session

	nextID int64
	clock  time.Time

	// set to simulate a broken database
	failWith error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*model.User),
		posts:    make(map[int64]*model.Post),
		comments: make(map[int64]*model.Comment),
		sessions: make(map[string]*model.Session),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) Ping(context.Context) error { return f.failWith }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		switch {
		case u.Username == user.Username:
			return apperror.Duplicate("user", "username")
		case u.Email == user.Email:
			return apperror.Duplicate("user", "email")
		case u.PasswordHash == user.PasswordHash:
			return apperror.Duplicate("user", "password hash")
		}
	}
	user.ID = f.id()
	user.CreatedAt = f.tick()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	result := *u
	return &result, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			*user = *u
			return nil
		}
	}
	return f.CreateUser(ctx, user)
}

func (f *fakeStore) CreatePost(_ context.Context, post *model.Post) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, p := range f.posts {
		switch {
		case p.Title == post.Title:
			return apperror.Duplicate("post", "title")
		case p.Content == post.Content:
			return apperror.Duplicate("post", "content")
		}
	}
	post.ID = f.id()
	post.CreatedAt = f.tick()
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakeStore) GetPostByID(_ context.Context, id int64) (*model.Post, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	result := *p
	return &result, nil
}

func (f *fakeStore) ListPosts(_ context.Context) ([]model.Post, error) {
	return f.sortedPosts(func(*model.Post) bool { return true }), f.failWith
}

func (f *fakeStore) ListPostsByUser(_ context.Context, userID int64) ([]model.Post, error) {
	return f.sortedPosts(func(p *model.Post) bool { return p.UserID == userID }), f.failWith
}

func (f *fakeStore) sortedPosts(keep func(*model.Post) bool) []model.Post {
	result := []model.Post{}
	for _, p := range f.posts {
		if keep(p) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (f *fakeStore) DeletePost(_ context.Context, id int64) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	delete(f.posts, id)
	for cid, c := range f.comments {
		if c.PostID == id {
			delete(f.comments, cid)
		}
	}
	return nil
}

func (f *fakeStore) CreateComment(_ context.Context, comment *model.Comment) error {
	if f.failWith != nil {
		return f.failWith
	}
	comment.ID = f.id()
	comment.CreatedAt = f.tick()
	stored := *comment
	f.comments[comment.ID] = &stored
	return nil
}

func (f *fakeStore) GetCommentByID(_ context.Context, id int64) (*model.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	result := *c
	return &result, nil
}

func (f *fakeStore) ListCommentsByPost(_ context.Context, postID int64) ([]model.Comment, error) {
	result := []model.Comment{}
	for _, c := range f.comments {
		if c.PostID == postID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeStore) UpdateCommentText(_ context.Context, id int64, text string) error {
	c, ok := f.comments[id]
	if !ok {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	c.Text = text
	return nil
}

func (f *fakeStore) DeleteComment(_ context.Context, id int64) error {
	if _, ok := f.comments[id]; !ok {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]model.Category, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]model.Category(nil), f.categories...), nil
}

func (f *fakeStore) GetCategoryByID(_ context.Context, id int64) (*model.Category, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, c := range f.categories {
		if c.ID == id {
			result := c
			return &result, nil
		}
	}
	return nil, apperror.NotFound("category", strconv.FormatInt(id, 10))
}

func (f *fakeStore) SeedCategories(_ context.Context, names []string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	if len(f.categories) > 0 {
		return false, nil
	}
	for _, name := range names {
		f.categories = append(f.categories, model.Category{ID: f.id(), Name: name})
	}
	return true, nil
}

func (f *fakeStore) CreateSession(_ context.Context, session *model.Session) error {
	if f.failWith != nil {
		return f.failWith
	}
	stored := *session
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	result := *s
	return &result, nil
}

func (f *fakeStore) RevokeSession(_ context.Context, id string, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return apperror.NotFound("session", id)
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

var errDBDown = errors.New("database is down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type services struct {
	store      *fakeStore
	auth       *AuthService
	posts      *PostService
	comments   *CommentService
	categories *CategoryService
}

// newTestServices wires every service to one fake store with seeded
// categories. bcrypt runs at MinCost.
func newTestServices(t *testing.T) *services {
	t.Helper()

	store := newFakeStore()
	tokens, err := auth.NewTokenService("service-test-secret-16+")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	log := discardLogger()

	s := &services{
		store:      store,
		auth:       NewAuthService(store, store, tokens, passwords, time.Hour, log),
		posts:      NewPostService(store, store, store, log),
		comments:   NewCommentService(store, store, log),
		categories: NewCategoryService(store, log),
	}
	if err := s.categories.Seed(context.Background()); err != nil {
		t.Fatalf("seeding categories: %v", err)
	}
	return s
}

func (s *services) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := s.auth.Register(context.Background(), username, username+"@example.com", "pw-"+username)
	if err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
	return u
}

func (s *services) post(t *testing.T, author *model.User, title string) *model.Post {
	t.Helper()
	p, err := s.posts.Create(context.Background(), author.ID, title, "content of "+title, s.store.categories[0].ID)
	if err != nil {
		t.Fatalf("Create post %q: %v", title, err)
	}
	return p
}

func (s *services) comment(t *testing.T, author *model.User, post *model.Post, text string) *model.Comment {
	t.Helper()
	c, err := s.comments.Create(context.Background(), author.ID, post.ID, text)
	if err != nil {
		t.Fatalf("Create comment: %v", err)
	}
	return c
}
