package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/miniblog/internal/service"
)

// UserHandler serves public profile pages.
//
// Both pages are readable without logging in. The user lookup goes through
// AuthService because that is the service that owns user records.
type UserHandler struct {
	users  *service.AuthService
	posts  *service.PostService
	render *Renderer
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.AuthService, posts *service.PostService, render *Renderer, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, posts: posts, render: render, logger: logger}
}

// HandleProfile shows a user's public profile.
//
// HTTP: GET /user/{id}
//
// RESPONSES: 200 with the profile page, 400 for a non-numeric id, 404 for an
// unknown user. The email address and password hash are never rendered.
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "user", &Page{Title: user.Username, User: user})
}

// HandlePosts lists one user's posts, newest first.
//
// HTTP: GET /user/{id}/posts
//
// RESPONSES: 200 (possibly with an empty list), 404 for an unknown user.
func (h *UserHandler) HandlePosts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	user, posts, err := h.posts.ListByUser(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "user_posts", &Page{
		Title: "Posts by " + user.Username,
		User:  user,
		Posts: posts,
	})
}
