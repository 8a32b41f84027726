package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/service"
)

// PostHandler serves the front page and post pages.
//
// WHAT A HANDLER DOES (AND DOESN'T):
// A handler turns an HTTP request into a service call and the result into a
// page or a redirect. It parses the path ID and the form, asks the auth
// middleware who is logged in, and calls PostService. It never decides who
// may delete a post; the service does, and the handler only chooses how a
// refusal looks.
//
// WHY DOES IT NEED CommentService?
// The post page shows the post AND its comments. Loading both here keeps
// each service focused on its own table.
type PostHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	render   *Renderer
	logger   *slog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts *service.PostService, comments *service.CommentService, render *Renderer, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:    posts,
		comments: comments,
		render:   render,
		logger:   logger,
	}
}

// HandleIndex lists every post, newest first.
//
// HTTP: GET /
//
// RESPONSE: 200 with the index page. Open to everyone; the navigation shows
// login/register links or the current user depending on the cookie.
func (h *PostHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "index", &Page{Posts: posts})
}

// HandleView shows one post with its comments, oldest first.
//
// HTTP: GET /post/{id}
//
// RESPONSES:
//   - 200 with the post page. The delete button and the per-comment
//     edit/delete links only render for their authors (see post.html).
//   - 400 if {id} is not a number
//   - 404 if there is no such post
func (h *PostHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	comments, err := h.comments.ListForPost(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, "post", &Page{
		Title:    post.Title,
		Post:     post,
		Comments: comments,
	})
}

// HandleNewForm shows the empty "new post" form.
//
// HTTP: GET /post/new  (login required)
//
// The category drop-down is filled from Page.Categories, which the renderer
// loads for every page.
func (h *PostHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "post_new", &Page{Title: "New post"})
}

// HandleCreate saves a new post from the submitted form.
//
// HTTP: POST /post/new  (login required)
//
// FORM FIELDS: title, content, category_id
//
// RESPONSES:
//   - 303 to /post/{id} on success (POST/redirect/GET, so a refresh does
//     not submit the form twice)
//   - 400 with the form re-rendered for a missing field, a non-numeric or
//     unknown category, or a field longer than its column
//   - 409 with the form re-rendered when the title or content is taken
//
// On a re-render the user's input is put back into the form (Page.Form) and
// the message is shown next to the offending field (Page.Errors).
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		redirect(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "malformed form"))
		return
	}

	form := map[string]string{
		"title":       r.PostFormValue("title"),
		"content":     r.PostFormValue("content"),
		"category_id": strings.TrimSpace(r.PostFormValue("category_id")),
	}

	// rerender is a closure: it captures w, r and form, so each failure
	// below is one line.
	rerender := func(field, msg string, status int) {
		h.render.Render(w, r, status, "post_new", &Page{
			Title:  "New post",
			Form:   form,
			Errors: map[string]string{field: msg},
		})
	}

	categoryID, err := strconv.ParseInt(form["category_id"], 10, 64)
	if err != nil {
		rerender("category", "choose a category", http.StatusBadRequest)
		return
	}

	post, err := h.posts.Create(r.Context(), userID, form["title"], form["content"], categoryID)
	if err != nil {
		if field, msg, status, ok := formError(err); ok {
			rerender(field, msg, status)
			return
		}
		h.render.Error(w, r, err)
		return
	}

	redirect(w, r, postURL(post.ID))
}

// HandleDelete deletes a post and its comments.
//
// HTTP: POST /post/{id}/delete  (login required)
//
// RESPONSES:
//   - 303 to / when the author deletes their post
//   - 303 back to /post/{id} when anyone else tries. Nothing is deleted and
//     no message is shown: the button is not rendered for them, so only a
//     hand-crafted request gets here
//   - 404 if there is no such post
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		redirect(w, r, "/login")
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	if err := h.posts.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, apperror.ErrForbidden) {
			redirect(w, r, postURL(id))
			return
		}
		h.render.Error(w, r, err)
		return
	}

	redirect(w, r, "/")
}
