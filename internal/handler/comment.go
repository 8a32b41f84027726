package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/service"
)

// CommentHandler serves comment creation, editing and deletion.
//
// ROUTES OWNED HERE:
//
//	GET  /post/{id}/comment   → form for a new comment on post {id}
//	POST /post/{id}/comment   → create it
//	GET  /comment/{id}/edit   → edit form (author only)
//	POST /comment/{id}/edit   → save the new text (author only)
//	POST /comment/{id}        → delete (author only)
//
// All five sit behind auth.RequireAuth in server.go, so a logged-out
// visitor is redirected to /login before any of this code runs. The
// UserIDFromContext checks below are a second line for handlers mounted
// without the middleware (as the tests do).
//
// SILENT DENIAL:
// When CommentService refuses a non-author (apperror.ErrForbidden), the
// handler redirects to the comment's post without a message. There is
// nothing to explain to someone who typed the URL by hand.
type CommentHandler struct {
	comments *service.CommentService
	posts    *service.PostService
	render   *Renderer
	logger   *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
//
// PostService is needed to load the post shown above the comment forms.
func NewCommentHandler(comments *service.CommentService, posts *service.PostService, render *Renderer, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		posts:    posts,
		render:   render,
		logger:   logger,
	}
}

// HandleNewForm shows the comment form under the post it belongs to.
//
// HTTP: GET /post/{id}/comment  (login required)
//
// RESPONSES: 200 with the form, 404 if the post does not exist.
func (h *CommentHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	post, err := h.posts.Get(r.Context(), postID)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "comment_new", &Page{Title: "Comment", Post: post})
}

// HandleCreate adds a comment to a post.
//
// HTTP: POST /post/{id}/comment  (login required)
//
// FORM FIELDS: text
//
// RESPONSES:
//   - 303 to /post/{id}#comment-{cid}, so the browser scrolls to the new
//     comment
//   - 400 with the form re-rendered for blank or over-long text
//   - 404 if the post does not exist (checked before the text)
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		redirect(w, r, "/login")
		return
	}
	postID, err := pathID(r)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "malformed form"))
		return
	}
	text := r.PostFormValue("text")

	comment, err := h.comments.Create(r.Context(), userID, postID, text)
	if err != nil {
		if field, msg, status, ok := formError(err); ok {
			// The form page shows the post, so load it for the re-render.
			post, perr := h.posts.Get(r.Context(), postID)
			if perr != nil {
				h.render.Error(w, r, perr)
				return
			}
			h.render.Render(w, r, status, "comment_new", &Page{
				Title:  "Comment",
				Post:   post,
				Form:   map[string]string{"text": text},
				Errors: map[string]string{field: msg},
			})
			return
		}
		h.render.Error(w, r, err)
		return
	}

	redirect(w, r, postURL(postID)+"#comment-"+strconv.FormatInt(comment.ID, 10))
}

// HandleEditForm shows the edit form pre-filled with the current text.
//
// HTTP: GET /comment/{id}/edit  (login required)
//
// RESPONSES:
//   - 200 with the form for the comment's author
//   - 303 back to the post for anyone else (the same silent denial as a
//     refused POST)
//   - 404 if the comment does not exist
//
// The ownership check here is a read-only convenience; HandleEdit asks the
// service again, because a GET form proves nothing about the later POST.
func (h *CommentHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
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

	comment, err := h.comments.Get(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	if !comment.OwnedBy(userID) {
		redirect(w, r, postURL(comment.PostID))
		return
	}

	h.render.Render(w, r, http.StatusOK, "comment_edit", &Page{
		Title:   "Edit comment",
		Comment: comment,
		Form:    map[string]string{"text": comment.Text},
	})
}

// HandleEdit replaces the text of a comment.
//
// HTTP: POST /comment/{id}/edit  (login required)
//
// FORM FIELDS: text
//
// RESPONSES:
//   - 303 to /post/{pid}#comment-{id} on success
//   - 303 to /post/{pid} for a non-author, nothing changed
//   - 400 with the edit form re-rendered for blank or over-long text
//   - 404 if the comment does not exist
func (h *CommentHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
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
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "malformed form"))
		return
	}
	text := r.PostFormValue("text")

	comment, err := h.comments.Edit(r.Context(), userID, id, text)
	if err != nil {
		h.commentFailed(w, r, id, err, text)
		return
	}

	redirect(w, r, postURL(comment.PostID)+"#comment-"+strconv.FormatInt(comment.ID, 10))
}

// HandleDelete removes a comment.
//
// HTTP: POST /comment/{id}  (login required)
//
// HTML forms can only send GET and POST, so deletion is a POST to the
// comment's own URL rather than a DELETE.
//
// RESPONSES: 303 to the comment's post in every handled case (deleted, or
// refused for a non-author); 404 if the comment does not exist.
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	// Loaded first for the post to return to.
	comment, err := h.comments.Get(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	if err := h.comments.Delete(r.Context(), userID, id); err != nil {
		h.commentFailed(w, r, id, err, "")
		return
	}

	redirect(w, r, postURL(comment.PostID))
}

// commentFailed handles an error from Edit or Delete:
//
//	ErrForbidden             → 303 back to the post, no message
//	ErrValidation / Conflict → edit form again with the rejected text
//	anything else            → Renderer.Error (404 page, 500 page, ...)
//
// Both of the first two need the comment's post ID, so the comment is
// loaded again here.
func (h *CommentHandler) commentFailed(w http.ResponseWriter, r *http.Request, id int64, err error, text string) {
	forbidden := errors.Is(err, apperror.ErrForbidden)
	field, msg, status, isForm := formError(err)
	if !forbidden && !isForm {
		h.render.Error(w, r, err)
		return
	}

	comment, gerr := h.comments.Get(r.Context(), id)
	if gerr != nil {
		h.render.Error(w, r, gerr)
		return
	}
	if forbidden {
		redirect(w, r, postURL(comment.PostID))
		return
	}

	h.render.Render(w, r, status, "comment_edit", &Page{
		Title:   "Edit comment",
		Comment: comment,
		Form:    map[string]string{"text": text},
		Errors:  map[string]string{field: msg},
	})
}
