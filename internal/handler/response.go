package handler

// RESPONSE HELPERS:
// These functions standardise how a handler ends when something goes wrong.
//
// WHY HELPERS?
// Every handler meets the same errors: a bad {id}, a missing row, a
// refused action, a database failure. Without a shared mapping each one
// would pick its own status code and wording. With it, a handler says
//
//	h.render.Error(w, r, err)
//
// and the status, page and logging are the same everywhere.
//
// TWO KINDS OF FAILURE:
//   - Form failures (ErrValidation, ErrConflict) re-render the form the
//     user just submitted, with their input and a message. formError
//     extracts what the form needs; each handler re-renders its own page.
//   - Everything else goes through Renderer.Error to a generic error page
//     (or, for ErrUnauthorized, a redirect to /login).

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/miniblog/internal/apperror"
)

// Error maps a domain error to a response:
//
//	ErrUnauthorized → 303 to /login
//	ErrNotFound     → 404 page
//	ErrValidation   → 400 page
//	ErrConflict     → 409 page
//	ErrForbidden    → 403 page
//	anything else   → 500 page with a generic message; the cause is logged
//
// Handlers that want the silent-redirect or form re-render behaviour check
// for those errors before falling back to Error.
//
// errors.Is / errors.As walk the whole wrap chain, so a store error wrapped
// by a service ("service/post: loading post 3: not found") still maps to
// 404.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrUnauthorized) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := http.StatusInternalServerError
	message := "An internal error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		}
		if status != http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		// Never show the raw error: it may carry SQL or file paths. The
		// request ID ties this log line to the access log line for the
		// same request.
		rd.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("requestID", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	rd.Render(w, r, status, "error", &Page{Title: http.StatusText(status), Status: status, Message: message})
}

// formError returns the field and message of a conflict or validation error
// so the form can be shown again, and the status to show it with.
//
// ok is false for every other error; the caller then falls back to
// Renderer.Error.
func formError(err error) (field, message string, status int, ok bool) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return "", "", 0, false
	}
	switch {
	case errors.Is(err, apperror.ErrConflict):
		return appErr.Field, appErr.Message, http.StatusConflict, true
	case errors.Is(err, apperror.ErrValidation):
		return appErr.Field, appErr.Message, http.StatusBadRequest, true
	}
	return "", "", 0, false
}

// pathID parses the {id} URL parameter.
//
// chi.URLParam reads the value chi matched for {id} in the route pattern.
// A malformed or non-positive id is a validation error (400), not a 404:
// "/post/abc" is a bad request, not a missing post.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "invalid id "+strconv.Quote(raw))
	}
	return id, nil
}

// redirect sends the browser to location with 303 so a POST becomes a GET.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// postURL is the canonical URL of a post page.
func postURL(id int64) string {
	return "/post/" + strconv.FormatInt(id, 10)
}
