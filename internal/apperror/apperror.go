// Package apperror defines the domain errors shared by every layer.
//
// Services and stores return these; the HTTP layer decides what each one
// looks like to a browser (404 page, redirect to /login, silent redirect, form
// message). Callers match with errors.Is against the sentinels and use
// errors.As to pull out the *AppError for its Message and Field.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinels. Every AppError wraps exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError is a domain error with a user-safe message.
type AppError struct {
	Err     error  // sentinel the error matches with errors.Is
	Message string // human-readable message, safe to show to users
	Field   string // optional: form field that caused the error
}

// Error returns the user-safe message.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel to errors.Is.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports bad input; field is the form field to mark, or "".
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a uniqueness violation on resource.field. The store layer
// builds these from driver constraint errors.
func Duplicate(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("a %s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller does not own the
// resource. The HTTP layer turns this into a redirect without any message.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for bad credentials and invalid or revoked sessions.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
