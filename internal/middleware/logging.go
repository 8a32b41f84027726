// Package middleware holds the blog's HTTP middleware that chi does not
// already provide.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Logger logs one line per request with method, path, status, duration,
// bytes written and the chi request ID. Server errors log at Error and
// client errors at Warn so a LOG_LEVEL=warn deployment still sees failures.
//
// Mount it after chimw.RequestID so the ID is already in the context.
//
// HOW DO WE SEE THE STATUS CODE?
// http.ResponseWriter has no getter for the status a handler wrote. chi's
// WrapResponseWriter sits in front of the real writer, records the code
// passed to WriteHeader and counts the body bytes, and is handed to next in
// place of w.
//
// Example line (text handler):
//
//	level=INFO msg="request completed" method=GET path=/post/3 status=200 duration=1.2ms bytes=2048 requestID=host/abc-000001
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// Everything after this line runs once the handler (and every
			// middleware inside this one) has returned.
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// handler wrote nothing; net/http sends 200
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			// LogAttrs with typed slog.Attr values avoids the reflection
			// that the key/value variadic form needs.
			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("requestID", chimw.GetReqID(r.Context())),
			)
		})
	}
}
