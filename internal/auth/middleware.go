package auth

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the HttpOnly cookie carrying the signed session token.
const CookieName = "token"

// contextKey is package-private so no other package can read or shadow the
// value stored under it.
//
// WHY A CUSTOM TYPE?
// context.WithValue compares keys by type AND value. A plain string key
// "userID" could collide with any other package using the same string; a
// key of an unexported type cannot.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticator resolves a session token to the user it belongs to. It is
// implemented by the service layer, which checks the signature and then the
// sessions table, so a logged-out cookie stops working immediately.
//
// WHY AN INTERFACE HERE?
// The middleware lives in auth, AuthService lives in service, and service
// already imports auth. Declaring the one method the middleware needs on
// the consumer side breaks the import cycle, and tests can pass a stub.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// RequireAuth guards routes that need a logged-in user. Anonymous requests
// and requests with a dead session are sent to loginPath with 303. A user
// already resolved by OptionalAuth further up the chain is reused.
//
// MIDDLEWARE SHAPE:
// A middleware is func(http.Handler) http.Handler: it receives the next
// handler and returns a new one that runs its own logic before (or instead
// of) calling next. RequireAuth takes extra arguments, so it is a function
// that RETURNS a middleware; chi's r.Use / r.With accept the result.
//
// FLOW:
//  1. Already authenticated by OptionalAuth? Pass through.
//  2. Read the cookie and ask the Authenticator for the user ID.
//  3. Failure: 303 to loginPath, next is never called.
//  4. Success: store the ID in the request context and call next.
func RequireAuth(a Authenticator, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := authenticate(r, a)
			if err != nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			// r.WithContext returns a shallow copy; the original request is
			// never mutated.
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth puts the user in the context when a valid session is present
// and lets every request through. Pages use it to show "logged in as".
//
// An invalid or revoked cookie is not an error here: the request simply
// continues as anonymous.
func OptionalAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := authenticate(r, a); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns (0, false) for anonymous requests.
//
// The comma-ok type assertion never panics: a missing key yields nil, and
// nil.(int64) reports ok=false.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// TokenFromRequest returns the raw session token, or "" if there is none.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetSessionCookie stores token in an HttpOnly cookie that expires with it.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: page JavaScript cannot read it, so an XSS bug cannot steal it
//   - Secure: only sent over HTTPS (COOKIE_SECURE=true in production)
//   - SameSite=Lax: not sent on cross-site POSTs, which blocks the classic
//     CSRF form; still sent on top-level GET navigation so links work
//   - Path=/: every page needs to know who is logged in
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	c := sessionCookie(token, secure)
	c.Expires = expires
	http.SetCookie(w, c)
}

// ClearSessionCookie tells the browser to drop the session cookie.
//
// The deletion carries the same attributes as the cookie it replaces;
// browsers match a cookie by name, path and domain, and a Secure cookie can
// only be overwritten by a Secure response.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	c := sessionCookie("", secure)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func sessionCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func authenticate(r *http.Request, a Authenticator) (int64, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return 0, http.ErrNoCookie
	}
	return a.Authenticate(r.Context(), token)
}
