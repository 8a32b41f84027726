package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/miniblog/internal/apperror"
	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/service"
)

// oauthStateCookie holds the random state between the redirect to GitHub
// and the callback.
const oauthStateCookie = "oauth_state"

// GitHubOAuth is the part of auth.GitHubProvider the callback needs.
//
// WHY AN INTERFACE?
// *auth.GitHubProvider talks to github.com. The handler tests pass a small
// fake that returns a canned GitHubUser, so the whole callback can be
// tested without a network.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves registration, password login, logout and the optional
// GitHub login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegisterForm / HandleRegister → create an account
//   - HandleLoginForm / HandleLogin       → check a password, set the cookie
//   - HandleLogout                        → revoke the session, clear the cookie
//   - HandleGitHubLogin                   → redirect to GitHub's consent page
//   - HandleGitHubCallback                → finish the OAuth flow, set the cookie
//
// DEPENDENCY CHAIN:
//   - auth   *service.AuthService → every rule about accounts and sessions
//   - github GitHubOAuth          → code exchange; nil when not configured
//   - render *Renderer            → pages and error pages
//
// cookieSecure is passed through to every cookie this handler sets. It is
// true in production (HTTPS) and false for local http://localhost.
type AuthHandler struct {
	auth         *service.AuthService
	github       GitHubOAuth // nil when GitHub login is not configured
	render       *Renderer
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
//
// Pass a nil github (an untyped nil, not a nil *auth.GitHubProvider) to
// disable GitHub login; both GitHub handlers then answer 404.
func NewAuthHandler(
	authService *service.AuthService,
	github GitHubOAuth,
	render *Renderer,
	cookieSecure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		github:       github,
		render:       render,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleRegisterForm shows the empty registration form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "register", &Page{Title: "Register"})
}

// HandleRegister creates an account from the submitted form.
//
// HTTP: POST /register
//
// FORM FIELDS: username, email, password
//
// RESPONSES:
//   - 303 to /login on success. Registration does not log the user in.
//   - 409 with the form re-rendered when the username or email is taken;
//     the message sits next to the field the store named
//   - 400 with the form re-rendered for a missing field
//
// The password is never echoed back into the re-rendered form.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "malformed form"))
		return
	}
	username := r.PostFormValue("username")
	email := r.PostFormValue("email")

	_, err := h.auth.Register(r.Context(), username, email, r.PostFormValue("password"))
	if err != nil {
		if field, msg, status, ok := formError(err); ok {
			h.render.Render(w, r, status, "register", &Page{
				Title:  "Register",
				Form:   map[string]string{"username": username, "email": email},
				Errors: map[string]string{field: msg},
			})
			return
		}
		h.render.Error(w, r, err)
		return
	}

	redirect(w, r, "/login")
}

// HandleLoginForm shows the login form.
//
// HTTP: GET /login
//
// RequireAuth sends logged-out visitors here from any protected page.
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "login", &Page{Title: "Log in"})
}

// HandleLogin checks a username and password and starts a session.
//
// HTTP: POST /login
//
// FORM FIELDS: username, password
//
// RESPONSES:
//   - 303 to / with the session cookie set on success
//   - 200 with the login form shown again on bad credentials. No message,
//     no cookie, no session row. The username is refilled so the user only
//     has to retype the password.
//
// The failure is logged at Info with the username, which is enough to spot
// someone guessing passwords without logging the password itself.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "malformed form"))
		return
	}
	username := r.PostFormValue("username")

	res, err := h.auth.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.logger.Info("login failed", slog.String("username", username))
			h.render.Render(w, r, http.StatusOK, "login", &Page{
				Title: "Log in",
				Form:  map[string]string{"username": username},
			})
			return
		}
		h.render.Error(w, r, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, res.ExpiresAt, h.cookieSecure)
	redirect(w, r, "/")
}

// HandleLogout ends the current session.
//
// HTTP: GET /logout
//
// FLOW:
//  1. Revoke the session row the cookie points at (a missing or invalid
//     cookie is fine; there is nothing to revoke)
//  2. Tell the browser to delete the cookie
//  3. 303 to /
//
// Step 1 is what makes logout real: a copy of the old cookie, replayed
// later, is rejected because its session is revoked.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		h.render.Error(w, r, err)
		return
	}
	auth.ClearSessionCookie(w, h.cookieSecure)
	redirect(w, r, "/")
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string (an xid) and store it in a
// short-lived cookie. GitHub sends the same state back to the callback,
// which refuses to continue unless it matches the cookie. A callback URL
// forged by another site has no way to know the value.
//
// The state cookie is:
//   - HttpOnly: JavaScript can't read it
//   - SameSite=Lax: still sent on GitHub's top-level redirect back to us
//   - 10 minutes long: enough time to approve the app on GitHub
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, h.stateCookie(state, 600)) // 10 minutes

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie (CSRF check) → 400
//  2. Clear the state cookie; it is single-use
//  3. If the user clicked "Cancel" on GitHub (?error=...) → back to /login
//  4. Exchange the code for a GitHub profile
//  5. Find or create the blog account and open a session
//  6. Set the session cookie and 303 to /
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.render.Error(w, r, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// --- Step 2: the state has done its job; delete it ---
	http.SetCookie(w, h.stateCookie("", -1))

	// --- Step 3: the user may have refused access on GitHub ---
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		redirect(w, r, "/login")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.render.Error(w, r, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	// --- Step 4: code → access token → GitHub profile ---
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	// --- Step 5: blog account + session ---
	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, res.ExpiresAt, h.cookieSecure)
	redirect(w, r, "/")
}

// stateCookie builds the OAuth state cookie. Setting and clearing use the
// same attributes; a browser matches the clear to the original by name,
// path and domain, and the attributes keep the clear as strict as the set.
func (h *AuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
