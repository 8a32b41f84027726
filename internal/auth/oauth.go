package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// githubUserURL is the "get the authenticated user" endpoint. Tests point
// the provider at an httptest server instead.
const githubUserURL = "https://api.github.com/user"

// GitHubUser is the part of the GitHub /user response used to link accounts.
//
// GitHub returns a much larger object; encoding/json ignores every field
// that has no matching struct tag, so only these three are decoded.
type GitHubUser struct {
	ID    int64  `json:"id"` // stable across username changes
	Login string `json:"login"`
	Email string `json:"email"` // empty when hidden in GitHub settings
}

// GitHubProvider runs the OAuth authorization code flow against GitHub.
//
// THE AUTHORIZATION CODE FLOW:
//  1. GET /auth/github sends the browser to GitHub (AuthURL) with a random
//     state value that is also stored in a short-lived cookie.
//  2. The user approves the app on GitHub.
//  3. GitHub redirects to the callback URL with ?code=...&state=...
//  4. The handler checks state against the cookie, then Exchange trades the
//     code for an access token in a server-to-server call.
//  5. Exchange uses the token to fetch the GitHub profile.
//
// WHY SERVER-SIDE EXCHANGE?
// The exchange needs the client secret, so it can only happen on the
// server. The GitHub access token never reaches the browser and is dropped
// as soon as the profile is read; the browser only ever holds our own
// session cookie.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider creates a provider. callbackURL must match the
// "Authorization callback URL" registered for the OAuth app exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return newGitHubProvider(clientID, clientSecret, callbackURL, github.Endpoint, githubUserURL)
}

// newGitHubProvider is NewGitHubProvider with the endpoints injectable, so
// tests can run the whole flow against a local server.
//
// Scopes requested:
//   - "read:user": the public profile (ID, login)
//   - "user:email": the primary email, even when it is not public
func newGitHubProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, userURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		userURL: userURL,
	}
}

// AuthURL is where the browser is sent to approve the login. state must be
// echoed back on the callback and compared with the state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and fetches the
// GitHub profile with it.
//
// FLOW:
//  1. config.Exchange POSTs the code and client secret to GitHub's token
//     endpoint and gets an access token back.
//  2. config.Client wraps http.Client so every request carries
//     "Authorization: Bearer <token>".
//  3. GET /user with that client and decode the JSON body.
//
// An ID of 0 is treated as an error: GitHub IDs start at 1, and the ID is
// what AuthService uses to find the linked account.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	// --- Step 1: code for token ---
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// --- Step 2: authenticated client ---
	client := p.config.Client(ctx, oauthToken)

	// --- Step 3: fetch the profile ---
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	// The body must always be closed, or the connection is never reused.
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	return &ghUser, nil
}
