// Package handler turns HTTP form posts and page views into service calls
// and renders the results as HTML.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything with the signature
//
//	func(w http.ResponseWriter, r *http.Request)
//
// Chi's router accepts these directly (they satisfy http.HandlerFunc).
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request: the {id} in the path, the form body
//  2. Ask the auth middleware who is logged in (auth.UserIDFromContext)
//  3. Call a service with that requester ID passed explicitly
//  4. Render a page, or redirect, or map the error (response.go)
//
// Handlers contain no business rules. "May this user delete this post?" is
// answered by the service; the handler only decides that a refusal is a
// quiet redirect rather than an error page.
//
// SERVER-RENDERED HTML:
// Every page is an html/template file under templates/, embedded in the
// binary with //go:embed. Each page is parsed together with layout.html,
// which draws the navigation and then calls the page's "content" block.
package handler

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/model"
)

// EMBEDDING TEMPLATES:
// The //go:embed directive below makes the compiler copy every file that
// matches the pattern into the binary. The server then needs no template
// directory at runtime, and tests render exactly what production renders.
//
//go:embed templates/*.html
var templateFS embed.FS

// CategoryLister is the renderer's explicit category lookup, made on every
// page render. *service.CategoryService satisfies it.
type CategoryLister interface {
	List(ctx context.Context) ([]model.Category, error)
}

// UserLookup resolves the requester ID from the context to a full user, so
// the navigation can show their name. *service.AuthService satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Page is the data every template receives.
//
// ONE STRUCT FOR ALL PAGES:
// Handlers fill only the fields their page needs and leave the rest as
// zero values; templates are parsed with missingkey=zero, so an unset map
// entry renders as empty instead of failing. Render itself always fills
// CurrentUser, Categories and GitHubEnabled, because the shared layout
// uses them on every page.
type Page struct {
	Title string

	CurrentUser   *model.User
	Categories    []model.Category
	GitHubEnabled bool

	Posts    []model.Post
	Post     *model.Post
	Comments []model.Comment
	Comment  *model.Comment
	User     *model.User

	// Form echoes submitted values back into a re-rendered form; Errors
	// holds a message per field.
	Form   map[string]string
	Errors map[string]string

	Status  int
	Message string
}

// Renderer owns the parsed page templates.
//
// WHY A STRUCT?
//   - Templates are parsed once at startup (expensive) and reused (cheap)
//   - The lookups every page needs are injected, not global
//   - Handlers share one *Renderer, including its error page
type Renderer struct {
	pages         map[string]*template.Template
	categories    CategoryLister
	users         UserLookup
	githubEnabled bool
	logger        *slog.Logger
}

// templateFuncs are callable from any template, e.g. {{formatTime .CreatedAt}}.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Local().Format("2 Jan 2006 15:04") },
	"statusText": http.StatusText,
}

// NewRenderer parses every page in templates/ with the layout.
//
// TEMPLATE COMPOSITION:
// For each page file (index.html, post.html, ...) we build a separate
// template set containing layout.html plus that page. Every page defines
// the same block name ("content"), so they cannot share one set: the last
// file parsed would win. One set per page, keyed by file name, avoids
// that.
//
// A broken template fails here, at startup, instead of on first request.
func NewRenderer(categories CategoryLister, users UserLookup, githubEnabled bool, logger *slog.Logger) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("handler: listing templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		// "templates/post.html" → "post"
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" {
			continue
		}
		t, err := template.New(name).
			Funcs(templateFuncs).
			Option("missingkey=zero").
			ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{
		pages:         pages,
		categories:    categories,
		users:         users,
		githubEnabled: githubEnabled,
		logger:        logger,
	}, nil
}

// Render executes the named page and writes it with status.
//
// FLOW:
//  1. Look up the category list (the navigation shows it)
//  2. If someone is logged in, look up their user record
//  3. Execute the template into a buffer
//  4. Only then write the status, headers and body
//
// RENDER TO A BUFFER FIRST:
// Once WriteHeader is called the status is on the wire. If the template
// failed halfway through, the client would get a 200 with half a page.
// Rendering into a bytes.Buffer first means any failure in steps 1-3 can
// still become a clean 500.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page *Page) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	if page == nil {
		page = &Page{}
	}

	// === PAGE CHROME ===
	ctx := r.Context()
	categories, err := rd.categories.List(ctx)
	if err != nil {
		rd.logger.Error("render: loading categories", slog.String("error", err.Error()))
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	page.Categories = categories
	page.GitHubEnabled = rd.githubEnabled

	if userID, ok := auth.UserIDFromContext(ctx); ok {
		user, err := rd.users.GetUserByID(ctx, userID)
		if err != nil {
			rd.logger.Error("render: loading current user",
				slog.Int64("userID", userID),
				slog.String("error", err.Error()),
			)
			http.Error(w, "An internal error occurred", http.StatusInternalServerError)
			return
		}
		page.CurrentUser = user
	}

	// === EXECUTE ===
	// "layout" is the entry point; it pulls in this page's "content" block.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		rd.logger.Error("render: executing template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}

	// === WRITE ===
	// Headers first, then the status, then the body.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.logger.Debug("render: writing response", slog.String("error", err.Error()))
	}
}
