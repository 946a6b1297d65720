// Package server is the web front-end: the ask page, the document library,
// the web-search chatbot and the login flow.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/hunterwarburton/fva/internal/auth"
	"github.com/hunterwarburton/fva/internal/chat"
	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/library"
	"github.com/hunterwarburton/fva/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

// Asker runs the question-answering pipeline.
type Asker interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Chatter answers web-search chat turns.
type Chatter interface {
	Reply(ctx context.Context, userID int64, history core.History, message string, model core.ModelID) (*chat.Reply, error)
}

// Reloader is implemented by library stores that can re-read their source.
type Reloader interface {
	Reload() error
}

// Config configures a new Server instance.
type Config struct {
	Pipeline Asker
	Chat     Chatter

	// Library may be nil when the catalog failed to load; LibraryErr is
	// then shown on the library page.
	Library    library.Store
	LibraryErr error
	// Sources, when set, marks which catalog documents are in the index.
	Sources   core.SourceLister
	Namespace string

	// Auth nil disables login.
	Auth     *auth.Auth0
	Sessions *auth.Sessions
	Policy   *auth.PolicyService
}

// Server is the HTTP front-end.
type Server struct {
	cfg       Config
	templates *template.Template
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if cfg.Policy == nil {
		cfg.Policy = auth.NewPolicyService("", "")
	}
	return &Server{cfg: cfg, templates: tmpl}, nil
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.handleAskPage)
	mux.HandleFunc("POST /api/ask", s.handleAsk)

	mux.HandleFunc("GET /library", s.handleLibraryPage)
	mux.HandleFunc("GET /api/library", s.handleLibrary)
	mux.HandleFunc("POST /api/library/reload", s.handleLibraryReload)

	mux.HandleFunc("GET /search", s.handleSearchPage)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /callback", s.handleCallback)
	mux.HandleFunc("GET /logout", s.handleLogout)

	return requestID(accessLog(recoverer(s.authGate(mux))))
}

// Close releases the library store.
func (s *Server) Close() error {
	if s.cfg.Library != nil {
		return s.cfg.Library.Close()
	}
	return nil
}
