package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hunterwarburton/fva/internal/auth"
	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/library"
	"github.com/hunterwarburton/fva/internal/llm"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/pipeline"
)

const (
	maxBodyBytes = 1 << 20
	audioMIME    = "audio/mpeg"
	// Web users have no numeric identity; the tool policy treats them as
	// anonymous.
	webUserID int64 = 0
)

type pageData struct {
	Title     string
	User      *auth.User
	Models    []core.ModelID
	Greeting  string
	Documents []library.Document
	Error     string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.User = userFrom(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		logger.HTTPError("[%s] rendering %s: %v", RequestIDFrom(r.Context()), name, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAskPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "ask.html", pageData{Title: "Ask", Models: core.SupportedModels()})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.cfg.Pipeline.Run(r.Context(), pipeline.Request{
		Question:    req.Question,
		Model:       core.ModelID(req.Model),
		K:           req.K,
		ShowSources: req.ShowSources,
		ShowAudio:   req.ShowAudio,
		Namespace:   s.cfg.Namespace,
		History:     req.History,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := AskResponse{
		Answer:    resp.Payload.Answer,
		Sources:   resp.Payload.Sources,
		Model:     resp.ModelUsed,
		ElapsedMs: resp.Elapsed.Milliseconds(),
		Warnings:  resp.Warnings,
		History:   resp.History,
	}
	if len(resp.Audio) > 0 {
		out.Audio = resp.Audio
		out.AudioMIME = audioMIME
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLibraryPage(w http.ResponseWriter, r *http.Request) {
	docs, err := s.listDocuments(r.Context())
	data := pageData{Title: "Document Library", Documents: docs}
	if err != nil {
		data.Error = err.Error()
	}
	s.render(w, r, "library.html", data)
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	docs, err := s.listDocuments(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, LibraryResponse{Documents: []LibraryDocument{}, Error: err.Error()})
		return
	}

	indexed := s.indexedSources(r.Context(), len(docs))
	out := LibraryResponse{Documents: make([]LibraryDocument, 0, len(docs))}
	for _, d := range docs {
		entry := LibraryDocument{Document: d}
		if indexed != nil {
			ok := indexed[d.ID]
			entry.Indexed = &ok
		}
		out.Documents = append(out.Documents, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLibraryReload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Auth != nil {
		user := userFrom(r.Context())
		if user == nil || !s.cfg.Policy.IsEmailAdmin(user.Email) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin only", RequestID: RequestIDFrom(r.Context())})
			return
		}
	}
	reloader, ok := s.cfg.Library.(Reloader)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "library source cannot be reloaded", RequestID: RequestIDFrom(r.Context())})
		return
	}
	if err := reloader.Reload(); err != nil {
		logger.HTTPError("[%s] library reload: %v", RequestIDFrom(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), RequestID: RequestIDFrom(r.Context())})
		return
	}
	docs, _ := s.listDocuments(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"documents": len(docs)})
}

func (s *Server) listDocuments(ctx context.Context) ([]library.Document, error) {
	if s.cfg.Library == nil {
		if s.cfg.LibraryErr != nil {
			return nil, s.cfg.LibraryErr
		}
		return nil, errors.New("document library is not configured")
	}
	docs, err := s.cfg.Library.List(ctx)
	if err != nil {
		return nil, err
	}
	library.SortByID(docs)
	return docs, nil
}

// indexedSources returns the set of source IDs present in the index, or nil
// when no lister is configured or the index cannot be reached.
func (s *Server) indexedSources(ctx context.Context, n int) map[string]bool {
	if s.cfg.Sources == nil || n == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ids, err := s.cfg.Sources.ListSources(ctx, s.cfg.Namespace, n)
	if err != nil {
		logger.Warn("Could not list indexed sources: %v", err)
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "search.html", pageData{Title: "Chat with Search", Greeting: llm.ChatGreeting})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.cfg.Chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "chat is not configured", RequestID: RequestIDFrom(r.Context())})
		return
	}

	q, err := pipeline.Normalize(req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	model, err := core.ParseModelID(req.Model)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reply, err := s.cfg.Chat.Reply(r.Context(), webUserID, req.History, q.Normalized, model)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply.Text, History: reply.History, ToolCalls: reply.ToolCalls})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Auth == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	state, err := s.cfg.Sessions.NewState(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, s.cfg.Auth.LoginURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Auth == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if !s.cfg.Sessions.CheckState(w, r, r.URL.Query().Get("state")) {
		http.Error(w, "invalid login state", http.StatusBadRequest)
		return
	}
	user, err := s.cfg.Auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.HTTPError("[%s] login exchange failed: %v", RequestIDFrom(r.Context()), err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}
	if !s.cfg.Policy.IsEmailAllowed(user.Email) {
		logger.HTTPInfo("[%s] refused login for %s", RequestIDFrom(r.Context()), user.Email)
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}
	if err := s.cfg.Sessions.Set(w, user); err != nil {
		writeError(w, r, err)
		return
	}
	logger.HTTPInfo("[%s] %s signed in", RequestIDFrom(r.Context()), user.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Sessions != nil {
		s.cfg.Sessions.Clear(w)
	}
	if s.cfg.Auth == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, s.cfg.Auth.LogoutURL(), http.StatusFound)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), RequestID: RequestIDFrom(r.Context())})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), RequestID: RequestIDFrom(r.Context())}
	if kind := core.KindOf(err); kind != nil {
		resp.Kind = kind.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.HTTPError("[%s] %s %s: %v", resp.RequestID, r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, resp)
}

// statusFor maps pipeline errors to HTTP status codes. An unsupported model
// name is the caller's fault; an unreachable model is not.
func statusFor(err error) int {
	var pe *core.PipelineError
	switch {
	case errors.Is(err, core.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrModelUnavailable) && errors.As(err, &pe) && pe.Op == "parse model":
		return http.StatusBadRequest
	case errors.Is(err, core.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrEmbeddingFailure),
		errors.Is(err, core.ErrIndexUnavailable),
		errors.Is(err, core.ErrModelUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
