package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hunterwarburton/fva/internal/auth"
	"github.com/hunterwarburton/fva/internal/logger"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

const requestIDHeader = "X-Request-ID"

// RequestIDFrom returns the request ID stored by the middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func userFrom(ctx context.Context) *auth.User {
	u, _ := ctx.Value(userKey).(*auth.User)
	return u
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.HTTPInfo("[%s] %s %s %d %s", RequestIDFrom(r.Context()), r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.HTTPError("[%s] panic serving %s: %v", RequestIDFrom(r.Context()), r.URL.Path, p)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", RequestID: RequestIDFrom(r.Context())})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func isPublic(path string) bool {
	switch path {
	case "/login", "/callback", "/logout", "/healthz":
		return true
	}
	return false
}

// authGate requires a signed-in, allowed user on every non-public route
// when login is configured.
func (s *Server) authGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Auth == nil || isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.cfg.Sessions.Get(r)
		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "sign in required", RequestID: RequestIDFrom(r.Context())})
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if !s.cfg.Policy.IsEmailAllowed(user.Email) {
			logger.HTTPInfo("[%s] %s is not on the allow list", RequestIDFrom(r.Context()), user.Email)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "access denied", RequestID: RequestIDFrom(r.Context())})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}
