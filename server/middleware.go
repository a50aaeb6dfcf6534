package server

import (
	"context"
	"net/http"
	"strings"
)

const (
	Blue    = "\033[34m"
	Cyan    = "\033[36m"
	Green   = "\033[32m"
	Magenta = "\033[35m"
	Yellow  = "\033[33m"
	Gray    = "\033[90m"

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
	"PATCH":  Magenta,
}

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUserID stores the authenticated user ID
const ContextKeyUserID ContextKey = "user_id"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			s.logRoute(r.Method, r.URL.Path)
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				writeMessage(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next(w, r)
	}
}

// scriptedFailure counts calls to route and answers with any status queued by FailNext.
func (s *Server) scriptedFailure(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.calls[route]++
			var status int
			if queued := s.failures[route]; len(queued) > 0 {
				status = queued[0]
				s.failures[route] = queued[1:]
			}
			s.mu.Unlock()

			if status != 0 {
				writeMessage(w, status, http.StatusText(status))
				return
			}
			next(w, r)
		}
	}
}

// RequireAuth validates the bearer access token and stores the user id in
// the request context.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := s.issuer.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyUserID, userID)))
	}
}

func userIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ContextKeyUserID).(int64)
	return id
}
