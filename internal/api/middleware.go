package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/unbindai/unbind/internal/auth"
	"github.com/unbindai/unbind/internal/config"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware validates the session token and stashes the user id in
// the request context.
func AuthMiddleware(cfg config.Config, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r, cfg.CookieName)
			if token == "" {
				jsonError(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			userID, err := auth.ParseToken(token, cfg.JWTSecret)
			if err != nil {
				log.Debug("rejected token", "error", err)
				jsonError(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id from the request context.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// RequestLogger logs incoming requests.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
