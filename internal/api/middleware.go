package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// adminMiddleware authorizes admin requests via the static API key or a
// login session token
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.unauthorized(w, r)
			return
		}

		if s.cfg.Auth.APIKey != "" && token == s.cfg.Auth.APIKey {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.users.GetSession(token)
		if err != nil {
			s.logger.Error("failed to look up session", "error", err)
			s.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			return
		}
		if session == nil {
			s.unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("unauthorized API request",
		"remote_addr", r.RemoteAddr,
		"path", r.URL.Path,
	)
	s.sendError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
}

// bearerToken extracts the credential from the Authorization or
// X-API-Key header
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		auth = r.Header.Get("X-API-Key")
	}
	if strings.HasPrefix(auth, "Bearer ") {
		auth = strings.TrimPrefix(auth, "Bearer ")
	}
	return auth
}
