package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

func userFrom(ctx context.Context) domain.Participant {
	p, _ := ctx.Value(userKey).(domain.Participant)
	return p
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// authenticate resolves the bearer token and stores the account on the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			s.respond(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		user, err := s.identity.Authenticate(r.Context(), token)
		if err != nil {
			s.respondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// requireAdmin guards the organizer surface.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r.Context()).Role != domain.RoleAdmin {
			s.respond(w, http.StatusForbidden, errorResponse{Error: "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUnlocked rejects round mutations from a locked participant.
func (s *Server) requireUnlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locked, err := s.proctor.Locked(r.Context(), userFrom(r.Context()).ID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		if locked {
			s.respondError(w, domain.ErrScreenLocked)
			return
		}
		next.ServeHTTP(w, r)
	})
}
