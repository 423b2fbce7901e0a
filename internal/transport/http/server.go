// Package http exposes the service over REST plus a websocket leaderboard
// feed.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"rounds-service/internal/app"
)

// Server wires the domain services into a chi router.
type Server struct {
	identity *app.IdentityService
	attempts *app.AttemptService
	proctor  *app.ProctorService
	board    *app.LeaderboardService
	admin    *app.AdminService
	hub      *app.Hub
	log      *zap.Logger
	router   chi.Router
}

func NewServer(
	identity *app.IdentityService,
	attempts *app.AttemptService,
	proctor *app.ProctorService,
	board *app.LeaderboardService,
	admin *app.AdminService,
	hub *app.Hub,
	log *zap.Logger,
) *Server {
	s := &Server{
		identity: identity,
		attempts: attempts,
		proctor:  proctor,
		board:    board,
		admin:    admin,
		hub:      hub,
		log:      log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws/leaderboard", s.handleLeaderboardWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/me", s.handleMe)
			r.Get("/rounds", s.handleDashboard)
			r.Get("/leaderboard", s.handleLeaderboard)

			r.Post("/proctor/violation", s.handleViolation)
			r.Get("/proctor/status", s.handleProctorStatus)
			r.Post("/proctor/unlock", s.handleUnlock)

			r.Route("/rounds/{roundID}", func(r chi.Router) {
				r.Get("/", s.handleRoundState)
				r.Get("/questions", s.handleRoundQuestions)

				r.Group(func(r chi.Router) {
					r.Use(s.requireUnlocked)
					r.Post("/start", s.handleRoundStart)
					r.Post("/answer", s.handleRoundAnswer)
					r.Put("/code", s.handleRoundCode)
					r.Post("/complete", s.handleRoundComplete)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/users", s.handleAdminUsers)
				r.Patch("/users/{participantID}/role", s.handleAdminSetRole)
				r.Get("/anticheat", s.handleAdminAntiCheat)
				r.Get("/rounds/{roundID}", s.handleAdminGetRound)
				r.Patch("/rounds/{roundID}", s.handleAdminUpdateRound)
				r.Get("/rounds/{roundID}/questions", s.handleAdminQuestions)
				r.Put("/rounds/{roundID}/questions", s.handleAdminSetQuestion)
				r.Delete("/rounds/{roundID}/questions/{questionID}", s.handleAdminDeleteQuestion)
				r.Get("/rounds/{roundID}/results", s.handleAdminResults)
				r.Put("/attempts/{participantID}/{roundID}/score", s.handleAdminSetScore)
				r.Delete("/attempts/{participantID}/{roundID}", s.handleAdminDeleteAttempt)
			})
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
