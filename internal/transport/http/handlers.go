package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rounds-service/internal/domain"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  domain.Participant `json:"user"`
	Token string             `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	user, token, err := s.identity.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	user, token, err := s.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, userFrom(r.Context()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.attempts.Dashboard(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, statuses)
}

func (s *Server) handleRoundState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.attempts.Get(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

// clientQuestion is a quiz item with the answer key stripped.
type clientQuestion struct {
	ID      string   `json:"id"`
	Order   int      `json:"order"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

func (s *Server) handleRoundQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.admin.Questions(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	out := make([]clientQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, clientQuestion{ID: q.ID, Order: q.Order, Prompt: q.Prompt, Options: q.Options})
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleRoundStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil && r.ContentLength > 0 {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	snap, err := s.attempts.Start(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roundID"), req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

func (s *Server) handleRoundAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"questionId"`
		Selected   int    `json:"selected"`
	}
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := s.attempts.Answer(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roundID"), req.QuestionID, req.Selected)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleRoundCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
		CSS  string `json:"css"`
	}
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := s.attempts.SaveCode(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roundID"), req.HTML, req.CSS); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, map[string]string{"status": "saved"})
}

func (s *Server) handleRoundComplete(w http.ResponseWriter, r *http.Request) {
	snap, err := s.attempts.Complete(r.Context(), userFrom(r.Context()), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, snap)
}

func (s *Server) handleViolation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Violation string `json:"violation"`
	}
	if err := decode(r, &req); err != nil || req.Violation == "" {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "violation kind required"})
		return
	}
	outcome, err := s.proctor.RecordViolation(r.Context(), userFrom(r.Context()).ID, req.Violation)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, outcome)
}

func (s *Server) handleProctorStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.proctor.Status(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, status)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := decode(r, &req); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := s.proctor.Unlock(r.Context(), userFrom(r.Context()).ID, req.Passphrase); err != nil {
		s.respondError(w, err)
		return
	}
	status, err := s.proctor.Status(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, status)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.board.Build(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, board)
}
