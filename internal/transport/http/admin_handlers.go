package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, users)
}

func (s *Server) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decode(r, &req); err != nil || (req.Role != domain.RoleCandidate && req.Role != domain.RoleAdmin) {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "role must be candidate or admin"})
		return
	}
	if err := s.admin.SetUserRole(r.Context(), chi.URLParam(r, "participantID"), req.Role); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleAdminAntiCheat(w http.ResponseWriter, r *http.Request) {
	logs, err := s.admin.ListAntiCheatLogs(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, logs)
}

func (s *Server) handleAdminGetRound(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.admin.GetRound(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, cfg)
}

func (s *Server) handleAdminUpdateRound(w http.ResponseWriter, r *http.Request) {
	var fields docstore.Document
	if err := decode(r, &fields); err != nil || len(fields) == 0 {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	roundID := chi.URLParam(r, "roundID")
	if err := s.admin.UpdateRound(r.Context(), roundID, fields); err != nil {
		s.respondError(w, err)
		return
	}
	cfg, err := s.admin.GetRound(r.Context(), roundID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, cfg)
}

func (s *Server) handleAdminQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.admin.Questions(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, questions)
}

func (s *Server) handleAdminSetQuestion(w http.ResponseWriter, r *http.Request) {
	var q domain.Question
	if err := decode(r, &q); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	q.RoundID = chi.URLParam(r, "roundID")
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := s.admin.SetQuestion(r.Context(), q); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, q)
}

func (s *Server) handleAdminDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	err := s.admin.DeleteQuestion(r.Context(), chi.URLParam(r, "roundID"), chi.URLParam(r, "questionID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleAdminResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.admin.ResultsForRound(r.Context(), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, results)
}

func (s *Server) handleAdminSetScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score *int `json:"score"`
	}
	if err := decode(r, &req); err != nil || req.Score == nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "score required"})
		return
	}
	err := s.admin.SetAdminScore(r.Context(), chi.URLParam(r, "participantID"), chi.URLParam(r, "roundID"), *req.Score)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleAdminDeleteAttempt(w http.ResponseWriter, r *http.Request) {
	err := s.admin.DeleteAttempt(r.Context(), chi.URLParam(r, "participantID"), chi.URLParam(r, "roundID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}
