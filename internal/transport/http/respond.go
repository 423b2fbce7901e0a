package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"rounds-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

// respondError maps domain sentinels onto HTTP statuses.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrAlreadyAnswered):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrBadRoundPassword),
		errors.Is(err, domain.ErrBadPassphrase):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrRoundInactive),
		errors.Is(err, domain.ErrPreviewPhase),
		errors.Is(err, domain.ErrNotConfigured):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrScreenLocked):
		status = http.StatusLocked
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		s.respond(w, status, errorResponse{Error: "internal error"})
		return
	}
	s.respond(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
