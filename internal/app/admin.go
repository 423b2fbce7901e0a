package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
	"rounds-service/internal/gateway"
)

// AdminService is the organizer surface: round toggles, question edits, score
// overrides and attempt resets.
type AdminService struct {
	gw     *gateway.Gateway
	cache  *gateway.RoundCache
	notify Notifier
	log    *zap.Logger
}

func NewAdminService(gw *gateway.Gateway, cache *gateway.RoundCache, notify Notifier, log *zap.Logger) *AdminService {
	return &AdminService{gw: gw, cache: cache, notify: notify, log: log}
}

// UpdateRound merges config fields and drops the cached copy so participants
// see the change on their next load.
func (s *AdminService) UpdateRound(ctx context.Context, roundID string, fields docstore.Document) error {
	delete(fields, "id")
	if err := s.gw.UpdateRound(ctx, roundID, fields); err != nil {
		return err
	}
	s.cache.Invalidate(roundID)
	s.log.Info("round updated", zap.String("round", roundID))
	return nil
}

func (s *AdminService) GetRound(ctx context.Context, roundID string) (domain.RoundConfig, error) {
	cfg, err := s.gw.GetRound(ctx, roundID)
	if err == domain.ErrNotFound {
		return cfg, domain.ErrRoundNotFound
	}
	return cfg, err
}

func (s *AdminService) SetQuestion(ctx context.Context, q domain.Question) error {
	if err := s.gw.SetQuestion(ctx, q); err != nil {
		return err
	}
	s.cache.Invalidate(q.RoundID)
	return nil
}

func (s *AdminService) DeleteQuestion(ctx context.Context, roundID, questionID string) error {
	if err := s.gw.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	s.cache.Invalidate(roundID)
	return nil
}

func (s *AdminService) Questions(ctx context.Context, roundID string) ([]domain.Question, error) {
	return s.gw.QuestionsForRound(ctx, roundID)
}

// SetAdminScore records a manual score override for one attempt. Overrides
// beat auto scores everywhere they are read.
func (s *AdminService) SetAdminScore(ctx context.Context, participantID, roundID string, score int) error {
	if _, err := s.gw.GetAttempt(ctx, participantID, roundID); err != nil {
		return err
	}
	if err := s.gw.MergeAttempt(ctx, participantID, roundID, docstore.Document{
		"adminScore": score,
	}); err != nil {
		return err
	}
	s.log.Info("admin score set",
		zap.String("participant", participantID),
		zap.String("round", roundID),
		zap.Int("score", score),
	)
	if s.notify != nil {
		s.notify.Notify()
	}
	return nil
}

// DeleteAttempt removes an attempt entirely so the participant can retake the
// round from scratch.
func (s *AdminService) DeleteAttempt(ctx context.Context, participantID, roundID string) error {
	if err := s.gw.DeleteAttempt(ctx, participantID, roundID); err != nil {
		return err
	}
	s.log.Info("attempt deleted",
		zap.String("participant", participantID),
		zap.String("round", roundID),
	)
	if s.notify != nil {
		s.notify.Notify()
	}
	return nil
}

func (s *AdminService) ResultsForRound(ctx context.Context, roundID string) ([]domain.Attempt, error) {
	return s.gw.ResultsForRound(ctx, roundID)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.Participant, error) {
	users, err := s.gw.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *AdminService) ListAntiCheatLogs(ctx context.Context) ([]domain.AntiCheatLog, error) {
	return s.gw.ListAntiCheatLogs(ctx)
}

// SetUserRole promotes or demotes an account.
func (s *AdminService) SetUserRole(ctx context.Context, participantID, role string) error {
	if role != domain.RoleCandidate && role != domain.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	if _, err := s.gw.GetUser(ctx, participantID); err != nil {
		return err
	}
	if err := s.gw.UpdateUser(ctx, participantID, docstore.Document{"role": role}); err != nil {
		return err
	}
	s.log.Info("role changed",
		zap.String("participant", participantID),
		zap.String("role", role),
	)
	return nil
}
