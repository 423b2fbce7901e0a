// Package app implements the event's domain services on top of the gateway.
package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
	"rounds-service/internal/events"
	"rounds-service/internal/gateway"
)

// Attempt lifecycle phases derived from the persisted record plus the clock.
const (
	PhaseUnstarted = "unstarted"
	PhasePreview   = "preview"
	PhaseActive    = "active"
	PhaseCompleted = "completed"
)

// Notifier is poked whenever scores change so live views can refresh.
type Notifier interface {
	Notify()
}

// LockChecker reports whether a participant's screen is currently locked.
type LockChecker interface {
	Locked(ctx context.Context, participantID string) (bool, error)
}

// Snapshot is the client-facing view of an attempt. Remaining time is derived
// from the immutable start time on every read, never stored.
type Snapshot struct {
	Attempt          domain.Attempt          `json:"attempt"`
	Round            domain.RoundConfig      `json:"round"`
	Phase            string                  `json:"phase"`
	RemainingSeconds int64                   `json:"remainingSeconds"`
	PreviewRemaining int64                   `json:"previewRemaining,omitempty"`
	Challenge        *domain.DesignChallenge `json:"challenge,omitempty"`
	Topic            *domain.Topic           `json:"topic,omitempty"`
}

// AnswerResult reports the outcome of one MCQ submission.
type AnswerResult struct {
	Correct       bool `json:"correct"`
	CorrectAnswer int  `json:"correctAnswer"`
	Score         int  `json:"score"`
	Completed     bool `json:"completed"`
}

// AttemptService drives the round attempt state machine.
type AttemptService struct {
	gw     *gateway.Gateway
	cache  *gateway.RoundCache
	queue  *gateway.WriteQueue
	pub    events.Publisher
	locks  LockChecker
	notify Notifier
	log    *zap.Logger
	now    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewAttemptService(gw *gateway.Gateway, cache *gateway.RoundCache, queue *gateway.WriteQueue, pub events.Publisher, locks LockChecker, notify Notifier, log *zap.Logger) *AttemptService {
	return &AttemptService{
		gw:     gw,
		cache:  cache,
		queue:  queue,
		pub:    pub,
		locks:  locks,
		notify: notify,
		log:    log,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *AttemptService) nowMillis() int64 {
	return s.now().UnixMilli()
}

// RoundStatus is one dashboard entry: the round's public config plus the
// participant's progress in it.
type RoundStatus struct {
	Round       domain.RoundConfig `json:"round"`
	HasPassword bool               `json:"hasPassword"`
	Started     bool               `json:"started"`
	Completed   bool               `json:"completed"`
	Score       *int               `json:"score,omitempty"`
}

// Dashboard lists all rounds with the participant's progress, in play order.
func (s *AttemptService) Dashboard(ctx context.Context, p domain.Participant) ([]RoundStatus, error) {
	statuses := make([]RoundStatus, 0, len(domain.RoundIDs))
	for _, roundID := range domain.RoundIDs {
		content, err := s.cache.GetRound(ctx, roundID)
		if errors.Is(err, domain.ErrRoundNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg := content.Config
		status := RoundStatus{
			Round:       redactRound(cfg),
			HasPassword: cfg.Password != "",
		}
		attempt, err := s.gw.GetAttempt(ctx, p.ID, roundID)
		switch {
		case err == nil:
			status.Started = true
			status.Completed = attempt.Completed
			if score, ok := attempt.EffectiveScore(); ok {
				status.Score = &score
			}
		case !errors.Is(err, domain.ErrAttemptNotFound):
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Start begins a round for a participant, or resumes the existing attempt.
// The password gate only applies to a fresh start; an in-progress attempt
// resumes without it. The stored start time is never touched on resume.
func (s *AttemptService) Start(ctx context.Context, p domain.Participant, roundID, password string) (Snapshot, error) {
	content, err := s.cache.GetRound(ctx, roundID)
	if err != nil {
		return Snapshot{}, err
	}
	cfg := content.Config
	if !cfg.IsActive {
		return Snapshot{}, domain.ErrRoundInactive
	}

	attempt, err := s.gw.GetAttempt(ctx, p.ID, roundID)
	if err == nil {
		return s.snapshot(ctx, cfg, attempt)
	}
	if !errors.Is(err, domain.ErrAttemptNotFound) {
		return Snapshot{}, err
	}

	if cfg.Password != "" && password != cfg.Password {
		return Snapshot{}, domain.ErrBadRoundPassword
	}

	attempt, err = s.createAttempt(ctx, p, cfg)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(ctx, cfg, attempt)
}

// Get returns the current snapshot without mutating progress, except for two
// cases: an expired attempt is force-completed on read, and the externally
// hosted round starts implicitly on first load.
func (s *AttemptService) Get(ctx context.Context, p domain.Participant, roundID string) (Snapshot, error) {
	content, err := s.cache.GetRound(ctx, roundID)
	if err != nil {
		return Snapshot{}, err
	}
	cfg := content.Config

	attempt, err := s.gw.GetAttempt(ctx, p.ID, roundID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		if cfg.Type == domain.RoundTypeExternal && cfg.IsActive {
			// implicit start is still a start, so the screen lock applies
			if s.locks != nil {
				locked, err := s.locks.Locked(ctx, p.ID)
				if err != nil {
					return Snapshot{}, err
				}
				if locked {
					return Snapshot{}, domain.ErrScreenLocked
				}
			}
			attempt, err = s.createAttempt(ctx, p, cfg)
			if err != nil {
				return Snapshot{}, err
			}
			return s.snapshot(ctx, cfg, attempt)
		}
		return Snapshot{
			Round: redactRound(cfg),
			Phase: PhaseUnstarted,
		}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(ctx, cfg, attempt)
}

func (s *AttemptService) createAttempt(ctx context.Context, p domain.Participant, cfg domain.RoundConfig) (domain.Attempt, error) {
	attempt := domain.Attempt{
		ParticipantID: p.ID,
		RoundID:       cfg.ID,
		Team:          p.Team,
		Name:          p.Name,
		StartTime:     s.nowMillis(),
	}

	switch cfg.Type {
	case domain.RoundTypeMCQ:
		zero := 0
		attempt.Score = &zero
		attempt.Answers = map[string]domain.Answer{}
	case domain.RoundTypeDesign:
		challenges, err := s.gw.ListChallenges(ctx)
		if err != nil {
			return domain.Attempt{}, err
		}
		if len(challenges) == 0 {
			return domain.Attempt{}, domain.ErrNotConfigured
		}
		attempt.ChallengeID = challenges[s.pick(len(challenges))].ID
	case domain.RoundTypeTopic:
		topics, err := s.gw.ListTopics(ctx)
		if err != nil {
			return domain.Attempt{}, err
		}
		if len(topics) == 0 {
			return domain.Attempt{}, domain.ErrNotConfigured
		}
		attempt.TopicID = topics[s.pick(len(topics))].ID
	}

	if err := s.gw.CreateAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}
	attempt.ID = domain.AttemptID(p.ID, cfg.ID)
	s.pub.Publish(events.SubjectAttemptStarted, map[string]any{
		"participantId": p.ID,
		"roundId":       cfg.ID,
		"startTime":     attempt.StartTime,
	})
	s.log.Info("attempt started",
		zap.String("participant", p.ID),
		zap.String("round", cfg.ID),
	)
	return attempt, nil
}

func (s *AttemptService) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// Answer records one MCQ selection. Re-answering a question is rejected; the
// last answered question completes the attempt.
func (s *AttemptService) Answer(ctx context.Context, p domain.Participant, roundID, questionID string, selected int) (AnswerResult, error) {
	content, err := s.cache.GetRound(ctx, roundID)
	if err != nil {
		return AnswerResult{}, err
	}
	cfg := content.Config

	attempt, err := s.gw.GetAttempt(ctx, p.ID, roundID)
	if err != nil {
		return AnswerResult{}, err
	}
	if attempt.Completed {
		return AnswerResult{}, domain.ErrAlreadyCompleted
	}
	if s.expired(cfg, attempt) {
		if err := s.forceTimeout(ctx, cfg, attempt); err != nil {
			return AnswerResult{}, err
		}
		return AnswerResult{}, domain.ErrAlreadyCompleted
	}

	var question *domain.Question
	for i := range content.Questions {
		if content.Questions[i].ID == questionID {
			question = &content.Questions[i]
			break
		}
	}
	if question == nil {
		return AnswerResult{}, domain.ErrQuestionNotFound
	}
	if _, answered := attempt.Answers[questionID]; answered {
		return AnswerResult{}, domain.ErrAlreadyAnswered
	}

	correct := selected == question.CorrectAnswer
	score := 0
	if attempt.Score != nil {
		score = *attempt.Score
	}
	if correct {
		score++
	}
	if attempt.Answers == nil {
		attempt.Answers = map[string]domain.Answer{}
	}
	attempt.Answers[questionID] = domain.Answer{Selected: selected, Correct: correct}

	fields := docstore.Document{
		"answers":         attempt.Answers,
		"score":           score,
		"currentQuestion": len(attempt.Answers),
	}

	done := len(attempt.Answers) >= len(content.Questions)
	if done {
		now := s.nowMillis()
		fields["completed"] = true
		fields["endTime"] = now
		fields["timeTaken"] = (now - attempt.StartTime) / 1000
	}

	if err := s.gw.MergeAttempt(ctx, p.ID, roundID, fields); err != nil {
		return AnswerResult{}, err
	}
	if done {
		s.pub.Publish(events.SubjectAttemptCompleted, map[string]any{
			"participantId": p.ID,
			"roundId":       roundID,
			"score":         score,
		})
	}
	if s.notify != nil {
		s.notify.Notify()
	}
	return AnswerResult{
		Correct:       correct,
		CorrectAnswer: question.CorrectAnswer,
		Score:         score,
		Completed:     done,
	}, nil
}

// SaveCode autosaves the design round's editors. Writes go through the retry
// queue; a save during the read-only preview phase is rejected.
func (s *AttemptService) SaveCode(ctx context.Context, p domain.Participant, roundID, html, css string) error {
	content, err := s.cache.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	cfg := content.Config

	attempt, err := s.gw.GetAttempt(ctx, p.ID, roundID)
	if err != nil {
		return err
	}
	if attempt.Completed {
		return domain.ErrAlreadyCompleted
	}
	if s.expired(cfg, attempt) {
		return s.forceTimeout(ctx, cfg, attempt)
	}
	if s.inPreview(cfg, attempt) {
		return domain.ErrPreviewPhase
	}

	s.queue.Enqueue(docstore.CollectionAttempts, attempt.ID, docstore.Document{
		"submittedHtml": html,
		"submittedCss":  css,
	}, true)
	return nil
}

// Complete finishes an attempt. A repeat call is a no-op returning the stored
// result; the first completion wins.
func (s *AttemptService) Complete(ctx context.Context, p domain.Participant, roundID string) (Snapshot, error) {
	content, err := s.cache.GetRound(ctx, roundID)
	if err != nil {
		return Snapshot{}, err
	}
	cfg := content.Config

	attempt, err := s.gw.GetAttempt(ctx, p.ID, roundID)
	if err != nil {
		return Snapshot{}, err
	}
	if attempt.Completed {
		return s.snapshot(ctx, cfg, attempt)
	}

	now := s.nowMillis()
	elapsed := (now - attempt.StartTime) / 1000
	limit := int64(cfg.TimeLimit) * 60
	if limit > 0 && elapsed > limit {
		elapsed = limit
	}
	fields := docstore.Document{
		"completed": true,
		"endTime":   now,
		"timeTaken": elapsed,
	}
	if err := s.gw.MergeAttempt(ctx, p.ID, roundID, fields); err != nil {
		return Snapshot{}, err
	}
	attempt.Completed = true
	attempt.EndTime = now
	attempt.TimeTaken = elapsed

	s.pub.Publish(events.SubjectAttemptCompleted, map[string]any{
		"participantId": p.ID,
		"roundId":       roundID,
	})
	s.log.Info("attempt completed",
		zap.String("participant", p.ID),
		zap.String("round", roundID),
		zap.Int64("timeTaken", elapsed),
	)
	if s.notify != nil {
		s.notify.Notify()
	}
	return s.snapshot(ctx, cfg, attempt)
}

// SweepTimeouts force-completes every active attempt whose time limit has
// passed. Scheduled via cron; errors on one attempt do not stop the sweep.
func (s *AttemptService) SweepTimeouts(ctx context.Context) {
	attempts, err := s.gw.ListAttempts(ctx)
	if err != nil {
		s.log.Warn("timeout sweep: list attempts", zap.Error(err))
		return
	}
	for _, attempt := range attempts {
		if attempt.Completed {
			continue
		}
		content, err := s.cache.GetRound(ctx, attempt.RoundID)
		if err != nil {
			s.log.Warn("timeout sweep: load round",
				zap.String("round", attempt.RoundID), zap.Error(err))
			continue
		}
		if !s.expired(content.Config, attempt) {
			continue
		}
		if err := s.forceTimeout(ctx, content.Config, attempt); err != nil {
			s.log.Warn("timeout sweep: force complete",
				zap.String("attempt", attempt.ID), zap.Error(err))
		}
	}
}

// forceTimeout completes an expired attempt with the full time limit charged.
// The caller's copy may be stale, so the stored record is re-read first; a
// submit that landed in the meantime keeps its own endTime and timeTaken.
func (s *AttemptService) forceTimeout(ctx context.Context, cfg domain.RoundConfig, attempt domain.Attempt) error {
	current, err := s.gw.GetAttempt(ctx, attempt.ParticipantID, attempt.RoundID)
	if err != nil {
		return err
	}
	if current.Completed {
		return nil
	}
	limit := int64(cfg.TimeLimit) * 60
	fields := docstore.Document{
		"completed": true,
		"endTime":   current.StartTime + limit*1000,
		"timeTaken": limit,
	}
	if err := s.gw.MergeAttempt(ctx, attempt.ParticipantID, attempt.RoundID, fields); err != nil {
		return err
	}
	s.log.Info("attempt timed out",
		zap.String("participant", attempt.ParticipantID),
		zap.String("round", attempt.RoundID),
	)
	s.pub.Publish(events.SubjectAttemptCompleted, map[string]any{
		"participantId": attempt.ParticipantID,
		"roundId":       attempt.RoundID,
		"timedOut":      true,
	})
	if s.notify != nil {
		s.notify.Notify()
	}
	return nil
}

func (s *AttemptService) expired(cfg domain.RoundConfig, attempt domain.Attempt) bool {
	if cfg.TimeLimit <= 0 {
		return false
	}
	elapsed := (s.nowMillis() - attempt.StartTime) / 1000
	return elapsed >= int64(cfg.TimeLimit)*60
}

func (s *AttemptService) inPreview(cfg domain.RoundConfig, attempt domain.Attempt) bool {
	if cfg.PreviewSeconds <= 0 {
		return false
	}
	elapsed := (s.nowMillis() - attempt.StartTime) / 1000
	return elapsed < int64(cfg.PreviewSeconds)
}

// snapshot derives phase and remaining time from the stored record. An
// expired attempt is completed here so a reload can never restart the clock.
func (s *AttemptService) snapshot(ctx context.Context, cfg domain.RoundConfig, attempt domain.Attempt) (Snapshot, error) {
	if !attempt.Completed && s.expired(cfg, attempt) {
		if err := s.forceTimeout(ctx, cfg, attempt); err != nil {
			return Snapshot{}, err
		}
		var err error
		attempt, err = s.gw.GetAttempt(ctx, attempt.ParticipantID, attempt.RoundID)
		if err != nil {
			return Snapshot{}, err
		}
	}

	snap := Snapshot{
		Attempt: attempt,
		Round:   redactRound(cfg),
	}
	if attempt.Completed {
		snap.Phase = PhaseCompleted
		return s.attachContent(ctx, cfg, snap)
	}

	elapsed := (s.nowMillis() - attempt.StartTime) / 1000
	remaining := int64(cfg.TimeLimit)*60 - elapsed
	if remaining < 0 {
		remaining = 0
	}
	snap.RemainingSeconds = remaining
	snap.Phase = PhaseActive
	if cfg.PreviewSeconds > 0 && elapsed < int64(cfg.PreviewSeconds) {
		snap.Phase = PhasePreview
		snap.PreviewRemaining = int64(cfg.PreviewSeconds) - elapsed
	}
	return s.attachContent(ctx, cfg, snap)
}

// attachContent resolves the assigned challenge or topic for the snapshot.
func (s *AttemptService) attachContent(ctx context.Context, cfg domain.RoundConfig, snap Snapshot) (Snapshot, error) {
	switch {
	case snap.Attempt.ChallengeID != "":
		challenges, err := s.gw.ListChallenges(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		for i := range challenges {
			if challenges[i].ID == snap.Attempt.ChallengeID {
				snap.Challenge = &challenges[i]
				break
			}
		}
	case snap.Attempt.TopicID != "":
		topics, err := s.gw.ListTopics(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		for i := range topics {
			if topics[i].ID == snap.Attempt.TopicID {
				snap.Topic = &topics[i]
				break
			}
		}
	}
	return snap, nil
}

// redactRound strips the gate password before a config leaves the service.
func redactRound(cfg domain.RoundConfig) domain.RoundConfig {
	cfg.Password = ""
	return cfg
}
