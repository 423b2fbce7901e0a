package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
	"rounds-service/internal/events"
	"rounds-service/internal/gateway"
	"rounds-service/internal/warnstore"
)

// ViolationOutcome tells the client what happened to its report.
type ViolationOutcome struct {
	Warnings    int    `json:"warnings"`
	MaxWarnings int    `json:"maxWarnings"`
	Locked      bool   `json:"locked"`
	Message     string `json:"message"`
}

// ProctorService tracks violation warnings across all rounds. One counter per
// participant; crossing the warning budget locks every round surface until an
// organizer enters the unlock passphrase, which resets the counter to zero.
type ProctorService struct {
	gw         *gateway.Gateway
	counters   warnstore.Store
	maxWarn    int
	passphrase string
	pub        events.Publisher
	log        *zap.Logger
	now        func() time.Time
}

func NewProctorService(gw *gateway.Gateway, counters warnstore.Store, maxWarnings int, passphrase string, pub events.Publisher, log *zap.Logger) *ProctorService {
	if maxWarnings <= 0 {
		maxWarnings = 3
	}
	return &ProctorService{
		gw:         gw,
		counters:   counters,
		maxWarn:    maxWarnings,
		passphrase: passphrase,
		pub:        pub,
		log:        log,
		now:        time.Now,
	}
}

// count returns the live warning count, seeding the counter store from the
// durable log after a restart.
func (s *ProctorService) count(ctx context.Context, participantID string) (int, error) {
	n, ok, err := s.counters.Get(ctx, participantID)
	if err != nil {
		return 0, err
	}
	if ok {
		return n, nil
	}
	log, err := s.gw.GetAntiCheatLog(ctx, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, s.counters.Set(ctx, participantID, 0)
		}
		return 0, err
	}
	if err := s.counters.Set(ctx, participantID, log.Warnings); err != nil {
		return 0, err
	}
	return log.Warnings, nil
}

// RecordViolation bumps the participant's warning count. Reports arriving
// while already locked are acknowledged but not counted.
func (s *ProctorService) RecordViolation(ctx context.Context, participantID, kind string) (ViolationOutcome, error) {
	current, err := s.count(ctx, participantID)
	if err != nil {
		return ViolationOutcome{}, err
	}
	if current > s.maxWarn {
		return ViolationOutcome{
			Warnings:    current,
			MaxWarnings: s.maxWarn,
			Locked:      true,
			Message:     "Screen locked. Contact an organizer to continue.",
		}, nil
	}

	n, err := s.counters.Incr(ctx, participantID)
	if err != nil {
		return ViolationOutcome{}, err
	}
	nowMs := s.now().UnixMilli()
	if err := s.gw.SaveAntiCheatLog(ctx, participantID, docstore.Document{
		"warnings":        n,
		"lastViolation":   kind,
		"lastViolationAt": nowMs,
	}); err != nil {
		return ViolationOutcome{}, err
	}

	locked := n > s.maxWarn
	outcome := ViolationOutcome{
		Warnings:    n,
		MaxWarnings: s.maxWarn,
		Locked:      locked,
	}
	if locked {
		outcome.Message = "Screen locked. Contact an organizer to continue."
		s.log.Warn("participant locked",
			zap.String("participant", participantID),
			zap.String("violation", kind),
			zap.Int("warnings", n),
		)
		s.pub.Publish(events.SubjectLockout, map[string]any{
			"participantId": participantID,
			"violation":     kind,
			"warnings":      n,
		})
	} else {
		outcome.Message = fmt.Sprintf("Warning %d/%d: suspicious activity detected.", n, s.maxWarn)
		s.pub.Publish(events.SubjectViolation, map[string]any{
			"participantId": participantID,
			"violation":     kind,
			"warnings":      n,
		})
	}
	return outcome, nil
}

// Locked reports whether the participant's screen is currently locked.
func (s *ProctorService) Locked(ctx context.Context, participantID string) (bool, error) {
	n, err := s.count(ctx, participantID)
	if err != nil {
		return false, err
	}
	return n > s.maxWarn, nil
}

// Status returns the current warning state for the client banner.
func (s *ProctorService) Status(ctx context.Context, participantID string) (ViolationOutcome, error) {
	n, err := s.count(ctx, participantID)
	if err != nil {
		return ViolationOutcome{}, err
	}
	return ViolationOutcome{
		Warnings:    n,
		MaxWarnings: s.maxWarn,
		Locked:      n > s.maxWarn,
	}, nil
}

// Unlock clears the lock when the organizer passphrase matches. The warning
// count goes back to zero, not to the threshold.
func (s *ProctorService) Unlock(ctx context.Context, participantID, passphrase string) error {
	if passphrase != s.passphrase {
		return domain.ErrBadPassphrase
	}
	if err := s.counters.Reset(ctx, participantID); err != nil {
		return err
	}
	if err := s.gw.SaveAntiCheatLog(ctx, participantID, docstore.Document{
		"warnings":   0,
		"unlockedAt": s.now().UnixMilli(),
	}); err != nil {
		return err
	}
	s.log.Info("participant unlocked", zap.String("participant", participantID))
	s.pub.Publish(events.SubjectUnlock, map[string]any{
		"participantId": participantID,
	})
	return nil
}
