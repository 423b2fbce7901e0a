package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/docstore"
	"rounds-service/internal/docstore/memory"
	"rounds-service/internal/domain"
	"rounds-service/internal/events"
	"rounds-service/internal/gateway"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store    *memory.Store
	gw       *gateway.Gateway
	queue    *gateway.WriteQueue
	attempts *AttemptService
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	gw := gateway.New(store)
	cache := gateway.NewRoundCache(gw, time.Minute)
	queue := gateway.NewWriteQueue(store, zap.NewNop(), 16, 3, time.Millisecond)
	t.Cleanup(queue.Close)

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	svc := NewAttemptService(gw, cache, queue, events.Nop{}, nil, nil, zap.NewNop())
	svc.now = clock.now
	return &fixture{store: store, gw: gw, queue: queue, attempts: svc, clock: clock}
}

func (f *fixture) seedRound(t *testing.T, doc docstore.Document) {
	t.Helper()
	id := doc["id"].(string)
	delete(doc, "id")
	if err := f.store.Set(context.Background(), docstore.CollectionRounds, id, doc, false); err != nil {
		t.Fatalf("seed round: %v", err)
	}
}

func (f *fixture) seedQuestion(t *testing.T, id, roundID string, order, correct int) {
	t.Helper()
	doc := docstore.Document{
		"order":         order,
		"question":      "q" + id,
		"options":       []string{"a", "b", "c", "d"},
		"correctAnswer": correct,
		"roundId":       roundID,
	}
	if err := f.store.Set(context.Background(), docstore.CollectionQuestions, id, doc, false); err != nil {
		t.Fatalf("seed question: %v", err)
	}
}

func mcqRound() docstore.Document {
	return docstore.Document{
		"id":        domain.RoundMCQ,
		"title":     "Quiz",
		"type":      domain.RoundTypeMCQ,
		"password":  "alpha",
		"timeLimit": 30,
		"isActive":  true,
	}
}

var tester = domain.Participant{ID: "0a6e9a39-1111-4222-8333-444455556666", Name: "Ada", Team: "Team 1"}

func TestStartRequiresPasswordAndActiveRound(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, mcqRound())
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "wrong"); !errors.Is(err, domain.ErrBadRoundPassword) {
		t.Fatalf("wrong password: got %v, want ErrBadRoundPassword", err)
	}

	inactive := mcqRound()
	inactive["id"] = domain.RoundTopic
	inactive["isActive"] = false
	f.seedRound(t, inactive)
	if _, err := f.attempts.Start(ctx, tester, domain.RoundTopic, "alpha"); !errors.Is(err, domain.ErrRoundInactive) {
		t.Fatalf("inactive round: got %v, want ErrRoundInactive", err)
	}
}

func TestResumeKeepsStartTime(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, mcqRound())
	ctx := context.Background()

	first, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "alpha")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Attempt.StartTime != f.clock.t.UnixMilli() {
		t.Fatalf("startTime = %d, want %d", first.Attempt.StartTime, f.clock.t.UnixMilli())
	}

	f.clock.advance(5 * time.Minute)
	// no password on resume, and the stored start time must not move
	second, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.Attempt.StartTime != first.Attempt.StartTime {
		t.Fatalf("resume reset startTime: %d != %d", second.Attempt.StartTime, first.Attempt.StartTime)
	}
	wantRemaining := int64(25 * 60)
	if second.RemainingSeconds != wantRemaining {
		t.Fatalf("remaining = %d, want %d", second.RemainingSeconds, wantRemaining)
	}
}

func TestAnswerScoringAndCompletion(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, mcqRound())
	f.seedQuestion(t, "q1", domain.RoundMCQ, 1, 2)
	f.seedQuestion(t, "q2", domain.RoundMCQ, 2, 0)
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := f.attempts.Answer(ctx, tester, domain.RoundMCQ, "q1", 2)
	if err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if !res.Correct || res.Score != 1 || res.Completed {
		t.Fatalf("answer q1 = %+v, want correct score=1 not completed", res)
	}

	if _, err := f.attempts.Answer(ctx, tester, domain.RoundMCQ, "q1", 2); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("re-answer: got %v, want ErrAlreadyAnswered", err)
	}

	f.clock.advance(90 * time.Second)
	res, err = f.attempts.Answer(ctx, tester, domain.RoundMCQ, "q2", 3)
	if err != nil {
		t.Fatalf("answer q2: %v", err)
	}
	if res.Correct || res.Score != 1 || !res.Completed {
		t.Fatalf("answer q2 = %+v, want wrong score=1 completed", res)
	}

	attempt, err := f.gw.GetAttempt(ctx, tester.ID, domain.RoundMCQ)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if !attempt.Completed || attempt.TimeTaken != 90 {
		t.Fatalf("stored attempt = completed %v timeTaken %d, want true 90", attempt.Completed, attempt.TimeTaken)
	}
	if _, err := f.attempts.Answer(ctx, tester, domain.RoundMCQ, "q2", 0); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("answer after completion: got %v, want ErrAlreadyCompleted", err)
	}
}

func TestExpiredAttemptIsCompletedOnRead(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, mcqRound())
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.advance(31 * time.Minute)
	snap, err := f.attempts.Get(ctx, tester, domain.RoundMCQ)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Phase != PhaseCompleted {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhaseCompleted)
	}
	if snap.Attempt.TimeTaken != 30*60 {
		t.Fatalf("timeTaken = %d, want full limit %d", snap.Attempt.TimeTaken, 30*60)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, mcqRound())
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.advance(2 * time.Minute)
	first, err := f.attempts.Complete(ctx, tester, domain.RoundMCQ)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if first.Attempt.TimeTaken != 120 {
		t.Fatalf("timeTaken = %d, want 120", first.Attempt.TimeTaken)
	}

	f.clock.advance(10 * time.Minute)
	second, err := f.attempts.Complete(ctx, tester, domain.RoundMCQ)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second.Attempt.EndTime != first.Attempt.EndTime || second.Attempt.TimeTaken != 120 {
		t.Fatalf("second complete changed the result: %+v", second.Attempt)
	}
}

func TestDesignRoundPreviewAndAutosave(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, docstore.Document{
		"id":             domain.RoundDesign,
		"title":          "Design",
		"type":           domain.RoundTypeDesign,
		"timeLimit":      45,
		"isActive":       true,
		"previewSeconds": 30,
	})
	if err := f.store.Set(context.Background(), docstore.CollectionChallenges, "c1", docstore.Document{
		"name": "Login card",
		"desc": "Recreate the card",
	}, false); err != nil {
		t.Fatalf("seed challenge: %v", err)
	}
	ctx := context.Background()

	snap, err := f.attempts.Start(ctx, tester, domain.RoundDesign, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Phase != PhasePreview {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhasePreview)
	}
	if snap.Attempt.ChallengeID != "c1" || snap.Challenge == nil {
		t.Fatalf("challenge not assigned: %+v", snap.Attempt)
	}

	if err := f.attempts.SaveCode(ctx, tester, domain.RoundDesign, "<p>", "p{}"); !errors.Is(err, domain.ErrPreviewPhase) {
		t.Fatalf("save during preview: got %v, want ErrPreviewPhase", err)
	}

	f.clock.advance(time.Minute)
	if err := f.attempts.SaveCode(ctx, tester, domain.RoundDesign, "<p>hi</p>", "p{color:red}"); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.queue.Close()

	attempt, err := f.gw.GetAttempt(ctx, tester.ID, domain.RoundDesign)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.SubmittedHTML != "<p>hi</p>" || attempt.SubmittedCSS != "p{color:red}" {
		t.Fatalf("autosave not persisted: %+v", attempt)
	}
}

type stubLocks struct{ locked bool }

func (s stubLocks) Locked(context.Context, string) (bool, error) { return s.locked, nil }

func TestLockedParticipantCannotAutostartExternalRound(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, docstore.Document{
		"id":        domain.RoundExternal,
		"title":     "External",
		"type":      domain.RoundTypeExternal,
		"timeLimit": 60,
		"isActive":  true,
	})
	f.attempts.locks = stubLocks{locked: true}
	ctx := context.Background()

	if _, err := f.attempts.Get(ctx, tester, domain.RoundExternal); !errors.Is(err, domain.ErrScreenLocked) {
		t.Fatalf("locked get: got %v, want ErrScreenLocked", err)
	}
	if _, err := f.gw.GetAttempt(ctx, tester.ID, domain.RoundExternal); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("attempt was created for a locked participant: %v", err)
	}

	f.attempts.locks = stubLocks{}
	snap, err := f.attempts.Get(ctx, tester, domain.RoundExternal)
	if err != nil {
		t.Fatalf("get after unlock: %v", err)
	}
	if snap.Phase != PhaseActive {
		t.Fatalf("phase = %q, want %q", snap.Phase, PhaseActive)
	}
}

func TestExternalRoundStartsOnFirstLoad(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, docstore.Document{
		"id":        domain.RoundExternal,
		"title":     "External",
		"type":      domain.RoundTypeExternal,
		"timeLimit": 60,
		"isActive":  true,
	})
	ctx := context.Background()

	snap, err := f.attempts.Get(ctx, tester, domain.RoundExternal)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Phase != PhaseActive || snap.Attempt.StartTime == 0 {
		t.Fatalf("external round did not start on load: %+v", snap)
	}
}

// completingStore runs a hook after the sweep lists attempts, standing in for
// a submit that lands between the sweep's read and its write.
type completingStore struct {
	*memory.Store
	onList func()
}

func (s *completingStore) ListAll(ctx context.Context, collection string) ([]docstore.Record, error) {
	records, err := s.Store.ListAll(ctx, collection)
	if err == nil && collection == docstore.CollectionAttempts && s.onList != nil {
		hook := s.onList
		s.onList = nil
		hook()
	}
	return records, err
}

func TestSweepKeepsResultOfRacingSubmit(t *testing.T) {
	store := &completingStore{Store: memory.NewStore()}
	gw := gateway.New(store)
	cache := gateway.NewRoundCache(gw, time.Minute)
	queue := gateway.NewWriteQueue(store, zap.NewNop(), 16, 3, time.Millisecond)
	t.Cleanup(queue.Close)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	svc := NewAttemptService(gw, cache, queue, events.Nop{}, nil, nil, zap.NewNop())
	svc.now = clock.now
	ctx := context.Background()

	round := mcqRound()
	id := round["id"].(string)
	delete(round, "id")
	if err := store.Set(ctx, docstore.CollectionRounds, id, round, false); err != nil {
		t.Fatalf("seed round: %v", err)
	}
	if _, err := svc.Start(ctx, tester, domain.RoundMCQ, "alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}

	clock.advance(31 * time.Minute)
	var submitted Snapshot
	store.onList = func() {
		snap, err := svc.Complete(ctx, tester, domain.RoundMCQ)
		if err != nil {
			t.Fatalf("racing complete: %v", err)
		}
		submitted = snap
	}
	svc.SweepTimeouts(ctx)

	attempt, err := gw.GetAttempt(ctx, tester.ID, domain.RoundMCQ)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.EndTime != submitted.Attempt.EndTime || attempt.TimeTaken != submitted.Attempt.TimeTaken {
		t.Fatalf("sweep rewrote the finished attempt: stored %d/%d, submit wrote %d/%d",
			attempt.EndTime, attempt.TimeTaken, submitted.Attempt.EndTime, submitted.Attempt.TimeTaken)
	}
}

func TestSweepCompletesExpiredAttempts(t *testing.T) {
	f := newFixture(t)
	f.seedRound(t, mcqRound())
	ctx := context.Background()

	if _, err := f.attempts.Start(ctx, tester, domain.RoundMCQ, "alpha"); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.advance(31 * time.Minute)
	f.attempts.SweepTimeouts(ctx)

	attempt, err := f.gw.GetAttempt(ctx, tester.ID, domain.RoundMCQ)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if !attempt.Completed || attempt.TimeTaken != 30*60 {
		t.Fatalf("sweep did not complete the attempt: %+v", attempt)
	}
}
