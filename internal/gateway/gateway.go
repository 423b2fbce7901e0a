// Package gateway maps domain operations onto the generic document store.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

// Gateway is the typed persistence layer. It owns document encoding and the
// composite attempt-id convention; callers never touch collection names.
type Gateway struct {
	store docstore.Store
}

func New(store docstore.Store) *Gateway {
	return &Gateway{store: store}
}

// Store exposes the underlying document store for seeding batch writes.
func (g *Gateway) Store() docstore.Store {
	return g.store
}

func (g *Gateway) GetUser(ctx context.Context, id string) (domain.Participant, error) {
	var p domain.Participant
	doc, err := g.store.Get(ctx, docstore.CollectionUsers, id)
	if err != nil {
		return p, err
	}
	if err := fromDoc(doc, &p); err != nil {
		return p, err
	}
	p.ID = id
	return p, nil
}

func (g *Gateway) GetUserByEmail(ctx context.Context, email string) (domain.Participant, error) {
	records, err := g.store.QueryByField(ctx, docstore.CollectionUsers, "email", email)
	if err != nil {
		return domain.Participant{}, err
	}
	if len(records) == 0 {
		return domain.Participant{}, domain.ErrNotFound
	}
	var p domain.Participant
	if err := fromDoc(records[0].Data, &p); err != nil {
		return domain.Participant{}, err
	}
	p.ID = records[0].ID
	return p, nil
}

func (g *Gateway) CreateUser(ctx context.Context, p domain.Participant) error {
	doc, err := toDoc(p)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, docstore.CollectionUsers, p.ID, doc, false)
}

func (g *Gateway) UpdateUser(ctx context.Context, id string, fields docstore.Document) error {
	return g.store.Set(ctx, docstore.CollectionUsers, id, fields, true)
}

// ListUsers returns all users ordered by registration time, oldest first.
func (g *Gateway) ListUsers(ctx context.Context) ([]domain.Participant, error) {
	records, err := g.store.ListAll(ctx, docstore.CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]domain.Participant, 0, len(records))
	for _, r := range records {
		var p domain.Participant
		if err := fromDoc(r.Data, &p); err != nil {
			return nil, err
		}
		p.ID = r.ID
		users = append(users, p)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].RegisteredAt < users[j].RegisteredAt })
	return users, nil
}

// CountUsers backs FIFO team-number assignment.
func (g *Gateway) CountUsers(ctx context.Context) (int, error) {
	records, err := g.store.ListAll(ctx, docstore.CollectionUsers)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (g *Gateway) GetRound(ctx context.Context, roundID string) (domain.RoundConfig, error) {
	var cfg domain.RoundConfig
	doc, err := g.store.Get(ctx, docstore.CollectionRounds, roundID)
	if err != nil {
		return cfg, err
	}
	if err := fromDoc(doc, &cfg); err != nil {
		return cfg, err
	}
	cfg.ID = roundID
	return cfg, nil
}

func (g *Gateway) UpdateRound(ctx context.Context, roundID string, fields docstore.Document) error {
	return g.store.Set(ctx, docstore.CollectionRounds, roundID, fields, true)
}

// QuestionsForRound returns the round's questions ordered by their order
// index. Sorting happens client-side, like the store's own dashboards do.
func (g *Gateway) QuestionsForRound(ctx context.Context, roundID string) ([]domain.Question, error) {
	records, err := g.store.QueryByField(ctx, docstore.CollectionQuestions, "roundId", roundID)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(records))
	for _, r := range records {
		var q domain.Question
		if err := fromDoc(r.Data, &q); err != nil {
			return nil, err
		}
		q.ID = r.ID
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })
	return questions, nil
}

func (g *Gateway) SetQuestion(ctx context.Context, q domain.Question) error {
	doc, err := toDoc(q)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, docstore.CollectionQuestions, q.ID, doc, true)
}

func (g *Gateway) DeleteQuestion(ctx context.Context, questionID string) error {
	return g.store.Delete(ctx, docstore.CollectionQuestions, questionID)
}

func (g *Gateway) GetAttempt(ctx context.Context, participantID, roundID string) (domain.Attempt, error) {
	var a domain.Attempt
	doc, err := g.store.Get(ctx, docstore.CollectionAttempts, domain.AttemptID(participantID, roundID))
	if err != nil {
		if err == domain.ErrNotFound {
			return a, domain.ErrAttemptNotFound
		}
		return a, err
	}
	if err := fromDoc(doc, &a); err != nil {
		return a, err
	}
	a.ID = domain.AttemptID(participantID, roundID)
	a.ParticipantID = participantID
	a.RoundID = roundID
	return a, nil
}

func (g *Gateway) CreateAttempt(ctx context.Context, a domain.Attempt) error {
	doc, err := toDoc(a)
	if err != nil {
		return err
	}
	delete(doc, "id")
	return g.store.Set(ctx, docstore.CollectionAttempts, domain.AttemptID(a.ParticipantID, a.RoundID), doc, true)
}

// MergeAttempt writes a partial update; StartTime must never appear in fields
// after creation (callers enforce the write-once rule).
func (g *Gateway) MergeAttempt(ctx context.Context, participantID, roundID string, fields docstore.Document) error {
	return g.store.Set(ctx, docstore.CollectionAttempts, domain.AttemptID(participantID, roundID), fields, true)
}

func (g *Gateway) DeleteAttempt(ctx context.Context, participantID, roundID string) error {
	return g.store.Delete(ctx, docstore.CollectionAttempts, domain.AttemptID(participantID, roundID))
}

// ListAttempts scans the whole attempts collection, recovering participant
// and round from the composite id.
func (g *Gateway) ListAttempts(ctx context.Context) ([]domain.Attempt, error) {
	records, err := g.store.ListAll(ctx, docstore.CollectionAttempts)
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.Attempt, 0, len(records))
	for _, r := range records {
		var a domain.Attempt
		if err := fromDoc(r.Data, &a); err != nil {
			return nil, err
		}
		a.ID = r.ID
		a.ParticipantID, a.RoundID = splitAttemptID(r.ID)
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// ResultsForRound filters the attempt scan down to one round.
func (g *Gateway) ResultsForRound(ctx context.Context, roundID string) ([]domain.Attempt, error) {
	all, err := g.ListAttempts(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if a.RoundID == roundID {
			out = append(out, a)
		}
	}
	return out, nil
}

func splitAttemptID(id string) (participantID, roundID string) {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i+1:]
}

func (g *Gateway) GetAntiCheatLog(ctx context.Context, participantID string) (domain.AntiCheatLog, error) {
	var log domain.AntiCheatLog
	doc, err := g.store.Get(ctx, docstore.CollectionAntiCheat, participantID)
	if err != nil {
		return log, err
	}
	if err := fromDoc(doc, &log); err != nil {
		return log, err
	}
	log.ParticipantID = participantID
	return log, nil
}

func (g *Gateway) SaveAntiCheatLog(ctx context.Context, participantID string, fields docstore.Document) error {
	return g.store.Set(ctx, docstore.CollectionAntiCheat, participantID, fields, true)
}

func (g *Gateway) ListAntiCheatLogs(ctx context.Context) ([]domain.AntiCheatLog, error) {
	records, err := g.store.ListAll(ctx, docstore.CollectionAntiCheat)
	if err != nil {
		return nil, err
	}
	logs := make([]domain.AntiCheatLog, 0, len(records))
	for _, r := range records {
		var l domain.AntiCheatLog
		if err := fromDoc(r.Data, &l); err != nil {
			return nil, err
		}
		l.ParticipantID = r.ID
		logs = append(logs, l)
	}
	return logs, nil
}

func (g *Gateway) ListChallenges(ctx context.Context) ([]domain.DesignChallenge, error) {
	records, err := g.store.ListAll(ctx, docstore.CollectionChallenges)
	if err != nil {
		return nil, err
	}
	challenges := make([]domain.DesignChallenge, 0, len(records))
	for _, r := range records {
		var c domain.DesignChallenge
		if err := fromDoc(r.Data, &c); err != nil {
			return nil, err
		}
		c.ID = r.ID
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func (g *Gateway) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	records, err := g.store.ListAll(ctx, docstore.CollectionTopics)
	if err != nil {
		return nil, err
	}
	topics := make([]domain.Topic, 0, len(records))
	for _, r := range records {
		var t domain.Topic
		if err := fromDoc(r.Data, &t); err != nil {
			return nil, err
		}
		t.ID = r.ID
		topics = append(topics, t)
	}
	return topics, nil
}

func toDoc(v any) (docstore.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

func fromDoc(doc docstore.Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
