package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/app"
	"rounds-service/internal/auth"
	"rounds-service/internal/docstore"
	"rounds-service/internal/docstore/memory"
	"rounds-service/internal/domain"
	"rounds-service/internal/events"
	"rounds-service/internal/gateway"
	"rounds-service/internal/warnstore"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	gw := gateway.New(store)
	cache := gateway.NewRoundCache(gw, time.Minute)
	queue := gateway.NewWriteQueue(store, zap.NewNop(), 16, 3, time.Millisecond)
	t.Cleanup(queue.Close)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	identity := app.NewIdentityService(gw, tokens, []string{"organizer@example.com"}, zap.NewNop())
	proctor := app.NewProctorService(gw, warnstore.NewMemory(), 3, "open-sesame", events.Nop{}, zap.NewNop())
	attempts := app.NewAttemptService(gw, cache, queue, events.Nop{}, proctor, nil, zap.NewNop())
	board := app.NewLeaderboardService(gw)
	admin := app.NewAdminService(gw, cache, nil, zap.NewNop())
	hub := app.NewHub(board, zap.NewNop())
	t.Cleanup(hub.Close)

	srv := NewServer(identity, attempts, proctor, board, admin, hub, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	err := store.Set(context.Background(), docstore.CollectionRounds, domain.RoundMCQ, docstore.Document{
		"title":     "Quiz",
		"type":      domain.RoundTypeMCQ,
		"password":  "alpha",
		"timeLimit": 30,
		"isActive":  true,
	}, false)
	if err != nil {
		t.Fatalf("seed round: %v", err)
	}
	err = store.Set(context.Background(), docstore.CollectionQuestions, "q1", docstore.Document{
		"order":         1,
		"question":      "2+2?",
		"options":       []string{"3", "4", "5", "6"},
		"correctAnswer": 1,
		"roundId":       domain.RoundMCQ,
	}, false)
	if err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return ts, store
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func register(t *testing.T, ts *httptest.Server, name, email string) sessionResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", credentials{
		Name: name, Email: email, Password: "pw",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var session sessionResponse
	decodeBody(t, resp, &session)
	return session
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRoundFlowOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)
	session := register(t, ts, "Ada", "ada@example.com")

	// wrong password is rejected
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/start", session.Token, map[string]string{"password": "nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong password status = %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/start", session.Token, map[string]string{"password": "alpha"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}
	var snap app.Snapshot
	decodeBody(t, resp, &snap)
	if snap.Phase != app.PhaseActive {
		t.Fatalf("phase = %q, want active", snap.Phase)
	}
	if snap.Round.Password != "" {
		t.Fatal("round password leaked to the client")
	}

	// questions come without the answer key
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/rounds/round1/questions", session.Token, nil)
	var questions []map[string]any
	decodeBody(t, resp, &questions)
	if len(questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(questions))
	}
	if _, leaked := questions[0]["correctAnswer"]; leaked {
		t.Fatal("correctAnswer leaked to the client")
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/answer", session.Token, map[string]any{
		"questionId": "q1", "selected": 1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d, want 200", resp.StatusCode)
	}
	var result app.AnswerResult
	decodeBody(t, resp, &result)
	if !result.Correct || !result.Completed {
		t.Fatalf("answer = %+v, want correct and completed", result)
	}
}

func TestLockedParticipantCannotPlay(t *testing.T) {
	ts, _ := newTestServer(t)
	session := register(t, ts, "Ada", "ada@example.com")

	for i := 0; i < 4; i++ {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/proctor/violation", session.Token, map[string]string{
			"violation": domain.ViolationTabSwitch,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("violation status = %d, want 200", resp.StatusCode)
		}
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/start", session.Token, map[string]string{"password": "alpha"})
	if resp.StatusCode != http.StatusLocked {
		t.Fatalf("locked start status = %d, want 423", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/proctor/unlock", session.Token, map[string]string{"passphrase": "open-sesame"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/start", session.Token, map[string]string{"password": "alpha"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start after unlock status = %d, want 200", resp.StatusCode)
	}
}

func TestAdminSurfaceIsGuarded(t *testing.T) {
	ts, _ := newTestServer(t)
	candidate := register(t, ts, "Ada", "ada@example.com")
	organizer := register(t, ts, "Org", "organizer@example.com")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/users", candidate.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("candidate admin status = %d, want 403", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/users", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous admin status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/admin/users", organizer.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("organizer admin status = %d, want 200", resp.StatusCode)
	}
	var users []domain.Participant
	decodeBody(t, resp, &users)
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Fatal("password hash leaked from admin listing")
		}
	}
}

func TestAdminScoreOverrideShowsOnLeaderboard(t *testing.T) {
	ts, _ := newTestServer(t)
	candidate := register(t, ts, "Ada", "ada@example.com")
	organizer := register(t, ts, "Org", "organizer@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/start", candidate.Token, map[string]string{"password": "alpha"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/rounds/round1/complete", candidate.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d, want 200", resp.StatusCode)
	}

	url := fmt.Sprintf("%s/api/v1/admin/attempts/%s/round1/score", ts.URL, candidate.User.ID)
	resp = doJSON(t, http.MethodPut, url, organizer.Token, map[string]int{"score": 25})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set score status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/leaderboard", candidate.Token, nil)
	var board domain.Leaderboard
	decodeBody(t, resp, &board)
	if len(board.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(board.Rows))
	}
	if board.Rows[0].TotalScore != 25 {
		t.Fatalf("total score = %d, want override 25", board.Rows[0].TotalScore)
	}
}
