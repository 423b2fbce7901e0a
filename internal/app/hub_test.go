package app

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/docstore/memory"
	"rounds-service/internal/domain"
	"rounds-service/internal/gateway"
)

func TestHubDeliversBoardsToSubscribers(t *testing.T) {
	store := memory.NewStore()
	gw := gateway.New(store)
	seedUser(t, store, "u1", "ada", 1, domain.RoleCandidate)

	hub := NewHub(NewLeaderboardService(gw), zap.NewNop())
	defer hub.Close()

	updates, cancel := hub.Subscribe()
	defer cancel()

	hub.Notify()
	select {
	case board := <-updates:
		if len(board.Rows) != 1 || board.Rows[0].ParticipantID != "u1" {
			t.Fatalf("board = %+v, want ada's row", board.Rows)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no board delivered after notify")
	}

	// a late subscriber gets the latest board immediately
	late, cancelLate := hub.Subscribe()
	defer cancelLate()
	select {
	case board := <-late:
		if len(board.Rows) != 1 {
			t.Fatalf("late board = %+v", board.Rows)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("late subscriber got nothing")
	}
}

func TestHubCoalescesBursts(t *testing.T) {
	store := memory.NewStore()
	gw := gateway.New(store)
	seedUser(t, store, "u1", "ada", 1, domain.RoleCandidate)

	hub := NewHub(NewLeaderboardService(gw), zap.NewNop())
	defer hub.Close()

	updates, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < 50; i++ {
		hub.Notify()
	}

	// the subscriber channel holds at most the freshest board
	deadline := time.After(2 * time.Second)
	select {
	case <-updates:
	case <-deadline:
		t.Fatal("no board delivered")
	}

	// drain whatever else arrived; it must still be a valid board
	for {
		select {
		case board := <-updates:
			if board.UpdatedAt == 0 {
				t.Fatal("stale zero board delivered")
			}
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}
