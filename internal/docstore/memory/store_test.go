package memory

import (
	"context"
	"errors"
	"testing"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

func TestSetMergeKeepsUnrelatedFields(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Set(ctx, "attempts", "a1", docstore.Document{
		"startTime": int64(1000),
		"completed": false,
	}, false)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	err = store.Set(ctx, "attempts", "a1", docstore.Document{"completed": true}, true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	doc, err := store.Get(ctx, "attempts", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["startTime"] != int64(1000) || doc["completed"] != true {
		t.Fatalf("merged doc = %v, want startTime kept and completed flipped", doc)
	}
}

func TestSetWithoutMergeReplaces(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Set(ctx, "c", "id", docstore.Document{"a": 1, "b": 2}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "c", "id", docstore.Document{"a": 9}, false); err != nil {
		t.Fatalf("replace: %v", err)
	}
	doc, err := store.Get(ctx, "c", "id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, stale := doc["b"]; stale {
		t.Fatalf("replace kept old field: %v", doc)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Set(ctx, "c", "id", docstore.Document{"n": 1}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	doc, _ := store.Get(ctx, "c", "id")
	doc["n"] = 99

	again, _ := store.Get(ctx, "c", "id")
	if again["n"] != 1 {
		t.Fatal("mutating a returned document leaked into the store")
	}
}

func TestQueryByFieldAndDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, id := range []string{"q1", "q2"} {
		if err := store.Set(ctx, "questions", id, docstore.Document{"roundId": "round1"}, false); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := store.Set(ctx, "questions", "q3", docstore.Document{"roundId": "round2"}, false); err != nil {
		t.Fatalf("set: %v", err)
	}

	records, err := store.QueryByField(ctx, "questions", "roundId", "round1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 2 || records[0].ID != "q1" || records[1].ID != "q2" {
		t.Fatalf("query = %+v, want q1 and q2 in order", records)
	}

	if err := store.Delete(ctx, "questions", "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "questions", "q1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}
}

func TestBatchWriteAppliesAll(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	writes := []docstore.Write{
		{Collection: "rounds", ID: "round1", Data: docstore.Document{"isActive": true}},
		{Collection: "rounds", ID: "round2", Data: docstore.Document{"isActive": false}},
		{Collection: "topics", ID: "t1", Data: docstore.Document{"title": "Edge"}},
	}
	if err := store.BatchWrite(ctx, writes); err != nil {
		t.Fatalf("batch write: %v", err)
	}

	rounds, err := store.ListAll(ctx, "rounds")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("rounds = %d, want 2", len(rounds))
	}
	if _, err := store.Get(ctx, "topics", "t1"); err != nil {
		t.Fatalf("topic missing after batch: %v", err)
	}
}
