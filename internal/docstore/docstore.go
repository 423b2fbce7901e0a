// Package docstore defines the generic document-store contract the rest of
// the service persists through. Collections hold JSON-shaped documents keyed
// by string id; writes are last-write-wins with optional shallow field merge.
package docstore

import "context"

// Document is a JSON-shaped document body.
type Document = map[string]any

// Record pairs a document with its id for list/query results.
type Record struct {
	ID   string
	Data Document
}

// Write is one element of a batch write.
type Write struct {
	Collection string
	ID         string
	Data       Document
	Merge      bool
}

// Store is the persistence gateway contract. Implementations: memory (tests
// and demos), mongo (primary), postgres (JSONB documents table).
//
// Set with merge=true overwrites only the top-level fields present in data;
// merge=false replaces the whole document. Get returns domain.ErrNotFound
// for missing documents. No transactions; a racing merge to overlapping
// fields is last-write-wins.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, data Document, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	QueryByField(ctx context.Context, collection, field string, value any) ([]Record, error)
	ListAll(ctx context.Context, collection string) ([]Record, error)
	BatchWrite(ctx context.Context, writes []Write) error
}

// Collection names in play.
const (
	CollectionUsers      = "users"
	CollectionRounds     = "rounds"
	CollectionQuestions  = "questions"
	CollectionAttempts   = "attempts"
	CollectionAntiCheat  = "antiCheat"
	CollectionChallenges = "designChallenges"
	CollectionTopics     = "topics"
)
