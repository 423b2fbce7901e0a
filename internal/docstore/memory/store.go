package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

// Store is an in-memory implementation of docstore.Store, used in tests and
// when no backend is configured.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
}

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]docstore.Document)}
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *Store) Set(_ context.Context, collection, id string, data docstore.Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(collection, id, data, merge)
	return nil
}

func (s *Store) setLocked(collection, id string, data docstore.Document, merge bool) {
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]docstore.Document)
		s.collections[collection] = coll
	}
	existing, ok := coll[id]
	if !merge || !ok {
		coll[id] = cloneDoc(data)
		return
	}
	for k, v := range data {
		existing[k] = cloneValue(v)
	}
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) QueryByField(_ context.Context, collection, field string, value any) ([]docstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []docstore.Record
	for id, doc := range s.collections[collection] {
		if fmt.Sprint(doc[field]) == fmt.Sprint(value) {
			out = append(out, docstore.Record{ID: id, Data: cloneDoc(doc)})
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *Store) ListAll(_ context.Context, collection string) ([]docstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]docstore.Record, 0, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out = append(out, docstore.Record{ID: id, Data: cloneDoc(doc)})
	}
	sortRecords(out)
	return out, nil
}

func (s *Store) BatchWrite(_ context.Context, writes []docstore.Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		s.setLocked(w.Collection, w.ID, w.Data, w.Merge)
	}
	return nil
}

func sortRecords(records []docstore.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}

func cloneDoc(doc docstore.Document) docstore.Document {
	out := make(docstore.Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case docstore.Document:
		return cloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
