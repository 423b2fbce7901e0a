package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

// Store implements docstore.Store on a single JSONB documents table. Merge
// writes rely on the jsonb || operator, which overwrites top-level fields
// only, matching the contract's shallow merge.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeDoc(raw)
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Document, merge bool) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
	          ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
	if merge {
		query = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		         ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data`
	}
	if _, err := s.pool.Exec(ctx, query, collection, id, raw); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]docstore.Record, error) {
	filter, err := json.Marshal(docstore.Document{field: value})
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 AND data @> $2::jsonb ORDER BY id`,
		collection, filter)
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", collection, field, err)
	}
	return collectRecords(rows)
}

func (s *Store) ListAll(ctx context.Context, collection string) ([]docstore.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return collectRecords(rows)
}

func (s *Store) BatchWrite(ctx context.Context, writes []docstore.Write) error {
	batch := &pgx.Batch{}
	for _, w := range writes {
		raw, err := json.Marshal(w.Data)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", w.Collection, w.ID, err)
		}
		query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		          ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
		if w.Merge {
			query = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
			         ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data`
		}
		batch.Queue(query, w.Collection, w.ID, raw)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range writes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch write: %w", err)
		}
	}
	return nil
}

func collectRecords(rows pgx.Rows) ([]docstore.Record, error) {
	defer rows.Close()
	var records []docstore.Record
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, docstore.Record{ID: id, Data: doc})
	}
	return records, rows.Err()
}

func decodeDoc(raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
