// Package warnstore holds the live proctoring warning counters. Counts are
// mirrored to the document store for durability; this store provides atomic
// increments for the hot path.
package warnstore

import (
	"context"
	"sync"
)

// Store tracks per-participant warning counts.
type Store interface {
	// Get returns the current count and whether a count is present.
	Get(ctx context.Context, participantID string) (int, bool, error)
	// Set overwrites the count, seeding it from the durable log.
	Set(ctx context.Context, participantID string, count int) error
	// Incr atomically increments the count and returns the new value.
	Incr(ctx context.Context, participantID string) (int, error)
	// Reset clears the count back to zero.
	Reset(ctx context.Context, participantID string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int)}
}

func (m *Memory) Get(_ context.Context, participantID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.counts[participantID]
	return n, ok, nil
}

func (m *Memory) Set(_ context.Context, participantID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[participantID] = count
	return nil
}

func (m *Memory) Incr(_ context.Context, participantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[participantID]++
	return m.counts[participantID], nil
}

func (m *Memory) Reset(_ context.Context, participantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[participantID] = 0
	return nil
}
