package storage

import (
	"context"
	"sync"
)

// Memory is an in-memory [Writer] for tests. Setting InsertErr makes every
// subsequent InsertMany fail without writing, mimicking a store outage.
type Memory struct {
	mu        sync.Mutex
	docs      []map[string]any
	InsertErr error
}

// NewMemory creates an empty in-memory writer.
func NewMemory() *Memory {
	return &Memory{}
}

// InsertMany implements [Writer].
func (m *Memory) InsertMany(_ context.Context, docs []map[string]any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return 0, m.InsertErr
	}

	if len(docs) == 0 {
		return 0, nil
	}

	m.docs = append(m.docs, docs...)

	return len(docs), nil
}

// Count implements [Writer].
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.docs), nil
}

// Docs returns a copy of all inserted documents in insertion order.
func (m *Memory) Docs() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]any, len(m.docs))
	copy(out, m.docs)

	return out
}
