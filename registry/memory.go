package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory [Registry] for tests and single-process demos.
// Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{}
}

// Latest implements [Registry].
func (m *Memory) Latest(_ context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) == 0 {
		return nil, ErrNotFound
	}

	rec := *m.records[len(m.records)-1]

	return &rec, nil
}

// CreateVersion implements [Registry]. The registry lock makes version
// allocation atomic, mirroring the storage-level uniqueness constraint of
// the durable implementation.
func (m *Memory) CreateVersion(_ context.Context, v NewVersion) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &Record{
		Version:     len(m.records) + 1,
		Schema:      v.Schema,
		Diff:        v.Diff,
		CreatedAt:   time.Now().UTC(),
		SourceJobID: v.SourceJobID,
		SampleDocs:  truncateSample(v.SampleDocs),
		FieldStats:  v.FieldStats,
	}

	m.records = append(m.records, rec)

	out := *rec

	return &out, nil
}

// Get implements [Registry].
func (m *Memory) Get(_ context.Context, version int) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version < 1 || version > len(m.records) {
		return nil, fmt.Errorf("%w: version %d", ErrNotFound, version)
	}

	rec := *m.records[version-1]

	return &rec, nil
}

// List implements [Registry].
func (m *Memory) List(_ context.Context, limit int) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.records)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*Record, 0, n)

	for i := len(m.records) - 1; i >= 0 && len(out) < n; i-- {
		rec := *m.records[i]
		out = append(out, &rec)
	}

	return out, nil
}

// Approve implements [Registry].
func (m *Memory) Approve(_ context.Context, version int, at time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version < 1 || version > len(m.records) {
		return nil, fmt.Errorf("%w: version %d", ErrNotFound, version)
	}

	rec := m.records[version-1]
	rec.PendingPromotion = true

	t := at.UTC()
	rec.PromotedAt = &t

	out := *rec

	return &out, nil
}
