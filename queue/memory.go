package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-memory [Queue] for tests. Pop blocks like its Redis
// counterpart so worker loops behave the same against either.
type MemoryQueue struct {
	mu    sync.Mutex
	items [][]byte
	wake  chan struct{}
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{wake: make(chan struct{}, 1)}
}

// Push implements [Queue].
func (q *MemoryQueue) Push(_ context.Context, payload []byte) error {
	q.mu.Lock()
	q.items = append(q.items, payload)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return nil
}

// Pop implements [Queue].
func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()

		if len(q.items) > 0 {
			payload := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()

			return payload, nil
		}

		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrEmpty
		case <-q.wake:
		}
	}
}

// Len implements [Queue].
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items), nil
}

// MemoryDeadLetter is an in-memory [DeadLetter] for tests.
type MemoryDeadLetter struct {
	mu      sync.Mutex
	entries []Entry
	SendErr error
}

// NewMemoryDeadLetter creates an empty in-memory dead-letter sink.
func NewMemoryDeadLetter() *MemoryDeadLetter {
	return &MemoryDeadLetter{}
}

// Send implements [DeadLetter].
func (d *MemoryDeadLetter) Send(_ context.Context, payload []byte, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.SendErr != nil {
		return d.SendErr
	}

	d.entries = append(d.entries, Entry{
		Payload:   rawPayload(payload),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// Entries implements [DeadLetter].
func (d *MemoryDeadLetter) Entries(_ context.Context, limit int) ([]Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Entry, 0, n)

	// Newest first, matching the Redis listing order.
	for i := len(d.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, d.entries[i])
	}

	return out, nil
}

// Pop implements [DeadLetter].
func (d *MemoryDeadLetter) Pop(_ context.Context) (Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.entries) == 0 {
		return Entry{}, ErrEmpty
	}

	entry := d.entries[0]
	d.entries = d.entries[1:]

	return entry, nil
}

// Len implements [DeadLetter].
func (d *MemoryDeadLetter) Len(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries), nil
}
