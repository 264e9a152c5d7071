package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrEmpty indicates a pop found nothing before its timeout elapsed.
var ErrEmpty = errors.New("queue empty")

// Queue is the job transport between producers and the ingest worker.
// Payloads are opaque bytes; the worker decodes them.
type Queue interface {
	// Push enqueues one payload.
	Push(ctx context.Context, payload []byte) error

	// Pop blocks up to timeout for a payload, returning [ErrEmpty] when
	// none arrives in time. Delivery is at-least-once: a popped payload
	// is gone from the queue even if processing later fails.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Len returns the number of queued payloads.
	Len(ctx context.Context) (int, error)
}

// Entry is one dead-letter record. Payload holds the offending input: the
// original JSON when it was valid, otherwise the raw bytes wrapped as a
// JSON string.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	Reason    string          `json:"reason"`
	Timestamp time.Time       `json:"timestamp"`
}

// DeadLetter collects rejected jobs and documents together with the reason
// token that deflected them.
type DeadLetter interface {
	// Send appends an entry. The reason token must be non-empty.
	Send(ctx context.Context, payload []byte, reason string) error

	// Entries returns up to limit entries, newest first. A non-positive
	// limit returns all entries.
	Entries(ctx context.Context, limit int) ([]Entry, error)

	// Pop removes and returns the oldest entry, or [ErrEmpty].
	Pop(ctx context.Context) (Entry, error)

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
}

// rawPayload normalizes arbitrary bytes into a JSON value.
func rawPayload(payload []byte) json.RawMessage {
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}

	quoted, err := json.Marshal(string(payload))
	if err != nil {
		// Strings always marshal; keep the compiler and the reader honest.
		return json.RawMessage(`""`)
	}

	return json.RawMessage(quoted)
}
