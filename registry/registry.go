package registry

import (
	"context"
	"errors"
	"time"

	"go.jacobcolvin.com/chrysalis/drift"
	"go.jacobcolvin.com/chrysalis/schema"
)

// Sentinel errors returned by registry implementations.
var (
	// ErrNotFound indicates no record matches the request. Latest returns
	// it when the registry is empty.
	ErrNotFound = errors.New("schema record not found")
	// ErrVersionConflict indicates version allocation lost the race too
	// many times in a row.
	ErrVersionConflict = errors.New("version conflict")
)

// sampleDocsHead caps how many sample documents are kept on a record for
// forensic replay.
const sampleDocsHead = 5

// Record is one registered schema version. Records are append-only: after
// creation only the approval fields may change.
type Record struct {
	Version          int               `json:"version"`
	Schema           *schema.Schema    `json:"schema"`
	Diff             drift.Diff        `json:"diff"`
	CreatedAt        time.Time         `json:"created_at"`
	SourceJobID      string            `json:"source_job_id"`
	SampleDocs       []schema.Document `json:"sample_docs"`
	FieldStats       schema.FieldStats `json:"field_stats"`
	PendingPromotion bool              `json:"pending_promotion,omitempty"`
	PromotedAt       *time.Time        `json:"promoted_at,omitempty"`
}

// NewVersion carries the inputs for registering a schema version. SampleDocs
// beyond the first five are discarded before persisting.
type NewVersion struct {
	Schema      *schema.Schema
	Diff        drift.Diff
	SourceJobID string
	SampleDocs  []schema.Document
	FieldStats  schema.FieldStats
}

// Registry persists ordered, monotonically versioned schema records.
// Implementations must allocate versions atomically: when two writers race,
// at most one record exists per version and neither writer observes a gap.
type Registry interface {
	// Latest returns the record with the greatest version, or [ErrNotFound]
	// when the registry is empty.
	Latest(ctx context.Context) (*Record, error)

	// CreateVersion registers v as the next version (latest+1, or 1 for the
	// first record), stamping CreatedAt with the current UTC time.
	CreateVersion(ctx context.Context, v NewVersion) (*Record, error)

	// Get returns the record for an exact version, or [ErrNotFound].
	Get(ctx context.Context, version int) (*Record, error)

	// List returns up to limit records ordered by descending version.
	// A non-positive limit returns all records.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Approve marks a record as pending promotion and stamps PromotedAt.
	// Returns [ErrNotFound] for unknown versions.
	Approve(ctx context.Context, version int, at time.Time) (*Record, error)
}

func truncateSample(docs []schema.Document) []schema.Document {
	if len(docs) <= sampleDocsHead {
		return docs
	}

	return docs[:sampleDocsHead]
}
