package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.jacobcolvin.com/chrysalis/schema"
)

// createRetries bounds the compare-retry loop for version allocation. Each
// retry re-reads the maximum registered version, so losing the race more
// than a few times in a row means something is wrong.
const createRetries = 5

const registrySchema = `
CREATE TABLE IF NOT EXISTS schema_registry (
	version           INTEGER PRIMARY KEY,
	schema            TEXT NOT NULL,
	diff              TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	source_job_id     TEXT NOT NULL,
	sample_docs       TEXT NOT NULL,
	field_stats       TEXT NOT NULL,
	pending_promotion INTEGER NOT NULL DEFAULT 0,
	promoted_at       TEXT
);
CREATE INDEX IF NOT EXISTS idx_schema_registry_version_desc
	ON schema_registry (version DESC);
`

// SQLite is a [Registry] backed by a SQLite database. Version uniqueness is
// enforced by the primary key on version; [SQLite.CreateVersion] resolves
// allocation races with a compare-retry loop, so concurrent workers never
// register duplicate or gapped versions.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the registry table on db if needed and returns the
// registry. The caller owns db.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(registrySchema); err != nil {
		return nil, fmt.Errorf("creating registry table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Latest implements [Registry].
func (r *SQLite) Latest(ctx context.Context) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT version, schema, diff, created_at, source_job_id,
		       sample_docs, field_stats, pending_promotion, promoted_at
		FROM schema_registry
		ORDER BY version DESC
		LIMIT 1`)

	return scanRecord(row)
}

// Get implements [Registry].
func (r *SQLite) Get(ctx context.Context, version int) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT version, schema, diff, created_at, source_job_id,
		       sample_docs, field_stats, pending_promotion, promoted_at
		FROM schema_registry
		WHERE version = ?`, version)

	return scanRecord(row)
}

// List implements [Registry].
func (r *SQLite) List(ctx context.Context, limit int) ([]*Record, error) {
	q := `
		SELECT version, schema, diff, created_at, source_job_id,
		       sample_docs, field_stats, pending_promotion, promoted_at
		FROM schema_registry
		ORDER BY version DESC`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, q)
	}

	if err != nil {
		return nil, fmt.Errorf("listing schema records: %w", err)
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing schema records: %w", err)
	}

	return records, nil
}

// CreateVersion implements [Registry].
func (r *SQLite) CreateVersion(ctx context.Context, v NewVersion) (*Record, error) {
	rec := &Record{
		Schema:      v.Schema,
		Diff:        v.Diff,
		SourceJobID: v.SourceJobID,
		SampleDocs:  truncateSample(v.SampleDocs),
		FieldStats:  v.FieldStats,
	}

	schemaJSON, err := json.Marshal(rec.Schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}

	diffJSON, err := json.Marshal(rec.Diff)
	if err != nil {
		return nil, fmt.Errorf("encoding diff: %w", err)
	}

	sampleJSON, err := json.Marshal(rec.SampleDocs)
	if err != nil {
		return nil, fmt.Errorf("encoding sample docs: %w", err)
	}

	statsJSON, err := json.Marshal(rec.FieldStats)
	if err != nil {
		return nil, fmt.Errorf("encoding field stats: %w", err)
	}

	for range createRetries {
		var maxVersion sql.NullInt64

		err := r.db.QueryRowContext(ctx,
			`SELECT MAX(version) FROM schema_registry`).Scan(&maxVersion)
		if err != nil {
			return nil, fmt.Errorf("reading latest version: %w", err)
		}

		rec.Version = int(maxVersion.Int64) + 1
		rec.CreatedAt = time.Now().UTC()

		_, err = r.db.ExecContext(ctx, `
			INSERT INTO schema_registry
				(version, schema, diff, created_at, source_job_id,
				 sample_docs, field_stats, pending_promotion)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
			rec.Version, string(schemaJSON), string(diffJSON),
			rec.CreatedAt.Format(time.RFC3339Nano), rec.SourceJobID,
			string(sampleJSON), string(statsJSON))
		if err == nil {
			return rec, nil
		}

		if !isConstraintViolation(err) {
			return nil, fmt.Errorf("inserting schema record: %w", err)
		}
		// Another worker claimed this version; re-read and try the next.
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrVersionConflict, createRetries)
}

// Approve implements [Registry].
func (r *SQLite) Approve(ctx context.Context, version int, at time.Time) (*Record, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schema_registry
		SET pending_promotion = 1, promoted_at = ?
		WHERE version = ?`,
		at.UTC().Format(time.RFC3339Nano), version)
	if err != nil {
		return nil, fmt.Errorf("approving version %d: %w", version, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("approving version %d: %w", version, err)
	}

	if n == 0 {
		return nil, fmt.Errorf("%w: version %d", ErrNotFound, version)
	}

	return r.Get(ctx, version)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		schemaJSON string
		diffJSON   string
		createdAt  string
		sampleJSON string
		statsJSON  string
		pending    int
		promotedAt sql.NullString
	)

	err := row.Scan(&rec.Version, &schemaJSON, &diffJSON, &createdAt,
		&rec.SourceJobID, &sampleJSON, &statsJSON, &pending, &promotedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scanning schema record: %w", err)
	}

	rec.Schema = &schema.Schema{}
	if err := json.Unmarshal([]byte(schemaJSON), rec.Schema); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}

	if err := json.Unmarshal([]byte(diffJSON), &rec.Diff); err != nil {
		return nil, fmt.Errorf("decoding diff: %w", err)
	}

	if err := json.Unmarshal([]byte(sampleJSON), &rec.SampleDocs); err != nil {
		return nil, fmt.Errorf("decoding sample docs: %w", err)
	}

	if err := json.Unmarshal([]byte(statsJSON), &rec.FieldStats); err != nil {
		return nil, fmt.Errorf("decoding field stats: %w", err)
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("decoding created_at: %w", err)
	}

	rec.PendingPromotion = pending != 0

	if promotedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, promotedAt.String)
		if err != nil {
			return nil, fmt.Errorf("decoding promoted_at: %w", err)
		}

		rec.PromotedAt = &t
	}

	return &rec, nil
}

func isConstraintViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "constraint")
}
