package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // database/sql driver
)

// Provenance stamp keys added to every accepted document before insert.
const (
	StampSchemaVersion = "_schema_version"
	StampJobID         = "_ingest_job_id"
	StampIngestTS      = "_ingest_ts"
)

// Writer appends accepted documents to the durable document store.
type Writer interface {
	// InsertMany atomically inserts all docs and returns how many were
	// written. Either every document is inserted or none are. An empty
	// batch returns 0 without touching the store.
	InsertMany(ctx context.Context, docs []map[string]any) (int, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}

// Open opens the SQLite database at path, creating it if needed. WAL mode
// and a busy timeout let the worker and the API share one file.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	return db, nil
}

const documentsSchema = `
CREATE TABLE IF NOT EXISTS raw_documents (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	body           TEXT NOT NULL,
	schema_version INTEGER,
	job_id         TEXT,
	ingested_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_raw_documents_job_id ON raw_documents (job_id);
`

// SQLite is a [Writer] backed by a SQLite table. Provenance stamps are
// lifted out of the document body into dedicated columns so operators can
// query by job or schema version without JSON functions.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the documents table on db if needed and returns the
// writer. The caller owns db.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(documentsSchema); err != nil {
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// InsertMany implements [Writer].
func (s *SQLite) InsertMany(ctx context.Context, docs []map[string]any) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_documents (body, schema_version, job_id, ingested_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return 0, fmt.Errorf("encoding document: %w", err)
		}

		_, err = stmt.ExecContext(ctx, string(body),
			stampInt(doc, StampSchemaVersion),
			stampString(doc, StampJobID),
			stampString(doc, StampIngestTS))
		if err != nil {
			return 0, fmt.Errorf("inserting document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing insert transaction: %w", err)
	}

	return len(docs), nil
}

// Count implements [Writer].
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_documents`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}

	return n, nil
}

func stampString(doc map[string]any, key string) any {
	s, ok := doc[key].(string)
	if !ok {
		return nil
	}

	return s
}

func stampInt(doc map[string]any, key string) any {
	switch v := doc[key].(type) {
	case int:
		return v
	case int64:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil
		}

		return n
	case float64:
		return int64(v)
	}

	return nil
}
