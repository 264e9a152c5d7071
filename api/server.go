package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.jacobcolvin.com/chrysalis/drift"
	"go.jacobcolvin.com/chrysalis/queue"
	"go.jacobcolvin.com/chrysalis/registry"
	"go.jacobcolvin.com/chrysalis/storage"
)

// Server exposes the operational HTTP surface: health, schema inspection,
// pipeline counters, and the out-of-band promotion approval flow.
type Server struct {
	registry registry.Registry
	store    storage.Writer
	dlq      queue.DeadLetter
	token    string

	logger *slog.Logger
	now    func() time.Time
}

// A ServerOption configures a [Server].
type ServerOption func(*Server)

// WithLogger sets the server's logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for approval stamps.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a server. token guards the approval endpoint.
func NewServer(
	reg registry.Registry,
	store storage.Writer,
	dlq queue.DeadLetter,
	token string,
	opts ...ServerOption,
) *Server {
	s := &Server{
		registry: reg,
		store:    store,
		dlq:      dlq,
		token:    token,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /approve", s.handleApprove)
	mux.HandleFunc("GET /schemas/latest", s.handleLatestSchema)
	mux.HandleFunc("GET /schemas", s.handleListSchemas)
	mux.HandleFunc("GET /metrics/raw_docs_count", s.handleDocsCount)
	mux.HandleFunc("GET /metrics/dlq_count", s.handleDLQCount)
	mux.HandleFunc("GET /metrics/schema_changes", s.handleSchemaChanges)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type approveRequest struct {
	SchemaID *int   `json:"schema_id"`
	Token    string `json:"token"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	token := req.Token
	if token == "" {
		token = r.Header.Get("X-Token")
	}

	if token != s.token {
		s.writeError(w, http.StatusUnauthorized, "bad token")

		return
	}

	if req.SchemaID == nil {
		s.writeError(w, http.StatusBadRequest, "schema_id is required")

		return
	}

	rec, err := s.registry.Approve(r.Context(), *req.SchemaID, s.now())
	if errors.Is(err, registry.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown schema version")

		return
	}

	if err != nil {
		s.serverError(w, "approving schema version", err)

		return
	}

	s.logger.Info("approved schema version", slog.Int("version", rec.Version))
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleLatestSchema(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Latest(r.Context())
	if errors.Is(err, registry.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no schema registered")

		return
	}

	if err != nil {
		s.serverError(w, "reading latest schema", err)

		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.List(r.Context(), queryLimit(r))
	if err != nil {
		s.serverError(w, "listing schemas", err)

		return
	}

	if records == nil {
		records = []*registry.Record{}
	}

	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDocsCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Count(r.Context())
	if err != nil {
		s.serverError(w, "counting documents", err)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"raw_docs_count": n})
}

func (s *Server) handleDLQCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.dlq.Len(r.Context())
	if err != nil {
		s.serverError(w, "counting dead letters", err)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"dlq_count": n})
}

// schemaChange is the per-version summary returned by the schema_changes
// metric: the diff that justified the promotion plus its provenance.
type schemaChange struct {
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	SourceJobID string     `json:"source_job_id"`
	Diff        drift.Diff `json:"diff"`
}

func (s *Server) handleSchemaChanges(w http.ResponseWriter, r *http.Request) {
	records, err := s.registry.List(r.Context(), queryLimit(r))
	if err != nil {
		s.serverError(w, "listing schema changes", err)

		return
	}

	changes := make([]schemaChange, 0, len(records))

	for _, rec := range records {
		changes = append(changes, schemaChange{
			Version:     rec.Version,
			CreatedAt:   rec.CreatedAt,
			SourceJobID: rec.SourceJobID,
			Diff:        rec.Diff,
		})
	}

	s.writeJSON(w, http.StatusOK, changes)
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}

	return n
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, slog.Any("error", err))
	s.writeError(w, http.StatusInternalServerError, msg)
}
