package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"time"

	"go.jacobcolvin.com/chrysalis/drift"
	"go.jacobcolvin.com/chrysalis/queue"
	"go.jacobcolvin.com/chrysalis/registry"
	"go.jacobcolvin.com/chrysalis/schema"
	"go.jacobcolvin.com/chrysalis/storage"
	"go.jacobcolvin.com/chrysalis/validate"
)

// Failure reason tokens attached to dead-letter entries by the worker.
// Validation tokens come from [validate].
const (
	ReasonInvalidJobPayload = "invalid_job_payload"
	ReasonEmptyDocuments    = "empty_documents"
	ReasonNotAnObject       = "not_an_object"
	ReasonInsertFailed      = "insert_failed"
)

const (
	defaultPopTimeout  = 5 * time.Second
	defaultSampleLimit = 200

	// idleSleep is the courtesy pause after an empty pop; errSleep backs
	// off after a queue read error.
	idleSleep = 100 * time.Millisecond
	errSleep  = time.Second
)

// Worker is the job coordinator: it pops one job at a time, infers a
// candidate schema from a sample, decides promotion, validates every
// document against the governing schema, and routes each document to the
// durable store or the dead-letter sink. Multiple workers may run against
// the same queue; no state is shared across jobs.
type Worker struct {
	queue     queue.Queue
	dlq       queue.DeadLetter
	registry  registry.Registry
	store     storage.Writer
	policy    drift.Policy
	validator *validate.Validator

	logger      *slog.Logger
	popTimeout  time.Duration
	sampleLimit int
	now         func() time.Time
}

// A WorkerOption configures a [Worker].
type WorkerOption func(*Worker)

// WithLogger sets the worker's logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithPopTimeout bounds the blocking queue read. Defaults to 5s.
func WithPopTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.popTimeout = d
	}
}

// WithSampleLimit caps how many leading documents feed schema inference.
// Defaults to 200.
func WithSampleLimit(n int) WorkerOption {
	return func(w *Worker) {
		w.sampleLimit = n
	}
}

// WithClock overrides the time source used for provenance stamps.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

// NewWorker creates a worker over its five collaborators.
func NewWorker(
	q queue.Queue,
	dlq queue.DeadLetter,
	reg registry.Registry,
	store storage.Writer,
	policy drift.Policy,
	validator *validate.Validator,
	opts ...WorkerOption,
) *Worker {
	w := &Worker{
		queue:       q,
		dlq:         dlq,
		registry:    reg,
		store:       store,
		policy:      policy,
		validator:   validator,
		logger:      slog.Default(),
		popTimeout:  defaultPopTimeout,
		sampleLimit: defaultSampleLimit,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run polls the queue until ctx is canceled. A popped job always runs to
// completion; cancellation is observed only between jobs. Queue read errors
// log, sleep, and continue; nothing a job does can abort the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := w.queue.Pop(ctx, w.popTimeout)
		if errors.Is(err, queue.ErrEmpty) {
			sleep(ctx, idleSleep)

			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			w.logger.Error("queue read failed", slog.Any("error", err))
			sleep(ctx, errSleep)

			continue
		}

		w.Process(ctx, payload)
	}
}

// Process handles one popped payload end to end. It never returns an
// error: every failure either dead-letters the affected payload or is
// logged and survived.
func (w *Worker) Process(ctx context.Context, payload []byte) {
	job, err := DecodeJob(payload)
	if err != nil {
		w.deadLetter(ctx, payload, ReasonInvalidJobPayload)

		return
	}

	if len(job.Documents) == 0 {
		w.deadLetter(ctx, payload, ReasonEmptyDocuments)

		return
	}

	logger := w.logger.With(slog.String("job_id", job.ID))

	sample := w.sample(job.Documents)

	latest, err := w.registry.Latest(ctx)

	hasLatest := err == nil
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		// Proceed as if unregistered; the next job retries.
		logger.Error("reading latest schema", slog.Any("error", err))

		latest = nil
		hasLatest = false
	}

	var (
		prevSchema *schema.Schema
		prevStats  schema.FieldStats
	)

	if hasLatest {
		prevSchema = latest.Schema
		prevStats = latest.FieldStats
	}

	var (
		candidate *schema.Schema
		stats     schema.FieldStats
		diff      drift.Diff
		decision  drift.Decision
	)

	// A sample with no object documents carries no structural evidence;
	// inferring from it would diff every registered property as removed and
	// promote an empty schema over the real one. The batch still runs
	// through validation below, where each item dead-letters individually.
	if len(sample) > 0 {
		candidate, stats = schema.Infer(sample)
		diff = drift.Compute(prevSchema, candidate, stats, prevStats)

		decision = w.policy.Decide(drift.Input{
			Diff:       diff,
			Candidate:  candidate,
			Stats:      stats,
			SampleSize: len(sample),
			HasLatest:  hasLatest,
		})
	}

	// Strict deployments validate against the record registered before this
	// job; the first promotion ever has no predecessor, so the fresh record
	// governs its own batch.
	governing := latest
	stampVersion := 0

	if hasLatest {
		stampVersion = latest.Version
	}

	if decision.Promote {
		rec, err := w.registry.CreateVersion(ctx, registry.NewVersion{
			Schema:      candidate,
			Diff:        diff,
			SourceJobID: job.ID,
			SampleDocs:  sample,
			FieldStats:  stats,
		})
		if err != nil {
			// The job proceeds against the last read latest.
			logger.Error("registering schema version", slog.Any("error", err))
		} else {
			stampVersion = rec.Version

			if governing == nil {
				governing = rec
			}

			logger.Info("promoted schema",
				slog.Int("version", rec.Version),
				slog.Any("reasons", decision.Reasons))
		}
	} else {
		logger.Debug("no promotion", slog.Any("reasons", decision.Reasons))
	}

	govSchema, govStats := w.governing(governing, candidate, stats)

	ts := w.now().UTC().Format(time.RFC3339)
	accepted := make([]map[string]any, 0, len(job.Documents))

	for _, item := range job.Documents {
		doc, ok := item.(map[string]any)
		if !ok {
			w.deadLetterValue(ctx, item, ReasonNotAnObject)

			continue
		}

		reason, ok := w.validator.Validate(doc, govSchema, govStats)
		if !ok {
			w.deadLetterValue(ctx, doc, reason)

			continue
		}

		stamped := make(map[string]any, len(doc)+3)
		maps.Copy(stamped, doc)
		stamped[storage.StampSchemaVersion] = stampVersion
		stamped[storage.StampJobID] = job.ID
		stamped[storage.StampIngestTS] = ts

		accepted = append(accepted, stamped)
	}

	n, err := w.store.InsertMany(ctx, accepted)
	if err != nil {
		logger.Error("inserting accepted documents", slog.Any("error", err))

		// The accepted set is lost as a unit; operators may replay from
		// the DLQ.
		for _, doc := range accepted {
			w.deadLetterValue(ctx, doc, ReasonInsertFailed)
		}

		return
	}

	logger.Info("processed job",
		slog.Int("accepted", n),
		slog.Int("rejected", len(job.Documents)-n))
}

// sample returns the leading object documents that feed inference.
func (w *Worker) sample(items []any) []schema.Document {
	limit := min(w.sampleLimit, len(items))
	sample := make([]schema.Document, 0, limit)

	for _, item := range items[:limit] {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}

		sample = append(sample, doc)
	}

	return sample
}

// governing selects the validation schema and stats for the configured
// mode: strict validates against the registered record, lenient against
// the candidate inferred from this job.
func (w *Worker) governing(rec *registry.Record, candidate *schema.Schema, stats schema.FieldStats) (*schema.Schema, schema.FieldStats) {
	if w.validator.Mode() == validate.ModeLenient {
		return candidate, stats
	}

	if rec == nil {
		return nil, nil
	}

	return rec.Schema, rec.FieldStats
}

func (w *Worker) deadLetter(ctx context.Context, payload []byte, reason string) {
	if err := w.dlq.Send(ctx, payload, reason); err != nil {
		// DLQ loss must not abort a job.
		w.logger.Error("dead-letter write failed",
			slog.String("reason", reason), slog.Any("error", err))
	}
}

func (w *Worker) deadLetterValue(ctx context.Context, value any, reason string) {
	payload, err := json.Marshal(value)
	if err != nil {
		w.logger.Error("encoding dead-letter document", slog.Any("error", err))

		return
	}

	w.deadLetter(ctx, payload, reason)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
