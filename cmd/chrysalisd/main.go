// Package main provides chrysalisd, the schema-evolution ingest daemon. It
// runs one or more worker loops against the ingest queue alongside the
// operational HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.jacobcolvin.com/chrysalis/api"
	"go.jacobcolvin.com/chrysalis/drift"
	"go.jacobcolvin.com/chrysalis/env"
	"go.jacobcolvin.com/chrysalis/ingest"
	"go.jacobcolvin.com/chrysalis/log"
	"go.jacobcolvin.com/chrysalis/queue"
	"go.jacobcolvin.com/chrysalis/registry"
	"go.jacobcolvin.com/chrysalis/storage"
	"go.jacobcolvin.com/chrysalis/validate"
	"go.jacobcolvin.com/chrysalis/version"
)

type daemonConfig struct {
	log      *log.Config
	drift    *drift.Config
	validate *validate.Config
	ingest   *ingest.Config
	api      *api.Config

	redisAddr string
	dbPath    string
}

func main() {
	cfg := &daemonConfig{
		log:      log.NewConfig(),
		drift:    drift.NewConfig(),
		validate: validate.NewConfig(),
		ingest:   ingest.NewConfig(),
		api:      api.NewConfig(),
	}

	rootCmd := &cobra.Command{
		Use:   "chrysalisd",
		Short: "Run the schema-evolution ingest pipeline",
		Long: `chrysalisd consumes document batches from the ingest queue, infers and
versions their structural schema, validates every document against the
governing schema version, and routes documents to the durable store or the
dead-letter queue. An HTTP API exposes health, schema history, counters,
and the manual promotion-approval flow.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.Flags()
	cfg.log.RegisterFlags(flags)
	cfg.drift.RegisterFlags(flags)
	cfg.validate.RegisterFlags(flags)
	cfg.ingest.RegisterFlags(flags)
	cfg.api.RegisterFlags(flags)
	flags.StringVar(&cfg.redisAddr, "redis-addr",
		env.String("REDIS_ADDR", "localhost:6379"), "redis server address")
	flags.StringVar(&cfg.dbPath, "db-path",
		env.String("DB_PATH", "chrysalis.db"), "sqlite database path")

	for _, register := range []func(*cobra.Command) error{
		cfg.log.RegisterCompletions,
		cfg.drift.RegisterCompletions,
		cfg.validate.RegisterCompletions,
	} {
		if err := register(rootCmd); err != nil {
			fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *daemonConfig) error {
	handler, err := cfg.log.NewHandler(os.Stderr)
	if err != nil {
		return err
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	policy, err := cfg.drift.NewPolicy()
	if err != nil {
		return err
	}

	validator, err := cfg.validate.NewValidator()
	if err != nil {
		return err
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis at %s: %w", cfg.redisAddr, err)
	}

	db, err := storage.Open(cfg.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := registry.NewSQLite(db)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLite(db)
	if err != nil {
		return err
	}

	q := queue.NewRedis(client, cfg.ingest.QueueName)
	dlq := queue.NewRedisDeadLetter(client, cfg.ingest.DLQName)

	logger.Info("starting",
		slog.String("version", version.String()),
		slog.String("policy", policy.Name()),
		slog.String("validation_mode", cfg.validate.Mode),
		slog.Int("workers", cfg.ingest.Workers))

	g, ctx := errgroup.WithContext(ctx)

	for i := range cfg.ingest.Workers {
		worker := ingest.NewWorker(q, dlq, reg, store, policy, validator,
			ingest.WithLogger(logger.With(slog.Int("worker", i))),
			ingest.WithPopTimeout(cfg.ingest.PopTimeout))

		g.Go(func() error {
			err := worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		})
	}

	server := &http.Server{
		Addr: cfg.api.Addr,
		Handler: api.NewServer(reg, store, dlq, cfg.api.PromoteToken,
			api.WithLogger(logger)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("api listening", slog.String("addr", cfg.api.Addr))

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
