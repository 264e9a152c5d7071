// Package main provides chrysalis, the operator CLI for the ingest
// pipeline: submitting local files as jobs, inspecting and draining the
// dead-letter queue, and reading the schema registry.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"go.jacobcolvin.com/chrysalis/env"
	"go.jacobcolvin.com/chrysalis/ingest"
	"go.jacobcolvin.com/chrysalis/parse"
	"go.jacobcolvin.com/chrysalis/queue"
	"go.jacobcolvin.com/chrysalis/registry"
	"go.jacobcolvin.com/chrysalis/schema"
	"go.jacobcolvin.com/chrysalis/storage"
	"go.jacobcolvin.com/chrysalis/version"
)

type cliConfig struct {
	redisAddr string
	dbPath    string
	queueName string
	dlqName   string
}

func main() {
	cfg := &cliConfig{}

	rootCmd := &cobra.Command{
		Use:           "chrysalis",
		Short:         "Operate the schema-evolution ingest pipeline",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.redisAddr, "redis-addr",
		env.String("REDIS_ADDR", "localhost:6379"), "redis server address")
	flags.StringVar(&cfg.dbPath, "db-path",
		env.String("DB_PATH", "chrysalis.db"), "sqlite database path")
	flags.StringVar(&cfg.queueName, "queue-name",
		env.String("QUEUE_NAME", ingest.DefaultQueueName), "ingest queue identifier")
	flags.StringVar(&cfg.dlqName, "dlq-name",
		env.String("DLQ_NAME", ingest.DefaultDLQName), "dead-letter queue identifier")

	rootCmd.AddCommand(
		newIngestCmd(cfg),
		newDLQCmd(cfg),
		newSchemaCmd(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func openRedis(ctx context.Context, cfg *cliConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.redisAddr, err)
	}

	return client, nil
}

func openRegistry(cfg *cliConfig) (*registry.SQLite, func(), error) {
	db, err := storage.Open(cfg.dbPath)
	if err != nil {
		return nil, nil, err
	}

	reg, err := registry.NewSQLite(db)
	if err != nil {
		_ = db.Close()

		return nil, nil, err
	}

	return reg, func() { _ = db.Close() }, nil
}

func newIngestCmd(cfg *cliConfig) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest <file> [file ...]",
		Short: "Submit local files as ingest jobs, one job per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			q := queue.NewRedis(client, cfg.queueName)

			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return fmt.Errorf("reading %s: %w", name, err)
				}

				docs, err := parse.File(name, data)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", name, err)
				}

				jobSource := source
				if jobSource == "" {
					jobSource = name
				}

				payload, err := json.Marshal(map[string]any{
					"job_id":      uuid.NewString(),
					"source":      jobSource,
					"received_at": time.Now().UTC().Format(time.RFC3339),
					"documents":   docs,
				})
				if err != nil {
					return fmt.Errorf("encoding job for %s: %w", name, err)
				}

				if err := q.Push(cmd.Context(), payload); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "queued %s: %d documents\n",
					name, len(docs))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "",
		"job source label (defaults to the file name)")

	return cmd
}

func newDLQCmd(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and drain the dead-letter queue",
	}

	var limit int

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print dead-letter entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			dlq := queue.NewRedisDeadLetter(client, cfg.dlqName)

			entries, err := dlq.Entries(cmd.Context(), limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())

			for _, entry := range entries {
				if err := enc.Encode(entry); err != nil {
					return fmt.Errorf("encoding entry: %w", err)
				}
			}

			return nil
		},
	}
	printCmd.Flags().IntVar(&limit, "limit", 0, "max entries to print (0 = all)")

	var maxEntries int

	requeueCmd := &cobra.Command{
		Use:   "requeue",
		Short: "Move dead-letter payloads back onto the ingest queue, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			q := queue.NewRedis(client, cfg.queueName)
			dlq := queue.NewRedisDeadLetter(client, cfg.dlqName)

			moved := 0

			for maxEntries <= 0 || moved < maxEntries {
				entry, err := dlq.Pop(cmd.Context())
				if errors.Is(err, queue.ErrEmpty) {
					break
				}

				if err != nil {
					return err
				}

				if err := q.Push(cmd.Context(), entryPayload(entry)); err != nil {
					return err
				}

				moved++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d entries\n", moved)

			return nil
		},
	}
	requeueCmd.Flags().IntVar(&maxEntries, "max", 0, "max entries to requeue (0 = all)")

	cmd.AddCommand(printCmd, requeueCmd)

	return cmd
}

// entryPayload restores the original queued bytes: payloads that were not
// valid JSON were wrapped as JSON strings on the way in.
func entryPayload(entry queue.Entry) []byte {
	var s string

	if err := json.Unmarshal(entry.Payload, &s); err == nil {
		return []byte(s)
	}

	return entry.Payload
}

func newSchemaCmd(cfg *cliConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Read the schema registry",
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the latest registered schema record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, cleanup, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := reg.Latest(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd, rec)
		},
	}

	var limit int

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print registered schema records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, cleanup, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := reg.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return printJSON(cmd, records)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "max records to print (0 = all)")

	var (
		schemaVersion int
		title         string
	)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a registered schema as JSON Schema (Draft 7)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, cleanup, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var rec *registry.Record

			if schemaVersion > 0 {
				rec, err = reg.Get(cmd.Context(), schemaVersion)
			} else {
				rec, err = reg.Latest(cmd.Context())
			}

			if err != nil {
				return err
			}

			exported := schema.Export(rec.Schema,
				schema.WithTitle(title),
				schema.WithDescription(fmt.Sprintf(
					"Inferred schema version %d", rec.Version)))

			return printJSON(cmd, exported)
		},
	}
	exportCmd.Flags().IntVar(&schemaVersion, "schema-version", 0,
		"version to export (0 = latest)")
	exportCmd.Flags().StringVar(&title, "title", "chrysalis documents",
		"schema title")

	cmd.AddCommand(latestCmd, listCmd, exportCmd)

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	out = append(out, '\n')

	_, err = cmd.OutOrStdout().Write(out)
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}
