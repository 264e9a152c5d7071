package ingest

import (
	"time"

	"github.com/spf13/pflag"

	"go.jacobcolvin.com/chrysalis/env"
)

// Default queue identifiers.
const (
	DefaultQueueName = "chrysalis:ingest:queue"
	DefaultDLQName   = "chrysalis:dlq"
)

// Flags holds CLI flag names for worker configuration, allowing callers to
// customize flag names while keeping sensible defaults.
type Flags struct {
	QueueName  string
	DLQName    string
	PopTimeout string
	Workers    string
}

// Config holds CLI flag values for worker configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Flag defaults come from the QUEUE_NAME, DLQ_NAME,
// and BLPOP_TIMEOUT environment variables.
type Config struct {
	Flags      Flags
	QueueName  string
	DLQName    string
	PopTimeout time.Duration
	Workers    int
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		QueueName:  "queue-name",
		DLQName:    "dlq-name",
		PopTimeout: "pop-timeout",
		Workers:    "workers",
	}

	return &Config{Flags: f}
}

// RegisterFlags adds worker flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.QueueName, c.Flags.QueueName,
		env.String("QUEUE_NAME", DefaultQueueName),
		"ingest queue identifier")
	flags.StringVar(&c.DLQName, c.Flags.DLQName,
		env.String("DLQ_NAME", DefaultDLQName),
		"dead-letter queue identifier")
	flags.DurationVar(&c.PopTimeout, c.Flags.PopTimeout,
		env.Seconds("BLPOP_TIMEOUT", defaultPopTimeout),
		"how long a blocking queue read waits before yielding")
	flags.IntVar(&c.Workers, c.Flags.Workers, 1,
		"number of concurrent worker loops")
}
