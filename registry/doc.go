// Package registry persists ordered, monotonically versioned schema
// records.
//
// Versions start at 1 and are gapless: each new record takes the latest
// version plus one. Records are append-only; only the out-of-band approval
// flow may set the pending-promotion fields after creation.
//
// Two implementations are provided. [SQLite] is the durable registry: a
// primary key on the version column enforces at-most-one record per
// version, and [SQLite.CreateVersion] retries allocation when concurrent
// workers race for the same next version. [Memory] serves tests and
// single-process demos with the same semantics under a mutex.
package registry
