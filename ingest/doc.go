// Package ingest runs the worker loop that turns queued document batches
// into schema versions, stored rows, and dead-letter entries.
//
// A [Worker] coordinates the pipeline for one job at a time: decode, infer
// a candidate schema over a leading sample, diff against the latest
// registered schema, decide promotion, validate every document against the
// governing schema, and insert what passes. Delivery is at-least-once and
// nothing a job does can abort the loop.
package ingest
