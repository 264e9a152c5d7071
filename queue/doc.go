// Package queue defines the job transport and dead-letter interfaces the
// ingest worker depends on, with Redis implementations for deployment and
// in-memory implementations for tests.
//
// Both transports are Redis lists: producers LPUSH and consumers BRPOP, so
// jobs flow FIFO with at-least-once delivery. Dead-letter entries carry the
// offending payload, a machine-readable reason token, and a timestamp.
package queue
