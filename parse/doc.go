// Package parse converts local files into document lists for ingestion.
//
// [File] dispatches on extension: JSON and NDJSON, YAML, CSV with a header
// row, HTML tables, and a line-wrapping text fallback for everything else.
// Parsers are best-effort; the pipeline's validator decides what is
// actually acceptable.
package parse
