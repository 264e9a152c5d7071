// Package storage provides the durable document store and the shared
// SQLite database handle.
//
// [Open] returns a database configured for concurrent access by the worker
// and the API server. [Writer] is the narrow append interface the ingest
// coordinator depends on; [SQLite] is the durable implementation and
// [Memory] the in-memory test double.
package storage
