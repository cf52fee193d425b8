// Package store holds job results: a thread-safe in-memory store with TTL
// eviction, and an optional SQLite run history.
//
// Store is keyed by job ID and always holds the latest result per job.
// Entries that are not refreshed within the TTL are hidden from List and
// removed by the Run loop.
//
// History appends one row per computed run (cached results are skipped)
// and supports per-job queries and retention pruning. It uses the pure Go
// modernc.org/sqlite driver, so no CGO is required.
package store
