// Package daemon keeps job results current for rangeshift serve.
//
// A Daemon owns the compute engine and pushes every result into the live
// store, the optional run history and the WebSocket hub. Run processes all
// jobs once at start, again on every rescan tick, and immediately for the
// jobs whose input file was written. Unchanged inputs are answered from the
// engine's cache, so a rescan costs one read and one BLAKE3 digest per job.
//
// SetConfig swaps the job list after a config reload; the file watcher is
// restarted on the new set of inputs and removed jobs are forgotten.
package daemon
