// Package compute runs translation jobs and derives their results.
//
// Engine.Process(job, now) reads the job's input file, hashes it with
// BLAKE3, parses it, runs the pipeline with a per-stage trace, and reports
// the minimum start of the output. now is passed explicitly so callers
// (and tests) control the clock.
//
// The Engine keeps per-job state across calls: the digest, mode and
// strictness of the last computation and its result. When none of those
// changed, Process returns a copy of the previous result marked Cached
// instead of recomputing. Failures are reported in Result.Err and never
// carry a MinimumStart.
//
// Every computed (non-cached) result gets a fresh RunID.
//
// Solve is the stateless variant used by the CLI: it computes a result from
// raw input bytes and returns parse failures as errors.
package compute
