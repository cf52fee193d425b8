// Package rangemap translates collections of integer intervals through an
// ordered sequence of stages.
//
// Types, leaves first:
//   - Interval: half-open [start, start+length), length ≥ 1, immutable
//   - Rule: maps [source, source+length) onto [dest, dest+length)
//   - Stage: rules applied as one translation table; uncovered values map
//     to themselves
//   - Pipeline: the ordered stages
//
// SplitInterval(i, r) is the core operation. It breaks one interval against one
// rule into at most three fragments: an unconverted left remainder, the
// converted intersection, and an unconverted right remainder. Fragments
// always partition the input exactly.
//
// Stage.Apply folds every rule over a worklist of unconverted intervals.
// A fragment converted by one rule is moved to a done list and is never
// seen by a later rule of the same stage, so no value is shifted twice.
// Whatever is left unconverted after the last rule passes through as-is.
//
// Run(initial, stages) threads the complete output of stage k into stage
// k+1. MinimumStart reports the smallest start of the result.
//
// Precondition: rules within one stage must have pairwise disjoint source
// ranges. Apply does not check this; behaviour under overlap is undefined.
// Stage.Validate is an opt-in check for callers that want one.
//
// Output intervals are never merged. Adjacent or duplicate intervals in the
// result are expected.
//
// The package is pure: no I/O, no logging, no shared state. All arithmetic
// is int64 and every constructor rejects ranges whose end would overflow.
package rangemap
