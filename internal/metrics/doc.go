// Package metrics exposes job results in the Prometheus text format.
//
// Families(entries) builds metric families from live store entries; the
// values are snapshots, so every family is a gauge except runs_total:
//
//	rangeshift_minimum_start{job}                 successful jobs only
//	rangeshift_input_intervals{job}
//	rangeshift_output_intervals{job}
//	rangeshift_run_duration_seconds{job}
//	rangeshift_last_computed_timestamp_seconds{job}
//	rangeshift_job_failed{job}                    1 when the last run failed
//	rangeshift_runs_total{job}                    counter
//	rangeshift_stage_output_intervals{job,stage}
//
// Handler serves the families at /metrics, negotiating the exposition
// format from the Accept header.
package metrics
