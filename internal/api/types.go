package api

import "github.com/obsidianstack/rangeshift/internal/rangemap"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State       string `json:"state"` // unknown, ok, degraded or failed
	JobCount    int    `json:"job_count"`
	OKCount     int    `json:"ok_count"`
	FailedCount int    `json:"failed_count"`
	History     bool   `json:"history"`
}

// JobResponse is one job in GET /api/v1/jobs, GET /api/v1/jobs/{id} and
// the history listing.
type JobResponse struct {
	JobID        string                `json:"job_id"`
	RunID        string                `json:"run_id,omitempty"`
	Path         string                `json:"path,omitempty"`
	Mode         string                `json:"mode"`
	Digest       string                `json:"digest,omitempty"`
	OK           bool                  `json:"ok"`
	Error        string                `json:"error,omitempty"`
	MinimumStart *int64                `json:"minimum_start"` // null when the run failed
	Seeds        int                   `json:"seeds"`
	Intervals    int                   `json:"intervals"`
	TotalLength  int64                 `json:"total_length"`
	DurationMs   float64               `json:"duration_ms"`
	Runs         int                   `json:"runs,omitempty"`
	Cached       bool                  `json:"cached,omitempty"`
	Stages       []rangemap.StageStats `json:"stages"`
	ComputedAt   string                `json:"computed_at,omitempty"` // RFC3339
	LastSeen     string                `json:"last_seen,omitempty"`   // RFC3339
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Jobs        []JobResponse `json:"jobs"`
	GeneratedAt string        `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
