package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/obsidianstack/rangeshift/internal/compute"
	"github.com/obsidianstack/rangeshift/internal/rangemap"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL,
	path          TEXT NOT NULL,
	mode          TEXT NOT NULL,
	digest        TEXT NOT NULL,
	computed_at   INTEGER NOT NULL,
	duration_ns   INTEGER NOT NULL,
	minimum_start INTEGER,
	seeds         INTEGER NOT NULL,
	intervals     INTEGER NOT NULL,
	total_length  INTEGER NOT NULL,
	stages        TEXT NOT NULL,
	error         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_job_time ON runs (job_id, computed_at DESC);
`

// ErrHistoryClosed is returned by History methods after Close.
var ErrHistoryClosed = errors.New("store: history closed")

// History persists computed runs in SQLite. It is safe for concurrent use;
// Close waits for queries in flight.
type History struct {
	mu sync.RWMutex
	db *sql.DB
}

// OpenHistory opens (creating if needed) the SQLite database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open history %s: %w", path, err)
	}
	// database/sql pools connections; SQLite allows one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close releases the database.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return ErrHistoryClosed
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// Record appends res. Cached results are ignored; recording the same
// RunID twice is a no-op.
func (h *History) Record(ctx context.Context, res *compute.Result) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.db == nil {
		return ErrHistoryClosed
	}
	if res.Cached || res.RunID == "" {
		return nil
	}

	stages, err := json.Marshal(res.Stages)
	if err != nil {
		return fmt.Errorf("store: encode stages: %w", err)
	}
	var minimum sql.NullInt64
	if res.OK() {
		minimum = sql.NullInt64{Int64: res.MinimumStart, Valid: true}
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO runs (run_id, job_id, path, mode, digest, computed_at,
			duration_ns, minimum_start, seeds, intervals, total_length, stages, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.JobID, res.Path, res.Mode, res.Digest, res.ComputedAt.UnixNano(),
		int64(res.Duration), minimum, res.Seeds, res.Intervals, res.TotalLength,
		string(stages), res.Err,
	)
	if err != nil {
		return fmt.Errorf("store: record run %s: %w", res.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs of jobID, newest first.
func (h *History) Recent(ctx context.Context, jobID string, limit int) ([]*compute.Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.db == nil {
		return nil, ErrHistoryClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT run_id, job_id, path, mode, digest, computed_at, duration_ns,
			minimum_start, seeds, intervals, total_length, stages, error
		FROM runs WHERE job_id = ?
		ORDER BY computed_at DESC LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var out []*compute.Result
	for rows.Next() {
		var (
			r          compute.Result
			computedAt int64
			duration   int64
			minimum    sql.NullInt64
			stages     string
		)
		if err := rows.Scan(&r.RunID, &r.JobID, &r.Path, &r.Mode, &r.Digest, &computedAt,
			&duration, &minimum, &r.Seeds, &r.Intervals, &r.TotalLength, &stages, &r.Err); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		r.ComputedAt = time.Unix(0, computedAt).UTC()
		r.Duration = time.Duration(duration)
		r.MinimumStart = minimum.Int64
		var st []rangemap.StageStats
		if err := json.Unmarshal([]byte(stages), &st); err != nil {
			return nil, fmt.Errorf("store: decode stages for run %s: %w", r.RunID, err)
		}
		r.Stages = st
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read history: %w", err)
	}
	return out, nil
}

// Prune deletes runs computed before cutoff and returns how many were removed.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.db == nil {
		return 0, ErrHistoryClosed
	}
	res, err := h.db.ExecContext(ctx, `DELETE FROM runs WHERE computed_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("store: prune history: %w", err)
	}
	return res.RowsAffected()
}
