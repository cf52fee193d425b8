package compute

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/obsidianstack/rangeshift/internal/almanac"
	"github.com/obsidianstack/rangeshift/internal/config"
	"github.com/obsidianstack/rangeshift/internal/rangemap"
)

// Result is the derived outcome of one job run, ready for the store, the
// history table, the API and the metrics exporter.
type Result struct {
	JobID      string        `json:"job_id"`
	RunID      string        `json:"run_id"`
	Path       string        `json:"path"`
	Mode       string        `json:"mode"`
	Digest     string        `json:"digest,omitempty"` // BLAKE3 of the (decompressed) input
	ComputedAt time.Time     `json:"computed_at"`
	Duration   time.Duration `json:"duration_ns"`

	MinimumStart int64                 `json:"minimum_start"`
	Seeds        int                   `json:"seeds"`     // initial intervals
	Intervals    int                   `json:"intervals"` // output intervals
	TotalLength  int64                 `json:"total_length"`
	Stages       []rangemap.StageStats `json:"stages,omitempty"`

	Runs   int    `json:"runs"` // Process calls for this job, cached or not
	Cached bool   `json:"cached"`
	Err    string `json:"error,omitempty"`
}

// OK reports whether the run produced a minimum.
func (r *Result) OK() bool { return r.Err == "" }

// Engine runs jobs and remembers the last result per job.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	states map[string]*jobState
	strict bool

	// read loads an input file; replaced in tests.
	read func(path string) ([]byte, error)
}

// jobState is what the Engine remembers about one job between calls.
type jobState struct {
	key  cacheKey
	last *Result
	runs int
}

type cacheKey struct {
	digest string
	mode   almanac.Mode
	strict bool
}

// NewEngine returns a ready-to-use Engine. When strict is set, inputs with
// overlapping rules in a map are rejected.
func NewEngine(strict bool) *Engine {
	return &Engine{
		states: make(map[string]*jobState),
		strict: strict,
		read:   almanac.ReadFile,
	}
}

// SetStrict changes overlap checking for subsequent runs.
func (e *Engine) SetStrict(strict bool) {
	e.mu.Lock()
	e.strict = strict
	e.mu.Unlock()
}

// Forget drops the remembered state for jobID.
func (e *Engine) Forget(jobID string) {
	e.mu.Lock()
	delete(e.states, jobID)
	e.mu.Unlock()
}

// Process runs job and returns its result. It never returns nil.
func (e *Engine) Process(job config.Job, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(job.ID)
	st.runs++

	out := &Result{
		JobID:      job.ID,
		Path:       job.Path,
		ComputedAt: now,
		Runs:       st.runs,
	}

	mode, err := almanac.ParseMode(job.Mode)
	if err != nil {
		return e.fail(out, err)
	}
	out.Mode = mode.String()

	data, err := e.read(job.Path)
	if err != nil {
		// Not cached: the file may appear later.
		st.key = cacheKey{}
		st.last = nil
		return e.fail(out, err)
	}

	sum := blake3.Sum256(data)
	key := cacheKey{digest: hex.EncodeToString(sum[:]), mode: mode, strict: e.strict}
	out.Digest = key.digest

	if st.last != nil && st.key == key {
		cached := *st.last
		cached.Stages = append([]rangemap.StageStats(nil), st.last.Stages...)
		cached.Path = job.Path
		cached.Runs = st.runs
		cached.Cached = true
		slog.Debug("compute: input unchanged, reusing result", "job", job.ID, "run_id", cached.RunID)
		return &cached
	}

	out.RunID = uuid.NewString()
	started := time.Now()
	err = run(out, data, mode, key.strict)
	out.Duration = time.Since(started)

	if err != nil {
		e.fail(out, err)
	}

	st.key = key
	stored := *out
	st.last = &stored

	if out.OK() {
		slog.Debug("compute: job computed",
			"job", job.ID,
			"run_id", out.RunID,
			"minimum_start", out.MinimumStart,
			"intervals", out.Intervals,
			"duration", out.Duration,
		)
	}
	return out
}

// Solve runs data once, outside any job, and returns the filled result.
// Nothing is cached; RunID and JobID stay empty.
func Solve(data []byte, mode almanac.Mode, strict bool) (*Result, error) {
	out := &Result{Mode: mode.String(), ComputedAt: time.Now()}
	sum := blake3.Sum256(data)
	out.Digest = hex.EncodeToString(sum[:])

	started := time.Now()
	err := run(out, data, mode, strict)
	out.Duration = time.Since(started)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- internal ---------------------------------------------------------------

// run parses data and fills the result fields of out.
func run(out *Result, data []byte, mode almanac.Mode, strict bool) error {
	a, err := almanac.ParseBytes(data)
	if err != nil {
		return err
	}
	stages, err := a.Stages()
	if err != nil {
		return err
	}
	if strict {
		var errs []error
		for _, s := range stages {
			errs = append(errs, s.Validate())
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
	}
	initial, err := a.Intervals(mode)
	if err != nil {
		return err
	}

	final, stats := rangemap.New(stages...).Trace(initial)
	m, err := rangemap.MinimumStart(final)
	if err != nil {
		return fmt.Errorf("no intervals after %d stages: %w", len(stages), err)
	}

	out.MinimumStart = m
	out.Seeds = len(initial)
	out.Intervals = len(final)
	out.TotalLength = rangemap.TotalLength(final)
	out.Stages = stats
	return nil
}

func (e *Engine) fail(out *Result, err error) *Result {
	slog.Warn("compute: job failed", "job", out.JobID, "path", out.Path, "err", err)
	out.Err = err.Error()
	out.MinimumStart = 0
	out.Stages = nil
	return out
}

func (e *Engine) stateFor(jobID string) *jobState {
	st, ok := e.states[jobID]
	if !ok {
		st = &jobState{}
		e.states[jobID] = st
	}
	return st
}
