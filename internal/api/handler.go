package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/obsidianstack/rangeshift/internal/alerts"
	"github.com/obsidianstack/rangeshift/internal/compute"
	"github.com/obsidianstack/rangeshift/internal/rangemap"
	"github.com/obsidianstack/rangeshift/internal/store"
)

const (
	jobsPrefix    = "/api/v1/jobs/"
	historySuffix = "/history"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store   *store.Store
	history *store.History // nil when history is disabled
	alerts  *alerts.Engine // nil when alerting is disabled
	mux     *http.ServeMux
}

// New creates a Handler reading results from st, past runs from hist and
// alerts from al. hist and al may be nil.
func New(st *store.Store, hist *store.History, al *alerts.Engine) http.Handler {
	h := &Handler{store: st, history: hist, alerts: al, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/jobs", h.listJobs)
	h.mux.HandleFunc(jobsPrefix, h.job) // subtree: {id} and {id}/history
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// BuildSnapshot collects every live entry of st into a SnapshotResponse.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	jobs := make([]JobResponse, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, toJobResponse(e.Result, e.UpdatedAt))
	}
	return SnapshotResponse{
		Jobs:        jobs,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{JobCount: len(entries), History: h.history != nil}
	for _, e := range entries {
		if e.Result.OK() {
			resp.OKCount++
		} else {
			resp.FailedCount++
		}
	}
	switch {
	case resp.JobCount == 0:
		resp.State = "unknown"
	case resp.FailedCount == 0:
		resp.State = "ok"
	case resp.OKCount == 0:
		resp.State = "failed"
	default:
		resp.State = "degraded"
	}
	jsonResp(w, http.StatusOK, resp)
}

// listJobs returns GET /api/v1/jobs.
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store).Jobs)
}

// job dispatches GET /api/v1/jobs/{id} and GET /api/v1/jobs/{id}/history.
func (h *Handler) job(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, jobsPrefix)
	if rest == "" {
		h.listJobs(w, r)
		return
	}
	if id, ok := strings.CutSuffix(rest, historySuffix); ok && id != "" {
		h.jobHistory(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}

	e, ok := h.store.Get(rest)
	if !ok {
		jsonErr(w, http.StatusNotFound, "job not found")
		return
	}
	jsonResp(w, http.StatusOK, toJobResponse(e.Result, e.UpdatedAt))
}

func (h *Handler) jobHistory(w http.ResponseWriter, r *http.Request, id string) {
	if h.history == nil {
		jsonErr(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.history.Recent(r.Context(), id, limit)
	if err != nil {
		slog.Warn("api: history query failed", "job", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	out := make([]JobResponse, 0, len(runs))
	for _, res := range runs {
		out = append(out, toJobResponse(res, time.Time{}))
	}
	jsonResp(w, http.StatusOK, out)
}

// listAlerts returns GET /api/v1/alerts: firing alerts and those resolved
// within the last hour.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// toJobResponse maps a result to its JSON form. A zero seen omits last_seen.
func toJobResponse(res *compute.Result, seen time.Time) JobResponse {
	out := JobResponse{
		JobID:       res.JobID,
		RunID:       res.RunID,
		Path:        res.Path,
		Mode:        res.Mode,
		Digest:      res.Digest,
		OK:          res.OK(),
		Error:       res.Err,
		Seeds:       res.Seeds,
		Intervals:   res.Intervals,
		TotalLength: res.TotalLength,
		DurationMs:  float64(res.Duration) / float64(time.Millisecond),
		Runs:        res.Runs,
		Cached:      res.Cached,
		Stages:      res.Stages,
	}
	if out.Stages == nil {
		out.Stages = []rangemap.StageStats{}
	}
	if res.OK() {
		m := res.MinimumStart
		out.MinimumStart = &m
	}
	if !res.ComputedAt.IsZero() {
		out.ComputedAt = res.ComputedAt.UTC().Format(time.RFC3339)
	}
	if !seen.IsZero() {
		out.LastSeen = seen.UTC().Format(time.RFC3339)
	}
	return out
}
