package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/rangeshift/internal/compute"
	"github.com/obsidianstack/rangeshift/internal/rangemap"
	"github.com/obsidianstack/rangeshift/internal/store"
)

var textFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

func okResult(job string, minimum int64) *compute.Result {
	return &compute.Result{
		JobID:        job,
		RunID:        "run-" + job,
		Mode:         "ranges",
		ComputedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:     250 * time.Millisecond,
		MinimumStart: minimum,
		Seeds:        2,
		Intervals:    9,
		Runs:         3,
		Stages: []rangemap.StageStats{
			{Name: "seed-to-soil", In: 2, Out: 2},
			{Name: "soil-to-fertilizer", In: 2, Out: 4},
		},
	}
}

func failedResult(job string) *compute.Result {
	return &compute.Result{JobID: job, Mode: "ranges", Runs: 1, Err: "almanac: missing seeds"}
}

// parse round-trips mfs through the text encoder and parser.
func parse(t *testing.T, mfs []*dto.MetricFamily) map[string]*dto.MetricFamily {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, textFormat, mfs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var parser expfmt.TextParser
	out, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("TextToMetricFamilies: %v\n%s", err, buf.String())
	}
	return out
}

// sample returns the value of the metric in mf whose labels match want.
func sample(t *testing.T, mf *dto.MetricFamily, want map[string]string) float64 {
	t.Helper()
	if mf == nil {
		t.Fatal("family missing")
	}
next:
	for _, m := range mf.GetMetric() {
		if len(m.GetLabel()) != len(want) {
			continue
		}
		for _, lp := range m.GetLabel() {
			if want[lp.GetName()] != lp.GetValue() {
				continue next
			}
		}
		switch {
		case m.Counter != nil:
			return m.Counter.GetValue()
		case m.Gauge != nil:
			return m.Gauge.GetValue()
		}
	}
	t.Fatalf("%s: no sample with labels %v", mf.GetName(), want)
	return 0
}

func entries(results ...*compute.Result) []*store.Entry {
	out := make([]*store.Entry, len(results))
	for i, r := range results {
		out[i] = &store.Entry{Result: r}
	}
	return out
}

// --- Families ---------------------------------------------------------------

func TestFamilies_SuccessfulJob(t *testing.T) {
	mfs := parse(t, Families(entries(okResult("example", 46))))
	job := map[string]string{"job": "example"}

	if got := sample(t, mfs["rangeshift_minimum_start"], job); got != 46 {
		t.Errorf("minimum_start: got %v, want 46", got)
	}
	if got := sample(t, mfs["rangeshift_input_intervals"], job); got != 2 {
		t.Errorf("input_intervals: got %v, want 2", got)
	}
	if got := sample(t, mfs["rangeshift_output_intervals"], job); got != 9 {
		t.Errorf("output_intervals: got %v, want 9", got)
	}
	if got := sample(t, mfs["rangeshift_run_duration_seconds"], job); got != 0.25 {
		t.Errorf("run_duration_seconds: got %v, want 0.25", got)
	}
	if got := sample(t, mfs["rangeshift_job_failed"], job); got != 0 {
		t.Errorf("job_failed: got %v, want 0", got)
	}
	if got := sample(t, mfs["rangeshift_runs_total"], job); got != 3 {
		t.Errorf("runs_total: got %v, want 3", got)
	}
	want := float64(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix())
	if got := sample(t, mfs["rangeshift_last_computed_timestamp_seconds"], job); got != want {
		t.Errorf("last_computed: got %v, want %v", got, want)
	}
	stage := map[string]string{"job": "example", "stage": "soil-to-fertilizer"}
	if got := sample(t, mfs["rangeshift_stage_output_intervals"], stage); got != 4 {
		t.Errorf("stage_output_intervals: got %v, want 4", got)
	}
}

func TestFamilies_FailedJobHasNoMinimum(t *testing.T) {
	mfs := parse(t, Families(entries(okResult("good", 35), failedResult("bad"))))

	if got := sample(t, mfs["rangeshift_job_failed"], map[string]string{"job": "bad"}); got != 1 {
		t.Errorf("job_failed{bad}: got %v, want 1", got)
	}
	if n := len(mfs["rangeshift_minimum_start"].GetMetric()); n != 1 {
		t.Errorf("minimum_start samples: got %d, want 1", n)
	}
	if got := sample(t, mfs["rangeshift_runs_total"], map[string]string{"job": "bad"}); got != 1 {
		t.Errorf("runs_total{bad}: got %v, want 1", got)
	}
}

func TestFamilies_Types(t *testing.T) {
	for _, mf := range Families(entries(okResult("x", 1))) {
		want := dto.MetricType_GAUGE
		if mf.GetName() == "rangeshift_runs_total" {
			want = dto.MetricType_COUNTER
		}
		if mf.GetType() != want {
			t.Errorf("%s: type %v, want %v", mf.GetName(), mf.GetType(), want)
		}
	}
}

func TestWrite_SkipsEmptyFamilies(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, textFormat, Families(nil)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected empty exposition, got:\n%s", buf.String())
	}
}

// --- Handler ----------------------------------------------------------------

func TestHandler_ServesStore(t *testing.T) {
	st := store.New(time.Hour)
	st.Put(okResult("example", 46))

	rec := httptest.NewRecorder()
	Handler(st).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	if !strings.Contains(rec.Body.String(), `rangeshift_minimum_start{job="example"} 46`) {
		t.Errorf("body missing minimum sample:\n%s", rec.Body.String())
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(store.New(time.Hour)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}
