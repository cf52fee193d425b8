package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/obsidianstack/rangeshift/internal/store"
)

const namespace = "rangeshift"

// Metric names, without the namespace prefix.
const (
	nameMinimumStart    = "minimum_start"
	nameInputIntervals  = "input_intervals"
	nameOutputIntervals = "output_intervals"
	nameDuration        = "run_duration_seconds"
	nameLastComputed    = "last_computed_timestamp_seconds"
	nameFailed          = "job_failed"
	nameRuns            = "runs_total"
	nameStageOutput     = "stage_output_intervals"
)

// Families converts entries into metric families, sorted by name.
// Entries are expected in job order, as returned by store.List.
func Families(entries []*store.Entry) []*dto.MetricFamily {
	minimum := family(nameMinimumStart, "Smallest start over the final intervals of the last successful run.", dto.MetricType_GAUGE)
	input := family(nameInputIntervals, "Intervals fed into the first stage.", dto.MetricType_GAUGE)
	output := family(nameOutputIntervals, "Intervals leaving the last stage.", dto.MetricType_GAUGE)
	duration := family(nameDuration, "Wall time of the last computed run.", dto.MetricType_GAUGE)
	lastComputed := family(nameLastComputed, "Unix time of the last computed run.", dto.MetricType_GAUGE)
	failed := family(nameFailed, "1 when the last run of the job failed.", dto.MetricType_GAUGE)
	runs := family(nameRuns, "Runs of the job since start, including cached ones.", dto.MetricType_COUNTER)
	stages := family(nameStageOutput, "Intervals leaving each stage in the last run.", dto.MetricType_GAUGE)

	for _, e := range entries {
		r := e.Result
		job := label("job", r.JobID)

		runs.Metric = append(runs.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{job},
			Counter: &dto.Counter{Value: proto.Float64(float64(r.Runs))},
		})
		failedValue := 0.0
		if !r.OK() {
			failedValue = 1
		}
		failed.Metric = append(failed.Metric, gauge(failedValue, job))
		if !r.ComputedAt.IsZero() {
			lastComputed.Metric = append(lastComputed.Metric,
				gauge(float64(r.ComputedAt.UnixNano())/1e9, job))
		}
		if !r.OK() {
			continue
		}

		minimum.Metric = append(minimum.Metric, gauge(float64(r.MinimumStart), job))
		input.Metric = append(input.Metric, gauge(float64(r.Seeds), job))
		output.Metric = append(output.Metric, gauge(float64(r.Intervals), job))
		duration.Metric = append(duration.Metric, gauge(r.Duration.Seconds(), job))
		for _, s := range r.Stages {
			stages.Metric = append(stages.Metric, gauge(float64(s.Out), job, label("stage", s.Name)))
		}
	}

	return []*dto.MetricFamily{
		input, failed, lastComputed, minimum, output, duration, runs, stages,
	}
}

// Write encodes mfs to w in format.
func Write(w io.Writer, format expfmt.Format, mfs []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range mfs {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	if c, ok := enc.(expfmt.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("metrics: close encoder: %w", err)
		}
	}
	return nil
}

// Handler serves live store entries at /metrics.
func Handler(st *store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		format := expfmt.Negotiate(r.Header)
		w.Header().Set("Content-Type", string(format))
		if err := Write(w, format, Families(st.List())); err != nil {
			slog.Warn("metrics: write failed", "err", err)
		}
	})
}

// --- internal ---------------------------------------------------------------

func family(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + "_" + name),
		Help: proto.String(help),
		Type: typ.Enum(),
	}
}

// gauge builds a gauge sample. labels must be sorted by name.
func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
