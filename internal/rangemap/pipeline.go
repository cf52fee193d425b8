package rangemap

// Pipeline is an ordered list of stages. A Pipeline holds no working state;
// one value may run any number of inputs, concurrently if desired.
type Pipeline struct {
	stages []Stage
}

// StageStats describes one stage of a traced run.
type StageStats struct {
	Name string `json:"name"`
	// In and Out count intervals entering and leaving the stage.
	In  int `json:"in"`
	Out int `json:"out"`
	// Converted counts fragments translated by some rule; PassedThrough
	// counts fragments no rule covered. Converted + PassedThrough == Out.
	Converted     int   `json:"converted"`
	PassedThrough int   `json:"passed_through"`
	TotalLength   int64 `json:"total_length"`
}

// New returns a pipeline over a copy of stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: append([]Stage(nil), stages...)}
}

// Stages returns a copy of the pipeline's stages.
func (p *Pipeline) Stages() []Stage { return append([]Stage(nil), p.stages...) }

// Run passes initial through every stage in order and returns the final
// intervals. No interval skips a stage. initial is not modified.
func (p *Pipeline) Run(initial []Interval) []Interval {
	cur := append([]Interval(nil), initial...)
	for _, st := range p.stages {
		cur = st.Apply(cur)
	}
	return cur
}

// Trace is Run that also reports what each stage did.
func (p *Pipeline) Trace(initial []Interval) ([]Interval, []StageStats) {
	stats := make([]StageStats, 0, len(p.stages))
	cur := append([]Interval(nil), initial...)
	for _, st := range p.stages {
		next, converted := st.apply(cur)
		stats = append(stats, StageStats{
			Name:          st.name,
			In:            len(cur),
			Out:           len(next),
			Converted:     converted,
			PassedThrough: len(next) - converted,
			TotalLength:   TotalLength(next),
		})
		cur = next
	}
	return cur, stats
}

// Lookup translates a single value through every stage.
func (p *Pipeline) Lookup(v int64) int64 {
	for _, st := range p.stages {
		v = st.Lookup(v)
	}
	return v
}

// Run is shorthand for New(stages...).Run(initial).
func Run(initial []Interval, stages []Stage) []Interval {
	return New(stages...).Run(initial)
}
