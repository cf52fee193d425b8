package rangemap

import (
	"fmt"
	"sort"
)

// Stage is one translation table: an ordered list of rules plus the
// implicit identity for every value no rule covers.
//
// Rules must have pairwise disjoint source ranges. Given that, the order of
// rules does not change the values a stage produces.
type Stage struct {
	name  string
	rules []Rule
}

// NewStage returns a stage named name holding a copy of rules.
func NewStage(name string, rules ...Rule) Stage {
	return Stage{name: name, rules: append([]Rule(nil), rules...)}
}

// Name returns the label given at construction, e.g. "seed-to-soil".
func (s Stage) Name() string { return s.name }

// Rules returns a copy of the stage's rules in declaration order.
func (s Stage) Rules() []Rule { return append([]Rule(nil), s.rules...) }

// Len returns the number of rules.
func (s Stage) Len() int { return len(s.rules) }

// Apply translates every value of in through the stage and returns the
// resulting intervals. The input slice is not modified.
//
// Converted fragments come first in the order they were produced, followed
// by the pass-through fragments no rule covered.
func (s Stage) Apply(in []Interval) []Interval {
	out, _ := s.apply(in)
	return out
}

// apply is a two-list fold. pending holds fragments no rule has converted
// yet; done holds converted fragments. Each rule consumes pending and
// produces the next pending list, so a converted fragment can never reach a
// later rule of the same stage.
func (s Stage) apply(in []Interval) ([]Interval, int) {
	pending := append([]Interval(nil), in...)
	var done []Interval

	for _, r := range s.rules {
		if len(pending) == 0 {
			break
		}
		next := make([]Interval, 0, len(pending))
		for _, iv := range pending {
			sp := SplitInterval(iv, r)
			if sp.Overlap {
				done = append(done, sp.Converted)
			}
			next = append(next, sp.Remainders...)
		}
		pending = next
	}

	converted := len(done)
	return append(done, pending...), converted
}

// Lookup translates a single value: the image under the first rule covering
// v, or v itself when none does.
func (s Stage) Lookup(v int64) int64 {
	for _, r := range s.rules {
		if out, ok := r.Translate(v); ok {
			return out
		}
	}
	return v
}

// Validate reports ErrOverlappingRules when two rules share a source value.
// Apply never calls it.
func (s Stage) Validate() error {
	if len(s.rules) < 2 {
		return nil
	}
	idx := make([]int, len(s.rules))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return s.rules[idx[a]].source < s.rules[idx[b]].source
	})
	for k := 1; k < len(idx); k++ {
		prev, cur := s.rules[idx[k-1]], s.rules[idx[k]]
		if prev.Source().Overlaps(cur.Source()) {
			return fmt.Errorf("%w: stage %q: rule %d %s and rule %d %s",
				ErrOverlappingRules, s.name, idx[k-1], prev.Source(), idx[k], cur.Source())
		}
	}
	return nil
}
