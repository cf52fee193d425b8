package rangemap

import "sort"

// Split is the result of breaking one interval against one rule.
//
// When Overlap is false the rule matched nothing: Converted and Matched are
// zero and Remainders holds the input unchanged. When Overlap is true,
// Matched is the intersection in source coordinates, Converted is Matched
// shifted into the destination range, and Remainders holds the uncovered
// parts (left before right), each of positive length.
type Split struct {
	Overlap    bool
	Matched    Interval
	Converted  Interval
	Remainders []Interval
}

// Fragments returns the pieces of the input in source coordinates, ordered
// by start: the remainders plus Matched when Overlap is set. They partition
// the input.
func (s Split) Fragments() []Interval {
	out := append(make([]Interval, 0, len(s.Remainders)+1), s.Remainders...)
	if s.Overlap {
		out = append(out, s.Matched)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].start < out[b].start })
	return out
}

// SplitInterval breaks in against r's source range.
//
// With in = [a, a+n) and source = [s, s+m):
//   - no intersection: in is returned unconverted
//   - [a, s) when a < s: left remainder, unconverted
//   - [max(a,s), min(a+n, s+m)) shifted onto the destination: converted
//   - [s+m, a+n) when a+n > s+m: right remainder, unconverted
//
// Shifting computes dest + (x - s) with x ≥ s, which stays inside the
// validated destination range and cannot overflow.
func SplitInterval(in Interval, r Rule) Split {
	src := r.Source()
	mid, ok := in.Intersect(src)
	if !ok {
		return Split{Remainders: []Interval{in}}
	}

	out := Split{
		Overlap: true,
		Matched: mid,
		Converted: Interval{
			start:  r.dest + (mid.start - r.source),
			length: mid.length,
		},
	}
	if in.start < src.start {
		out.Remainders = append(out.Remainders, span(in.start, src.start))
	}
	if in.End() > src.End() {
		out.Remainders = append(out.Remainders, span(src.End(), in.End()))
	}
	return out
}
