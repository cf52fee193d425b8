package rangemap

import (
	"fmt"
	"math"
)

// Interval is the half-open integer range [Start, Start+Length).
//
// The zero Interval is not valid; build intervals with NewInterval.
// Intervals are values and have no mutating methods.
type Interval struct {
	start  int64
	length int64
}

// NewInterval returns [start, start+length). It fails with
// ErrMalformedInterval when length <= 0 or start+length overflows int64.
func NewInterval(start, length int64) (Interval, error) {
	if length <= 0 {
		return Interval{}, fmt.Errorf("%w: start %d length %d: length must be positive",
			ErrMalformedInterval, start, length)
	}
	if start > math.MaxInt64-length {
		return Interval{}, fmt.Errorf("%w: start %d length %d: end overflows int64",
			ErrMalformedInterval, start, length)
	}
	return Interval{start: start, length: length}, nil
}

// MustInterval is like NewInterval but panics on error. Intended for
// literals in tests and tables.
func MustInterval(start, length int64) Interval {
	i, err := NewInterval(start, length)
	if err != nil {
		panic(err)
	}
	return i
}

// span builds [lo, hi) without validation. Callers guarantee lo < hi.
func span(lo, hi int64) Interval {
	return Interval{start: lo, length: hi - lo}
}

// Start returns the first value in the interval.
func (i Interval) Start() int64 { return i.start }

// Length returns the number of values in the interval.
func (i Interval) Length() int64 { return i.length }

// End returns the exclusive upper bound.
func (i Interval) End() int64 { return i.start + i.length }

// Last returns the largest value in the interval.
func (i Interval) Last() int64 { return i.End() - 1 }

// Contains reports whether v lies in [Start, End).
func (i Interval) Contains(v int64) bool {
	return i.start <= v && v < i.End()
}

// Overlaps reports whether i and o share at least one value. An empty
// interval, such as the zero value, overlaps nothing.
func (i Interval) Overlaps(o Interval) bool {
	if i.length <= 0 || o.length <= 0 {
		return false
	}
	return i.start < o.End() && o.start < i.End()
}

// Intersect returns the shared part of i and o, and false when they do not
// overlap.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	if !i.Overlaps(o) {
		return Interval{}, false
	}
	return span(max(i.start, o.start), min(i.End(), o.End())), true
}

func (i Interval) String() string {
	return fmt.Sprintf("[%d, %d)", i.start, i.End())
}
