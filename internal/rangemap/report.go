package rangemap

import "math"

// MinimumStart returns the smallest Start over intervals, or ErrEmptyInput.
func MinimumStart(intervals []Interval) (int64, error) {
	if len(intervals) == 0 {
		return 0, ErrEmptyInput
	}
	m := intervals[0].start
	for _, iv := range intervals[1:] {
		if iv.start < m {
			m = iv.start
		}
	}
	return m, nil
}

// TotalLength sums the lengths of intervals, saturating at math.MaxInt64.
func TotalLength(intervals []Interval) int64 {
	var total int64
	for _, iv := range intervals {
		if total > math.MaxInt64-iv.length {
			return math.MaxInt64
		}
		total += iv.length
	}
	return total
}
