package rangemap

import (
	"fmt"
	"math"
)

// Rule maps every v in [Source, Source+Length) to v + (Dest - Source).
type Rule struct {
	dest   int64
	source int64
	length int64
}

// NewRule returns the rule for the triple (dest, source, length), the order
// the values appear in a translation table. It fails with ErrMalformedRule
// when length <= 0 or either range would overflow int64.
func NewRule(dest, source, length int64) (Rule, error) {
	if length <= 0 {
		return Rule{}, fmt.Errorf("%w: dest %d source %d length %d: length must be positive",
			ErrMalformedRule, dest, source, length)
	}
	if source > math.MaxInt64-length || dest > math.MaxInt64-length {
		return Rule{}, fmt.Errorf("%w: dest %d source %d length %d: range overflows int64",
			ErrMalformedRule, dest, source, length)
	}
	return Rule{dest: dest, source: source, length: length}, nil
}

// MustRule is like NewRule but panics on error.
func MustRule(dest, source, length int64) Rule {
	r, err := NewRule(dest, source, length)
	if err != nil {
		panic(err)
	}
	return r
}

// Dest returns the first value of the destination range.
func (r Rule) Dest() int64 { return r.dest }

// Length returns the number of values the rule covers.
func (r Rule) Length() int64 { return r.length }

// Source returns the half-open range the rule matches.
func (r Rule) Source() Interval { return Interval{start: r.source, length: r.length} }

// Destination returns the half-open range the source range maps onto.
func (r Rule) Destination() Interval { return Interval{start: r.dest, length: r.length} }

// Offset returns Dest - Source. It wraps when the two ranges are more than
// math.MaxInt64 apart; Translate and Split do not depend on it.
func (r Rule) Offset() int64 { return r.dest - r.source }

// Covers reports whether v lies in the source range.
func (r Rule) Covers(v int64) bool {
	return r.Source().Contains(v)
}

// Translate returns the image of v and true when the rule covers v,
// otherwise v and false.
func (r Rule) Translate(v int64) (int64, bool) {
	if !r.Covers(v) {
		return v, false
	}
	return r.dest + (v - r.source), true
}

func (r Rule) String() string {
	return fmt.Sprintf("%s -> %s", r.Source(), r.Destination())
}
