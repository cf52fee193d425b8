package rangemap

import "errors"

var (
	// ErrMalformedInterval is returned when an interval would have a
	// non-positive length or an end beyond math.MaxInt64.
	ErrMalformedInterval = errors.New("rangemap: malformed interval")

	// ErrMalformedRule is returned when a rule would have a non-positive
	// length, or its source or destination range would overflow.
	ErrMalformedRule = errors.New("rangemap: malformed rule")

	// ErrEmptyInput is returned by MinimumStart for an empty collection.
	ErrEmptyInput = errors.New("rangemap: empty input")

	// ErrOverlappingRules is returned by Stage.Validate when two rules of
	// the same stage share a source value.
	ErrOverlappingRules = errors.New("rangemap: overlapping rules")
)
