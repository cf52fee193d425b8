package almanac

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSeeds is returned when the input does not start with a
	// "seeds:" line, or that line lists no values.
	ErrMissingSeeds = errors.New("almanac: missing seeds")

	// ErrOddSeedCount is returned by Intervals in ModeRanges when the seed
	// values cannot be paired into (start, length).
	ErrOddSeedCount = errors.New("almanac: odd number of seed values")

	// ErrSyntax wraps grammar and number-format failures.
	ErrSyntax = errors.New("almanac: syntax error")

	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("almanac: unknown mode")
)

// RowError locates a failure on one row of one map.
type RowError struct {
	Map  string
	Row  int // zero-based index within the map
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("almanac: map %q row %d (line %d): %v", e.Map, e.Row, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
