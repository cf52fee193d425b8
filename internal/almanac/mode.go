package almanac

import (
	"fmt"
	"strings"
)

// Mode selects how the seeds line becomes initial intervals.
type Mode int

const (
	// ModeRanges pairs seed values as (start, length).
	ModeRanges Mode = iota
	// ModeValues treats every seed value as a length-1 interval.
	ModeValues
)

// ParseMode accepts "ranges", "values", or "" (ranges).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ranges":
		return ModeRanges, nil
	case "values":
		return ModeValues, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeRanges:
		return "ranges"
	case ModeValues:
		return "values"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
