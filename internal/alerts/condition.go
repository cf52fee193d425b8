package alerts

import (
	"strconv"
	"strings"

	"github.com/obsidianstack/rangeshift/internal/compute"
)

// evalCondition evaluates a rule condition against a result.
//
// Supported expressions (field operator value):
//
//	state == failed
//	state != ok
//	minimum_start < 100
//	output_intervals > 10000
//	input_intervals >= 20
//	total_length < 1
//	duration_ms > 250
//
// Numeric fields never fire on a failed result. Returns (fires, value);
// (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, res *compute.Result) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		state := "ok"
		if !res.OK() {
			state = "failed"
		}
		switch op {
		case "==":
			return state == rhs, 0
		case "!=":
			return state != rhs, 0
		}
		return false, 0
	}

	if !res.OK() {
		return false, 0
	}
	v, ok := numericField(field, res)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

func numericField(field string, res *compute.Result) (float64, bool) {
	switch field {
	case "minimum_start":
		return float64(res.MinimumStart), true
	case "input_intervals":
		return float64(res.Seeds), true
	case "output_intervals":
		return float64(res.Intervals), true
	case "total_length":
		return float64(res.TotalLength), true
	case "duration_ms":
		return res.Duration.Seconds() * 1000, true
	default:
		return 0, false
	}
}

func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
