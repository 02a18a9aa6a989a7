package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range defines a floating-point parameter range for gridded generation.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// ParseRange parses a "min:max:step" string into a Range.
// Returns an error if the format is invalid or values cannot be parsed.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Range{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}

	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}

	step, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}

	if step <= 0 {
		return Range{}, fmt.Errorf("step must be positive, got %f", step)
	}

	return Range{Min: min, Max: max, Step: step}, nil
}

// Values generates the range's values from Min to Max (inclusive)
// stepping by Step. Returns nil if Min > Max or Step is not positive.
// Limits the number of generated values to prevent excessive memory
// allocation.
//
// Values are rounded to 3 decimal places, so the effective resolution is
// 0.001: steps below that produce repeated values.
func (r Range) Values() []float64 {
	if r.Step <= 0 {
		return nil
	}
	if r.Min > r.Max {
		return nil
	}

	const maxValues = 10000
	expectedCount := int((r.Max-r.Min)/r.Step) + 1
	if expectedCount > maxValues || expectedCount < 0 {
		return nil
	}

	var result []float64
	for v := r.Min; v <= r.Max+r.Step/1000; v += r.Step {
		if len(result) >= maxValues {
			break
		}
		// Round to avoid floating point accumulation errors
		rounded := math.Round(v*1000) / 1000
		if rounded <= r.Max {
			result = append(result, rounded)
		}
	}
	return result
}
