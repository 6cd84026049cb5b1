package energy

import "math"

// HourSample is a value observed at an hour of day.
type HourSample struct {
	Hour  int
	Value float64
}

// InterpolateHour estimates the value at target from the nearest sampled
// hours strictly below and above it. An exact sample is returned as is; a
// single side is returned unmodified; no samples yields 0.
func InterpolateHour(target int, samples []HourSample) float64 {
	var (
		before, after       = math.MinInt, math.MaxInt
		beforeVal, afterVal float64
	)
	for _, s := range samples {
		switch {
		case s.Hour == target:
			return SafeFloat(s.Value)
		case s.Hour < target && s.Hour > before:
			before, beforeVal = s.Hour, s.Value
		case s.Hour > target && s.Hour < after:
			after, afterVal = s.Hour, s.Value
		}
	}
	hasBefore := before != math.MinInt
	hasAfter := after != math.MaxInt
	switch {
	case !hasBefore && !hasAfter:
		return 0
	case !hasAfter:
		return SafeFloat(beforeVal)
	case !hasBefore:
		return SafeFloat(afterVal)
	}
	span := after - before
	if span == 0 {
		return SafeFloat(beforeVal)
	}
	weight := float64(target-before) / float64(span)
	return SafeFloat(beforeVal + weight*(afterVal-beforeVal))
}
