package energy

import (
	"math"

	"github.com/shopspring/decimal"
)

// SafeFloat maps NaN and ±Inf to 0.
func SafeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SafePtr maps nil to 0 and otherwise behaves like SafeFloat.
func SafePtr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return SafeFloat(*v)
}

// Ratio divides num by den, returning 0 when den is not a positive finite
// number or the quotient is not finite.
func Ratio(num, den float64) float64 {
	den = SafeFloat(den)
	if den <= 0 {
		return 0
	}
	return SafeFloat(SafeFloat(num) / den)
}

// Clamp bounds v to [lo, hi]. Non-finite values clamp to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	v = SafeFloat(v)
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Mean averages values, returning 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += SafeFloat(v)
	}
	return sum / float64(len(values))
}
