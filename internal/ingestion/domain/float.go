package ingestion

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float is a measurement that may be missing. A missing value is NaN in
// memory and null in the snapshot document.
type Float float64

// Missing returns the missing-value sentinel.
func Missing() Float {
	return Float(math.NaN())
}

// Valid reports whether the value is present and finite.
func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Or returns the value, or fallback when it is missing.
func (f Float) Or(fallback float64) float64 {
	if !f.Valid() {
		return fallback
	}
	return float64(f)
}

// MarshalJSON writes null for missing values.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(f), 'f', -1, 64), nil
}

// UnmarshalJSON reads null as a missing value.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Missing()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// ParseNumber coerces a raw cell into a Float. Blank or non-numeric cells
// become Missing. A single decimal comma is accepted, optionally preceded by
// dot-separated thousands groups ("1.234,5"). Any other mix of separators is
// ambiguous and becomes Missing.
func ParseNumber(raw string) Float {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(v)
	}
	if strings.Count(s, ",") != 1 {
		return Missing()
	}
	intPart, frac, _ := strings.Cut(s, ",")
	if strings.Contains(frac, ".") {
		return Missing()
	}
	if strings.Contains(intPart, ".") {
		if !thousandsGrouped(intPart) {
			return Missing()
		}
		intPart = strings.ReplaceAll(intPart, ".", "")
	}
	v, err := strconv.ParseFloat(intPart+"."+frac, 64)
	if err != nil {
		return Missing()
	}
	return Float(v)
}

// thousandsGrouped reports whether every dot-separated group after the first
// has exactly three digits and the first has one to three.
func thousandsGrouped(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	groups := strings.Split(s, ".")
	for i, g := range groups {
		if !allDigits(g) {
			return false
		}
		if i == 0 && (len(g) == 0 || len(g) > 3) {
			return false
		}
		if i > 0 && len(g) != 3 {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidValues returns the present values of fs in order.
func ValidValues(fs []Float) []float64 {
	out := make([]float64, 0, len(fs))
	for _, f := range fs {
		if f.Valid() {
			out = append(out, float64(f))
		}
	}
	return out
}
