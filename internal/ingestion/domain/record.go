package ingestion

import (
	"fmt"
	"strings"
	"time"
)

// PeriodLength is the width of one sub-hour period in the market tables.
const PeriodLength = 15 * time.Minute

// Stamp carries the absolute instant of a row and the calendar fields
// derived from it.
type Stamp struct {
	Timestamp time.Time `json:"datetime"`
	Hour      int       `json:"hour"`
	DayOfWeek string    `json:"day_of_week"`
}

// NewStamp derives hour (0-23, in t's location) and weekday from t.
func NewStamp(t time.Time) Stamp {
	return Stamp{
		Timestamp: t,
		Hour:      t.Hour(),
		DayOfWeek: t.Weekday().String(),
	}
}

// IsWeekend reports whether the stamp falls on Saturday or Sunday.
func (s Stamp) IsWeekend() bool {
	wd := s.Timestamp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// TimestampedRecord is a normalized raw row: a stamp plus named numeric
// fields. Labels keep non-numeric columns such as plant and inverter ids.
type TimestampedRecord struct {
	Stamp
	Period int
	Fields map[string]Float
	Labels map[string]string
}

// Field returns the named value or Missing.
func (r TimestampedRecord) Field(name string) Float {
	if r.Fields == nil {
		return Missing()
	}
	v, ok := r.Fields[name]
	if !ok {
		return Missing()
	}
	return v
}

// SourceResult is the outcome of reading one raw source. Readers never
// return errors directly; a failed read is an unavailable result.
type SourceResult struct {
	Source  string
	Records []TimestampedRecord
	Skipped int
	Err     error
}

// Available reports whether the source could be read.
func (r SourceResult) Available() bool {
	return r.Err == nil
}

// Unavailable builds a result for a source that could not be read.
func Unavailable(source string, cause error) SourceResult {
	return SourceResult{
		Source: source,
		Err:    fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, cause),
	}
}

// SlotTime resolves a market table slot. Hours are 1-based and periods are
// 1-based quarter hours within the hour.
func SlotTime(date time.Time, hour, period int) (time.Time, error) {
	if hour < 1 || hour > 25 {
		return time.Time{}, fmt.Errorf("%w: hour %d", ErrInvalidSlot, hour)
	}
	if period < 1 || time.Duration(period-1)*PeriodLength >= time.Hour {
		return time.Time{}, fmt.Errorf("%w: period %d", ErrInvalidSlot, period)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return day.Add(time.Duration(hour-1)*time.Hour + time.Duration(period-1)*PeriodLength), nil
}

var permissiveLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"01-02-06",
	time.RFC3339,
}

// ParseTime parses value with the strict layout first and falls back to a
// list of common layouts. Values without zone are read in loc.
func ParseTime(value, strict string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	if strict != "" {
		if t, err := time.ParseInLocation(strict, value, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range permissiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}
