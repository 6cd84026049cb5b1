package community

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange indicates a config value outside its valid range.
	ErrOutOfRange = errors.New("community config: value out of range")
	// ErrInvalidField indicates an unknown, read-only or mistyped field.
	ErrInvalidField = errors.New("community config: invalid field")
	// ErrNoUpdates indicates an empty update.
	ErrNoUpdates = errors.New("community config: no updates")
	// ErrNotFound indicates no config record has been stored.
	ErrNotFound = errors.New("community config: not found")
	// ErrVersionConflict indicates a concurrent write won.
	ErrVersionConflict = errors.New("community config: version conflict")
)

// FieldError names the field that failed validation.
type FieldError struct {
	Field  string
	Value  float64
	Min    float64
	Max    float64
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("community config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("community config: %s=%g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// Unwrap classifies the error.
func (e *FieldError) Unwrap() error {
	if e.Reason != "" {
		return ErrInvalidField
	}
	return ErrOutOfRange
}

// ValidationErrors aggregates field errors of one write.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes every field error to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(v))
	for _, e := range v {
		out = append(out, e)
	}
	return out
}

// Fields lists the offending field names.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for _, e := range v {
		out = append(out, e.Field)
	}
	return out
}
