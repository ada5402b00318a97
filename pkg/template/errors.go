package template

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPattern = errors.New("malformed pattern")
	ErrParse            = errors.New("parse failed")
	ErrFormat           = errors.New("format failed")
)

// MalformedPatternError is returned when a pattern cannot be compiled, either because
// its placeholder syntax is unbalanced or because an expression is not a valid regexp.
type MalformedPatternError struct {
	Pattern string
	// Offset is the byte offset of the offending character, or -1 when the
	// failure is not tied to a single position.
	Offset int
	Reason string
	Err    error
}

func (e *MalformedPatternError) Error() string {
	msg := fmt.Sprintf("malformed pattern %q", e.Pattern)
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedPatternError) Unwrap() error { return e.Err }

func (e *MalformedPatternError) Is(target error) bool { return target == ErrMalformedPattern }

// ParseError is returned when a candidate string does not match a template.
type ParseError struct {
	Pattern   string
	Candidate string
	// Key is set when the failure concerns a single placeholder, e.g. a strict
	// duplicate mismatch.
	Key    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("candidate %q does not parse", e.Candidate)
	if e.Pattern != "" {
		msg += fmt.Sprintf(" with pattern %q", e.Pattern)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FormatError is returned when data does not satisfy a template's placeholders.
type FormatError struct {
	Pattern string
	Key     string
	Reason  string
	Err     error
}

func (e *FormatError) Error() string {
	var msg string
	switch {
	case e.Pattern != "" && e.Key != "":
		msg = fmt.Sprintf("cannot format pattern %q: key %q", e.Pattern, e.Key)
	case e.Pattern != "":
		msg = fmt.Sprintf("cannot format pattern %q", e.Pattern)
	default:
		msg = "cannot format"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }
