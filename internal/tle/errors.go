package tle

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed element record")

// MalformedRecordError describes fixed-width input that could not be decoded.
// Line is 1 or 2 for a data line, 0 when the problem is not tied to one line
// (for example a truncated triplet stream).
type MalformedRecordError struct {
	Line   int
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := "malformed element record"
	if e.Line > 0 {
		msg += fmt.Sprintf(": line %d", e.Line)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %s", e.Field)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Is reports ErrMalformedRecord as a match so callers need not use errors.As.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
