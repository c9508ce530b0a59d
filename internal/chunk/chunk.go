// Package chunk splits a date interval into sub-windows no longer than a
// regime's maximum query span.
package chunk

import (
	"errors"
	"fmt"
	"time"

	"github.com/star/tlecat/internal/regime"
)

const secondsPerDay = 86400

// DateLayout is the calendar date format used for query windows.
const DateLayout = "2006-01-02"

// ErrInvalidRange is matched by *InvalidRangeError.
var ErrInvalidRange = errors.New("invalid date range")

// InvalidRangeError reports a non-chronological or empty interval.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s must be before end %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// Is reports ErrInvalidRange as a match.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// Chunk is a half-open calendar window [Start, End) at day granularity.
type Chunk struct {
	Start time.Time
	End   time.Time
}

// Days is the window length in whole days.
func (c Chunk) Days() int {
	return daysBetween(c.Start, c.End)
}

// daysBetween counts calendar days from a to b. It works on Unix seconds
// since time.Duration saturates past roughly 292 years.
func daysBetween(a, b time.Time) int {
	return int((Date(b).Unix() - Date(a).Unix()) / secondsPerDay)
}

// Epoch renders the provider epoch predicate "start--end".
func (c Chunk) Epoch() string {
	return c.Start.Format(DateLayout) + "--" + c.End.Format(DateLayout)
}

func (c Chunk) String() string { return c.Epoch() }

// Date truncates t to its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be formatted YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// Split covers [start, end) with chunks of at most r.MaxSpanDays days. Both
// bounds are truncated to UTC calendar dates first. When the interval fits in
// one span it is returned whole; otherwise full-span chunks are emitted from
// start and the final chunk carries the remainder. A zero-day remainder
// produces no trailing chunk.
func Split(start, end time.Time, r regime.Regime) ([]Chunk, error) {
	start, end = Date(start), Date(end)
	if !start.Before(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}
	span := r.MaxSpanDays
	if span <= 0 {
		return nil, fmt.Errorf("%w: regime %s has max span %d days", regime.ErrConfiguration, r.Kind, span)
	}

	days := daysBetween(start, end)
	if days <= span {
		return []Chunk{{Start: start, End: end}}, nil
	}

	n, rem := days/span, days%span
	chunks := make([]Chunk, 0, n+1)
	cur := start
	for i := 0; i < n; i++ {
		next := cur.AddDate(0, 0, span)
		chunks = append(chunks, Chunk{Start: cur, End: next})
		cur = next
	}
	if rem > 0 {
		chunks = append(chunks, Chunk{Start: cur, End: end})
	}
	return chunks, nil
}
