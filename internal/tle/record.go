// Package tle decodes fixed-width orbital element sets.
//
// A record is built once from its two data lines and never changes afterwards;
// every numeric field is derived from Line1 and Line2 through the column
// layout table below.
package tle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one object's orbital state at one epoch.
type Record struct {
	ObjectID            int
	Name                string
	EpochYearDay        float64
	InclinationDeg      float64
	Eccentricity        float64
	RAANDeg             float64
	ArgPerigeeDeg       float64
	MeanAnomalyDeg      float64
	MeanMotionRevPerDay float64
	Line1               string
	Line2               string
}

type fieldKind int

const (
	kindInt fieldKind = iota
	kindFloat
	kindImpliedDecimal // digits with an assumed leading "0."
)

// field is one entry of the column layout: a half-open [start, end) span on
// line 1 or 2 and where the decoded value goes.
type field struct {
	line  int
	name  string
	start int
	end   int
	kind  fieldKind
	set   func(r *Record, v float64)
}

var layout = []field{
	{1, "object_id", 2, 7, kindInt, func(r *Record, v float64) { r.ObjectID = int(v) }},
	{1, "epoch_day", 20, 32, kindFloat, func(r *Record, v float64) { r.EpochYearDay = v }},
	{2, "inclination", 8, 16, kindFloat, func(r *Record, v float64) { r.InclinationDeg = v }},
	{2, "raan", 17, 25, kindFloat, func(r *Record, v float64) { r.RAANDeg = v }},
	{2, "eccentricity", 26, 33, kindImpliedDecimal, func(r *Record, v float64) { r.Eccentricity = v }},
	{2, "arg_perigee", 34, 42, kindFloat, func(r *Record, v float64) { r.ArgPerigeeDeg = v }},
	{2, "mean_anomaly", 43, 51, kindFloat, func(r *Record, v float64) { r.MeanAnomalyDeg = v }},
	{2, "mean_motion", 52, 63, kindFloat, func(r *Record, v float64) { r.MeanMotionRevPerDay = v }},
}

// line2ID is checked against the line 1 object id rather than stored.
var line2ID = field{line: 2, name: "object_id", start: 2, end: 7, kind: kindInt}

// Parse builds a Record from an optional 3LE name line and the two data lines.
// It never skips: any short line or non-numeric field is returned as a
// *MalformedRecordError.
func Parse(name, line1, line2 string) (Record, error) {
	lines := [2]string{line1, line2}

	if !strings.HasPrefix(line1, "1 ") {
		return Record{}, &MalformedRecordError{Line: 1, Value: prefix(line1), Reason: `line must start with "1 "`}
	}
	if !strings.HasPrefix(line2, "2 ") {
		return Record{}, &MalformedRecordError{Line: 2, Value: prefix(line2), Reason: `line must start with "2 "`}
	}

	rec := Record{
		Name:  cleanName(name),
		Line1: line1,
		Line2: line2,
	}
	for _, f := range layout {
		v, err := decode(lines, f)
		if err != nil {
			return Record{}, err
		}
		f.set(&rec, v)
	}

	if rec.EpochYearDay < 1 || rec.EpochYearDay >= 367 {
		return Record{}, &MalformedRecordError{
			Line:   1,
			Field:  "epoch_day",
			Value:  line1[20:32],
			Reason: "day of year must be in [1, 367)",
		}
	}
	if rec.ObjectID <= 0 {
		return Record{}, &MalformedRecordError{Line: 1, Field: "object_id", Value: line1[2:7], Reason: "object id must be positive"}
	}
	id2, err := decode(lines, line2ID)
	if err != nil {
		return Record{}, err
	}
	if int(id2) != rec.ObjectID {
		return Record{}, &MalformedRecordError{
			Line:   2,
			Field:  "object_id",
			Value:  line2[2:7],
			Reason: fmt.Sprintf("does not match line 1 object id %d", rec.ObjectID),
		}
	}

	return rec, nil
}

// decode extracts and converts one layout field.
func decode(lines [2]string, f field) (float64, error) {
	line := lines[f.line-1]
	if len(line) < f.end {
		return 0, &MalformedRecordError{
			Line:   f.line,
			Field:  f.name,
			Reason: fmt.Sprintf("line length %d shorter than column %d", len(line), f.end),
		}
	}
	raw := line[f.start:f.end]
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &MalformedRecordError{Line: f.line, Field: f.name, Value: raw, Reason: "empty field"}
	}

	switch f.kind {
	case kindInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, &MalformedRecordError{Line: f.line, Field: f.name, Value: raw, Err: err}
		}
		return float64(n), nil
	case kindImpliedDecimal:
		for _, c := range s {
			if c < '0' || c > '9' {
				return 0, &MalformedRecordError{Line: f.line, Field: f.name, Value: raw, Reason: "expected digits only"}
			}
		}
		v, err := strconv.ParseFloat("0."+s, 64)
		if err != nil {
			return 0, &MalformedRecordError{Line: f.line, Field: f.name, Value: raw, Err: err}
		}
		return v, nil
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &MalformedRecordError{Line: f.line, Field: f.name, Value: raw, Err: err}
		}
		// ParseFloat accepts "NaN" and "Inf", which no column may hold.
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &MalformedRecordError{Line: f.line, Field: f.name, Value: raw, Reason: "not a finite number"}
		}
		return v, nil
	}
}

// cleanName drops the "0 " line-number prefix of a 3LE name line.
func cleanName(name string) string {
	name = strings.TrimRight(name, "\r\n ")
	name = strings.TrimPrefix(name, "0 ")
	return strings.TrimSpace(name)
}

func prefix(line string) string {
	if len(line) > 2 {
		return line[:2]
	}
	return line
}

// EpochTime resolves the record epoch to a UTC instant using the two-digit
// year in line 1 columns 19-20. Years 57-99 map to the 1900s, 00-56 to the 2000s.
func (r Record) EpochTime() (time.Time, error) {
	if len(r.Line1) < 20 {
		return time.Time{}, &MalformedRecordError{Line: 1, Field: "epoch_year", Reason: "line too short"}
	}
	yearStr := r.Line1[18:20]
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return time.Time{}, &MalformedRecordError{Line: 1, Field: "epoch_year", Value: yearStr, Err: err}
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	// Day 1 is Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((r.EpochYearDay - 1) * float64(24*time.Hour))), nil
}

// String renders the record as its 3LE triplet.
func (r Record) String() string {
	name := r.Name
	if name == "" {
		name = strconv.Itoa(r.ObjectID)
	}
	return "0 " + name + "\n" + r.Line1 + "\n" + r.Line2
}
