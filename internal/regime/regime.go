// Package regime maps orbit regime labels to provider query constraints and
// the maximum calendar span a single query may cover.
package regime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/star/tlecat/internal/tle"
)

// ErrConfiguration is matched by caller configuration errors such as an
// unrecognised regime label. These are fatal and never retried.
var ErrConfiguration = errors.New("invalid configuration")

// UnknownRegimeError is returned by Classify for an unrecognised label.
type UnknownRegimeError struct {
	Label string
}

func (e *UnknownRegimeError) Error() string {
	return fmt.Sprintf("unknown orbit regime %q (want one of g|geo, l|leo, m|meo, h|heo, a|all)", e.Label)
}

// Is reports ErrConfiguration as a match.
func (e *UnknownRegimeError) Is(target error) bool {
	return target == ErrConfiguration
}

// Kind names a regime.
type Kind string

const (
	GEO Kind = "GEO"
	LEO Kind = "LEO"
	MEO Kind = "MEO"
	HEO Kind = "HEO"
	ALL Kind = "ALL"
)

// Regime carries the query constraints for one orbit class. MeanMotion and
// Period are never both set.
type Regime struct {
	Kind         Kind
	Eccentricity Bound
	MeanMotion   Bound // rev/day
	Period       Bound // minutes
	MaxSpanDays  int
}

var regimes = map[Kind]Regime{
	GEO: {Kind: GEO, Eccentricity: Below(0.01), MeanMotion: Between(0.99, 1.01), MaxSpanDays: 20},
	LEO: {Kind: LEO, Eccentricity: Below(0.25), MeanMotion: Above(11.25), MaxSpanDays: 2},
	MEO: {Kind: MEO, Eccentricity: Below(0.25), Period: Between(600, 800), MaxSpanDays: 20},
	HEO: {Kind: HEO, Eccentricity: Above(0.25), MaxSpanDays: 20},
	ALL: {Kind: ALL, MaxSpanDays: 2},
}

var labels = map[string]Kind{
	"g": GEO, "geo": GEO,
	"l": LEO, "leo": LEO,
	"m": MEO, "meo": MEO,
	"h": HEO, "heo": HEO,
	"a": ALL, "all": ALL,
}

// Classify resolves a short or long regime label, case-insensitively.
func Classify(label string) (Regime, error) {
	kind, ok := labels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return Regime{}, &UnknownRegimeError{Label: label}
	}
	return regimes[kind], nil
}

// Kinds lists every regime in a stable order.
func Kinds() []Kind {
	return []Kind{GEO, LEO, MEO, HEO, ALL}
}

// Label is the short lower-case form, used in file names.
func (r Regime) Label() string {
	return strings.ToLower(string(r.Kind))
}

// PeriodMinutes converts a mean motion in rev/day to an orbital period.
func PeriodMinutes(meanMotion float64) float64 {
	if meanMotion <= 0 {
		return 0
	}
	return 1440 / meanMotion
}

// Admits reports whether rec satisfies every constraint of the regime. The
// provider applies the same constraints server-side; this lets callers audit
// what came back.
func (r Regime) Admits(rec tle.Record) bool {
	if !r.Eccentricity.Contains(rec.Eccentricity) {
		return false
	}
	if !r.MeanMotion.Contains(rec.MeanMotionRevPerDay) {
		return false
	}
	return r.Period.Contains(PeriodMinutes(rec.MeanMotionRevPerDay))
}

func (r Regime) String() string {
	var parts []string
	if !r.Eccentricity.IsZero() {
		parts = append(parts, "ecc "+r.Eccentricity.String())
	}
	if !r.MeanMotion.IsZero() {
		parts = append(parts, "mean_motion "+r.MeanMotion.String())
	}
	if !r.Period.IsZero() {
		parts = append(parts, "period "+r.Period.String())
	}
	parts = append(parts, fmt.Sprintf("max_span %dd", r.MaxSpanDays))
	return string(r.Kind) + " (" + strings.Join(parts, ", ") + ")"
}
