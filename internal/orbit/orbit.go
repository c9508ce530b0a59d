// Package orbit derives display geometry from element records: Keplerian
// size and shape from the mean elements, and an SGP4 position at the
// record's own epoch.
//
// Nothing here takes part in catalog organisation or epoch selection, which
// work purely on the year-day epoch field.
package orbit

import (
	"fmt"
	"math"
	"time"

	"github.com/star/tlecat/internal/regime"
	"github.com/star/tlecat/internal/tle"
)

const (
	// MuEarth is the WGS84 gravitational parameter in km^3/s^2.
	MuEarth = 398600.4418
	// EarthRadiusKm is the WGS84 equatorial radius.
	EarthRadiusKm = 6378.137
)

// Geometry summarises one record.
type Geometry struct {
	ObjectID        int
	Epoch           time.Time
	PeriodMinutes   float64
	SemiMajorAxisKm float64
	PerigeeAltKm    float64
	ApogeeAltKm     float64
	AtEpoch         Position
}

// Derive computes the geometry of rec. The calendar epoch uses the record's
// two-digit year, so it is only as good as that field.
func Derive(rec tle.Record) (Geometry, error) {
	if rec.MeanMotionRevPerDay <= 0 {
		return Geometry{}, fmt.Errorf("object %d: non-positive mean motion %v", rec.ObjectID, rec.MeanMotionRevPerDay)
	}

	epoch, err := rec.EpochTime()
	if err != nil {
		return Geometry{}, err
	}

	a := SemiMajorAxisKm(rec.MeanMotionRevPerDay)
	g := Geometry{
		ObjectID:        rec.ObjectID,
		Epoch:           epoch,
		PeriodMinutes:   regime.PeriodMinutes(rec.MeanMotionRevPerDay),
		SemiMajorAxisKm: a,
		PerigeeAltKm:    a*(1-rec.Eccentricity) - EarthRadiusKm,
		ApogeeAltKm:     a*(1+rec.Eccentricity) - EarthRadiusKm,
	}

	p, err := newPropagator(rec)
	if err != nil {
		return Geometry{}, err
	}
	if g.AtEpoch, err = p.at(epoch); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// SemiMajorAxisKm applies Kepler's third law to a mean motion in rev/day.
func SemiMajorAxisKm(meanMotion float64) float64 {
	n := meanMotion * 2 * math.Pi / 86400 // rad/s
	return math.Cbrt(MuEarth / (n * n))
}
