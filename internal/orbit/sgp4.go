package orbit

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/tlecat/internal/tle"
)

// ErrPropagation is matched by every failure to initialise or run SGP4.
var ErrPropagation = errors.New("sgp4 propagation failed")

// Position is where SGP4 places an object at a given instant.
type Position struct {
	At         time.Time
	RadiusKm   float64 // distance from Earth's centre, TEME
	AltitudeKm float64 // above the WGS84 ellipsoid
	LatDeg     float64
	LonDeg     float64 // [-180, 180)
	SpeedKmS   float64
}

// propagator wraps go-satellite for a single record.
type propagator struct {
	sat satellite.Satellite
	id  int
}

// newPropagator pre-validates the lines before handing them to go-satellite,
// which calls log.Fatal on malformed input.
func newPropagator(rec tle.Record) (*propagator, error) {
	if err := validateLines(rec.Line1, rec.Line2); err != nil {
		return nil, fmt.Errorf("%w: object %d: %v", ErrPropagation, rec.ObjectID, err)
	}

	sat := satellite.TLEToSat(rec.Line1, rec.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("%w: object %d: init code=%d %s", ErrPropagation, rec.ObjectID, sat.Error, sat.ErrorStr)
	}
	return &propagator{sat: sat, id: rec.ObjectID}, nil
}

func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// at propagates to t, rounded to the whole second.
func (p *propagator) at(t time.Time) (Position, error) {
	t = t.UTC().Round(time.Second)
	y, mo, d := t.Date()
	h, mi, s := t.Clock()

	pos, vel := satellite.Propagate(p.sat, y, int(mo), d, h, mi, s)

	// Propagate takes the satellite by value, so SGP4 error codes are lost.
	// NaN/Inf output is the only failure signal.
	for _, v := range []float64{pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Position{}, fmt.Errorf("%w: object %d: output is NaN/Inf", ErrPropagation, p.id)
		}
	}

	radius := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if radius < 6200.0 || radius > 500000.0 {
		return Position{}, fmt.Errorf("%w: object %d: unreasonable position magnitude %.1f km", ErrPropagation, p.id, radius)
	}

	gmst := satellite.ThetaG_JD(satellite.JDay(y, int(mo), d, h, mi, s))
	alt, _, ll := satellite.ECIToLLA(pos, gmst)

	return Position{
		At:         t,
		RadiusKm:   radius,
		AltitudeKm: alt,
		LatDeg:     ll.Latitude * 180 / math.Pi,
		LonDeg:     wrapDegrees(ll.Longitude * 180 / math.Pi),
		SpeedKmS:   math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z),
	}, nil
}

func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
