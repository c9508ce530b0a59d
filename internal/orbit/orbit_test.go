package orbit

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/star/tlecat/internal/tle"
	"github.com/star/tlecat/internal/tle/tletest"
)

func mustParse(t *testing.T, l1, l2 string) tle.Record {
	t.Helper()
	rec, err := tle.Parse("", l1, l2)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestDeriveISS(t *testing.T) {
	g, err := Derive(mustParse(t, tletest.ISSLine1, tletest.ISSLine2))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if math.Abs(g.PeriodMinutes-92.9032) > 1e-3 {
		t.Errorf("period = %.4f min, want ~92.9032", g.PeriodMinutes)
	}
	if math.Abs(g.SemiMajorAxisKm-6794.863) > 0.01 {
		t.Errorf("semi-major axis = %.3f km, want ~6794.863", g.SemiMajorAxisKm)
	}
	if g.PerigeeAltKm >= g.ApogeeAltKm {
		t.Errorf("perigee %.1f >= apogee %.1f", g.PerigeeAltKm, g.ApogeeAltKm)
	}
	if math.Abs(g.PerigeeAltKm-416.05) > 0.1 || math.Abs(g.ApogeeAltKm-417.41) > 0.1 {
		t.Errorf("perigee/apogee = %.2f/%.2f km", g.PerigeeAltKm, g.ApogeeAltKm)
	}

	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !g.Epoch.Equal(wantEpoch) {
		t.Errorf("epoch = %v, want %v", g.Epoch, wantEpoch)
	}

	// SGP4 radius at epoch stays near the Keplerian orbit.
	p := g.AtEpoch
	if p.RadiusKm < 6700 || p.RadiusKm > 6900 {
		t.Errorf("radius at epoch = %.1f km", p.RadiusKm)
	}
	if p.AltitudeKm < 300 || p.AltitudeKm > 500 {
		t.Errorf("altitude at epoch = %.1f km", p.AltitudeKm)
	}
	if math.Abs(p.LatDeg) > 51.7 {
		t.Errorf("latitude %.2f exceeds inclination", p.LatDeg)
	}
	if p.LonDeg < -180 || p.LonDeg >= 180 {
		t.Errorf("longitude %.2f out of range", p.LonDeg)
	}
	if p.SpeedKmS < 7.4 || p.SpeedKmS > 7.9 {
		t.Errorf("speed = %.3f km/s", p.SpeedKmS)
	}
}

func TestDeriveGeostationary(t *testing.T) {
	l1, l2 := tletest.Elements(40000, 50.0, 1.0027, 0.0002)
	g, err := Derive(mustParse(t, l1, l2))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(g.SemiMajorAxisKm-42165) > 5 {
		t.Errorf("semi-major axis = %.1f km, want ~42165", g.SemiMajorAxisKm)
	}
	if math.Abs(g.PeriodMinutes-1436.1) > 0.1 {
		t.Errorf("period = %.2f min", g.PeriodMinutes)
	}
}

func TestDeriveRejectsBadLines(t *testing.T) {
	rec := mustParse(t, tletest.ISSLine1, tletest.ISSLine2)
	rec.Line1 = rec.Line1[:60]

	_, err := Derive(rec)
	if !errors.Is(err, ErrPropagation) {
		t.Fatalf("error %v does not match ErrPropagation", err)
	}
}

func TestDeriveRejectsZeroMeanMotion(t *testing.T) {
	rec := mustParse(t, tletest.ISSLine1, tletest.ISSLine2)
	rec.MeanMotionRevPerDay = 0
	if _, err := Derive(rec); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrapDegrees(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		179:  179,
		180:  -180,
		190:  -170,
		-190: 170,
		540:  -180,
		-720: 0,
	}
	for in, want := range tests {
		if got := wrapDegrees(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("wrapDegrees(%v) = %v, want %v", in, got, want)
		}
	}
}
