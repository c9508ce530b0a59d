package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/star/tlecat/internal/tle/tletest"
)

func TestYearDay(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"jan 1 midnight", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"noon", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC), 100.5},
		{"leap day", time.Date(2024, 2, 29, 6, 0, 0, 0, time.UTC), 60.25},
		{"minutes and seconds", time.Date(2023, 1, 2, 0, 30, 36, 0, time.UTC), 2 + 30.0/1440 + 36.0/86400},
		{"fractional second", time.Date(2023, 1, 1, 0, 0, 0, 500_000_000, time.UTC), 1 + 0.5/86400},
		{"non-utc zone", time.Date(2024, 1, 1, 23, 0, 0, 0, time.FixedZone("X", -2*3600)), 2 + 1.0/24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearDay(tt.t); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("YearDay = %.12f, want %.12f", got, tt.want)
			}
		})
	}
}

func TestSelectNearest(t *testing.T) {
	rc, err := Organize(concat(
		tletest.Triplet("SAT-A", 11111, 100.25),
		tletest.Triplet("SAT-A", 11111, 102.75),
		tletest.Triplet("SAT-B", 22222, 101.0),
	))
	if err != nil {
		t.Fatal(err)
	}

	// Day 102 at 06:00 is year-day 102.25.
	target := time.Date(2024, 4, 11, 6, 0, 0, 0, time.UTC)
	ec := SelectNearest(rc, target)

	if ec.Len() != rc.Len() {
		t.Fatalf("Len = %d, want %d", ec.Len(), rc.Len())
	}
	if got := ec.TargetYearDay(); got != 102.25 {
		t.Errorf("TargetYearDay = %v, want 102.25", got)
	}
	if !ec.Target().Equal(target) {
		t.Errorf("Target = %v", ec.Target())
	}

	a, ok := ec.Get(11111)
	if !ok || a.EpochYearDay != 102.75 {
		t.Errorf("object 11111 selected epoch %v, want 102.75", a.EpochYearDay)
	}
	b, ok := ec.Get(22222)
	if !ok || b.EpochYearDay != 101.0 {
		t.Errorf("object 22222 selected epoch %v, want 101", b.EpochYearDay)
	}
}

func TestSelectNearestTieKeepsFirstArrival(t *testing.T) {
	rc, err := Organize(concat(
		tletest.Triplet("LATE", 11111, 101.5),
		tletest.Triplet("EARLY", 11111, 100.5),
	))
	if err != nil {
		t.Fatal(err)
	}
	// Both candidates are 0.5 days from day 101.0.
	ec := SelectNearest(rc, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
	rec, _ := ec.Get(11111)
	if rec.Name != "LATE" {
		t.Errorf("tie resolved to %q, want first arrival LATE", rec.Name)
	}
}

func TestSelectNearestMinimisesDistance(t *testing.T) {
	epochs := []float64{3.1, 45.9, 46.2, 180.0, 181.5, 365.9}
	var lines []string
	for _, e := range epochs {
		lines = append(lines, tletest.Triplet("SAT", 11111, e)...)
	}
	rc, err := Organize(lines)
	if err != nil {
		t.Fatal(err)
	}

	for day := 1; day <= 366; day += 7 {
		target := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
		yd := YearDay(target)
		rec, _ := SelectNearest(rc, target).Get(11111)
		got := math.Abs(yd - rec.EpochYearDay)
		for _, e := range epochs {
			if math.Abs(yd-e) < got {
				t.Errorf("day %d: selected %v but %v is closer", day, rec.EpochYearDay, e)
			}
		}
	}
}

func TestSelectNearestDoesNotMutateRun(t *testing.T) {
	rc, err := Organize(concat(
		tletest.Triplet("SAT", 11111, 10),
		tletest.Triplet("SAT", 11111, 20),
	))
	if err != nil {
		t.Fatal(err)
	}
	before, _ := rc.History(11111)

	SelectNearest(rc, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))

	after, _ := rc.History(11111)
	if len(after) != len(before) || rc.Records() != 2 {
		t.Fatalf("run catalog changed: %d records", rc.Records())
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("history[%d] changed", i)
		}
	}
}

func TestSelectNearestEmptyRun(t *testing.T) {
	rc, err := Organize(nil)
	if err != nil {
		t.Fatal(err)
	}
	ec := SelectNearest(rc, time.Now())
	if ec.Len() != 0 {
		t.Errorf("Len = %d, want 0", ec.Len())
	}
}
