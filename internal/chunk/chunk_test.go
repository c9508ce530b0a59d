package chunk

import (
	"errors"
	"testing"
	"time"

	"github.com/star/tlecat/internal/regime"
)

func mustRegime(t *testing.T, label string) regime.Regime {
	t.Helper()
	r, err := regime.Classify(label)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSplitLEOFiveDays(t *testing.T) {
	d0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	chunks, err := Split(d0, d0.AddDate(0, 0, 5), mustRegime(t, "leo"))
	if err != nil {
		t.Fatal(err)
	}

	want := []Chunk{
		{d0, d0.AddDate(0, 0, 2)},
		{d0.AddDate(0, 0, 2), d0.AddDate(0, 0, 4)},
		{d0.AddDate(0, 0, 4), d0.AddDate(0, 0, 5)},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %v", len(chunks), len(want), chunks)
	}
	for i := range want {
		if !chunks[i].Start.Equal(want[i].Start) || !chunks[i].End.Equal(want[i].End) {
			t.Errorf("chunk %d = %v, want %v", i, chunks[i], want[i])
		}
	}
}

func TestSplitSingleChunk(t *testing.T) {
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		label string
		days  int
	}{
		{"geo", 1},
		{"geo", 20},
		{"leo", 2},
		{"all", 1},
	}
	for _, tt := range tests {
		chunks, err := Split(d0, d0.AddDate(0, 0, tt.days), mustRegime(t, tt.label))
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != 1 {
			t.Fatalf("%s %d days: got %d chunks, want 1", tt.label, tt.days, len(chunks))
		}
		if chunks[0].Days() != tt.days {
			t.Errorf("%s: chunk spans %d days, want %d", tt.label, chunks[0].Days(), tt.days)
		}
	}
}

func TestSplitExactMultipleSuppressesEmptyTail(t *testing.T) {
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	chunks, err := Split(d0, d0.AddDate(0, 0, 6), mustRegime(t, "l"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %v", len(chunks), chunks)
	}
	for i, c := range chunks {
		if c.Days() != 2 {
			t.Errorf("chunk %d spans %d days, want 2", i, c.Days())
		}
	}
}

// TestSplitCoverage checks contiguity, ordering, total span and the max-span
// bound across many intervals and every regime.
func TestSplitCoverage(t *testing.T) {
	d0 := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	for _, kind := range regime.Kinds() {
		r := mustRegime(t, string(kind))
		for days := 1; days <= 75; days++ {
			end := d0.AddDate(0, 0, days)
			chunks, err := Split(d0, end, r)
			if err != nil {
				t.Fatalf("%s %d days: %v", kind, days, err)
			}
			if !chunks[0].Start.Equal(d0) {
				t.Errorf("%s %d days: first chunk starts %v", kind, days, chunks[0].Start)
			}
			if !chunks[len(chunks)-1].End.Equal(end) {
				t.Errorf("%s %d days: last chunk ends %v", kind, days, chunks[len(chunks)-1].End)
			}
			total := 0
			for i, c := range chunks {
				if !c.Start.Before(c.End) {
					t.Errorf("%s %d days: chunk %d is empty", kind, days, i)
				}
				if i > 0 && !chunks[i-1].End.Equal(c.Start) {
					t.Errorf("%s %d days: gap between chunk %d and %d", kind, days, i-1, i)
				}
				if len(chunks) > 1 && c.Days() > r.MaxSpanDays {
					t.Errorf("%s %d days: chunk %d spans %d > %d", kind, days, i, c.Days(), r.MaxSpanDays)
				}
				total += c.Days()
			}
			if total != days {
				t.Errorf("%s %d days: chunks sum to %d", kind, days, total)
			}
		}
	}
}

func TestSplitCenturiesLongRange(t *testing.T) {
	start := time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	r := mustRegime(t, "geo")

	chunks, err := Split(start, end, r)
	if err != nil {
		t.Fatal(err)
	}
	const totalDays = 146097 // 400 Gregorian years
	if want := (totalDays + r.MaxSpanDays - 1) / r.MaxSpanDays; len(chunks) != want {
		t.Fatalf("got %d chunks, want %d", len(chunks), want)
	}
	if !chunks[0].Start.Equal(start) || !chunks[len(chunks)-1].End.Equal(end) {
		t.Fatalf("chunks cover %v..%v, want %v..%v", chunks[0].Start, chunks[len(chunks)-1].End, start, end)
	}
	total := 0
	for i, c := range chunks {
		if c.Days() <= 0 || c.Days() > r.MaxSpanDays {
			t.Fatalf("chunk %d %v spans %d days, max %d", i, c, c.Days(), r.MaxSpanDays)
		}
		if i > 0 && !chunks[i-1].End.Equal(c.Start) {
			t.Fatalf("gap between chunk %d and %d", i-1, i)
		}
		total += c.Days()
	}
	if total != totalDays {
		t.Errorf("chunks sum to %d days, want %d", total, totalDays)
	}
	if got := (Chunk{Start: start, End: end}).Days(); got != totalDays {
		t.Errorf("Days() = %d, want %d", got, totalDays)
	}
}

func TestSplitTruncatesToDates(t *testing.T) {
	start := time.Date(2024, 5, 1, 17, 30, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 2, 0, 0, 0, time.UTC)
	chunks, err := Split(start, end, mustRegime(t, "geo"))
	if err != nil {
		t.Fatal(err)
	}
	if got := chunks[0].Epoch(); got != "2024-05-01--2024-05-03" {
		t.Errorf("Epoch() = %q", got)
	}
}

func TestSplitInvalidRange(t *testing.T) {
	d0 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"equal", d0, d0},
		{"reversed", d0, d0.AddDate(0, 0, -3)},
		{"same day different time", d0.Add(time.Hour), d0.Add(5 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.start, tt.end, mustRegime(t, "geo"))
			if err == nil {
				t.Fatalf("expected error, got chunks %v", chunks)
			}
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("error %v does not match ErrInvalidRange", err)
			}
			if chunks != nil {
				t.Error("partial result returned alongside error")
			}
		})
	}
}
